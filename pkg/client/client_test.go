package client

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-conepose/pkg/camera"
	"github.com/teslashibe/go-conepose/pkg/cone"
	"github.com/teslashibe/go-conepose/pkg/protocol"
	"github.com/teslashibe/go-conepose/pkg/web"
	"gonum.org/v1/gonum/floats/scalar"
)

func startServer(t *testing.T, port string) {
	t.Helper()
	s, err := web.NewServer(web.Options{
		Port:     port,
		Camera:   camera.DefaultConfig(),
		Geometry: cone.ReferenceGeometry(),
	})
	if err != nil {
		t.Fatal(err)
	}
	go s.Start()
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	time.Sleep(100 * time.Millisecond)
}

func TestClient_Estimate(t *testing.T) {
	startServer(t, "18200")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, "ws://localhost:18200/ws/estimate")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	result, err := c.Estimate(ctx, 140, 180, -77)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if !result.Found || result.Orientation != "tip_left_and_away" {
		t.Errorf("result = %+v", result)
	}
	if !scalar.EqualWithinAbs(result.X, 1.8558630023574354, 1e-9) ||
		!scalar.EqualWithinAbs(result.Y, 102.50640997095044, 1e-9) {
		t.Errorf("center = (%v, %v)", result.X, result.Y)
	}

	unsolved, err := c.Estimate(ctx, 160, 160, 0)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if unsolved.Found || unsolved.Reason != protocol.ReasonDegenerate || unsolved.X != -1 {
		t.Errorf("unsolved = %+v", unsolved)
	}

	if _, err := c.Ping(ctx, "ping-1"); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestClient_ConcurrentRequests(t *testing.T) {
	startServer(t, "18201")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, "ws://localhost:18201/ws/estimate")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	headings := []float64{0, 180, -77, 77, -120, 120}
	want := []string{
		"tip_directly_away", "tip_directly_towards",
		"tip_left_and_away", "tip_right_and_away",
		"tip_left_and_towards", "tip_right_and_towards",
	}

	var wg sync.WaitGroup
	got := make([]string, len(headings))
	for i, h := range headings {
		wg.Add(1)
		go func(i int, h float64) {
			defer wg.Done()
			r, err := c.Estimate(ctx, 140, 180, h)
			if err != nil {
				t.Errorf("heading %v: %v", h, err)
				return
			}
			got[i] = r.Orientation
		}(i, h)
	}
	wg.Wait()

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("heading %v: orientation = %q, want %q", headings[i], got[i], want[i])
		}
	}
}

func TestClient_Watch(t *testing.T) {
	startServer(t, "18202")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results := make(chan protocol.ResultData, 1)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- Watch(ctx, "ws://localhost:18202/ws/results", func(r protocol.ResultData) {
			select {
			case results <- r:
			default:
			}
		})
	}()
	time.Sleep(100 * time.Millisecond)

	c, err := Dial(ctx, "ws://localhost:18202/ws/estimate")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	sent, err := c.Estimate(ctx, 140, 180, 0)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-results:
		if r.ID != sent.ID {
			t.Errorf("watched result %q, want %q", r.ID, sent.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result broadcast")
	}

	cancel()
	select {
	case err := <-watchErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Watch() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestClient_ClosedConnection(t *testing.T) {
	startServer(t, "18203")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, "ws://localhost:18203/ws/estimate")
	if err != nil {
		t.Fatal(err)
	}
	c.Close()

	if _, err := c.Estimate(ctx, 140, 180, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Estimate() after Close error = %v, want ErrClosed", err)
	}
}

func TestDial_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := Dial(ctx, "ws://localhost:1/ws/estimate"); err == nil {
		t.Error("Dial() to a closed port should fail")
	}
}

func TestFetchPlan(t *testing.T) {
	startServer(t, "18204")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := FetchPlan(ctx, "http://localhost:18204", 140, 180, -77, "png", 128)
	if err != nil {
		t.Fatalf("FetchPlan() error = %v", err)
	}
	if !p.Found {
		t.Error("Found = false, want true")
	}
	if p.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", p.ContentType)
	}
	if !bytes.HasPrefix(p.Image, []byte("\x89PNG")) {
		t.Error("image is not a PNG")
	}

	unsolved, err := FetchPlan(ctx, "http://localhost:18204", 160, 160, 0, "webp", 0)
	if err != nil {
		t.Fatalf("FetchPlan() error = %v", err)
	}
	if unsolved.Found {
		t.Error("Found = true for a zero-width box")
	}

	if _, err := FetchPlan(ctx, "http://localhost:18204", 140, 180, -77, "gif", 0); err == nil {
		t.Error("FetchPlan() with an unknown format should fail")
	}
}
