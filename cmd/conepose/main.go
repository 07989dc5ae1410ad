// conepose: estimate a cone's position from one bounding box and heading.
//
//	conepose -left 140 -right 180 -heading -77
//	conepose -left 140 -right 180 -heading -77 -plan cone.webp
//	conepose -server ws://localhost:8090 -left 140 -right 180 -heading -77
//	conepose -server ws://localhost:8090 -watch
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/teslashibe/go-conepose/internal/config"
	"github.com/teslashibe/go-conepose/internal/log"
	"github.com/teslashibe/go-conepose/pkg/camera"
	"github.com/teslashibe/go-conepose/pkg/client"
	"github.com/teslashibe/go-conepose/pkg/cone"
	"github.com/teslashibe/go-conepose/pkg/plan"
	"github.com/teslashibe/go-conepose/pkg/protocol"
)

var (
	left     = flag.Int("left", -1, "Left edge of the bounding box, pixels")
	right    = flag.Int("right", -1, "Right edge of the bounding box, pixels")
	heading  = flag.Float64("heading", 0, "Cone heading in degrees (0 = tip pointing away)")
	preset   = flag.String("preset", "", "Camera preset (limelight, elp, lifecam); overrides CONEPOSE_CAMERA")
	planPath = flag.String("plan", "", "Write a plan view to this .png or .webp file")
	planSize = flag.Int("plan-size", plan.DefaultSize, "Plan view size in pixels")
	asJSON   = flag.Bool("json", false, "Print the result as JSON")
	server   = flag.String("server", "", "Ask a conepose server (ws://host:port) instead of solving locally")
	watch    = flag.Bool("watch", false, "With -server, print every result the server records")
	debug    = flag.Bool("debug", false, "Enable debug logging")
)

// Exit codes.
const (
	exitOK = iota
	exitUnsolved
	exitUsage
)

func main() {
	flag.Parse()

	level := config.DefaultLogLevel
	if *debug {
		level = "debug"
	}
	log.Init(level)

	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *watch {
		if *server == "" {
			fmt.Fprintln(os.Stderr, "-watch needs -server")
			return exitUsage
		}
		err := client.Watch(ctx, strings.TrimSuffix(*server, "/")+"/ws/results", printResult)
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			return exitUnsolved
		}
		return exitOK
	}

	if *left < 0 || *right < 0 {
		fmt.Fprintln(os.Stderr, "usage: conepose -left N -right N -heading DEG [-preset NAME] [-plan FILE]")
		flag.PrintDefaults()
		return exitUsage
	}

	if *server != "" {
		return runRemote(ctx)
	}
	return runLocal()
}

func runLocal() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	cam := cfg.Camera
	if *preset != "" {
		p := camera.GetPreset(*preset)
		if p == nil {
			fmt.Fprintf(os.Stderr, "unknown preset %q (available: %s)\n", *preset, strings.Join(camera.PresetNames(), ", "))
			return exitUsage
		}
		cam = *p
	}

	locator, err := cone.NewLocator(cam, cfg.Geometry)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	req := protocol.EstimateRequest{Left: *left, Right: *right, Heading: *heading}.WithID()
	est, estErr := locator.EstimateTargetPosition(req.Left, req.Right, req.Heading)
	printResult(protocol.NewResult(req, est, estErr))

	if *planPath != "" && !errors.Is(estErr, cone.ErrInvalidInput) {
		if err := writePlan(locator, est, estErr); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitUsage
		}
	}

	switch {
	case estErr == nil:
		return exitOK
	case errors.Is(estErr, cone.ErrInvalidInput):
		return exitUsage
	default:
		return exitUnsolved
	}
}

func writePlan(l *cone.Locator, est cone.Estimate, estErr error) error {
	format, err := plan.ParseFormat(strings.TrimPrefix(filepath.Ext(*planPath), "."))
	if err != nil {
		return err
	}
	r, err := plan.NewRenderer(*planSize, *planSize)
	if err != nil {
		return err
	}
	data, err := r.Encode(plan.Scene{
		Camera:   l.Camera(),
		Geometry: l.Geometry(),
		Left:     *left,
		Right:    *right,
		Heading:  *heading,
		Estimate: est,
		Err:      estErr,
	}, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*planPath, data, 0644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	log.Info("plan written", "path", *planPath, "bytes", len(data))
	return nil
}

func runRemote(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, strings.TrimSuffix(*server, "/")+"/ws/estimate")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUnsolved
	}
	defer c.Close()

	result, err := c.Estimate(ctx, *left, *right, *heading)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUnsolved
	}
	printResult(result)

	if *planPath != "" && result.Reason != protocol.ReasonInvalidInput {
		if err := fetchPlan(ctx); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitUsage
		}
	}

	switch {
	case result.Found:
		return exitOK
	case result.Reason == protocol.ReasonInvalidInput:
		return exitUsage
	default:
		return exitUnsolved
	}
}

func fetchPlan(ctx context.Context) error {
	base := strings.TrimSuffix(*server, "/")
	base = strings.Replace(base, "ws://", "http://", 1)
	base = strings.Replace(base, "wss://", "https://", 1)

	format := strings.TrimPrefix(filepath.Ext(*planPath), ".")
	p, err := client.FetchPlan(ctx, base, *left, *right, *heading, format, *planSize)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*planPath, p.Image, 0644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	log.Info("plan written", "path", *planPath, "bytes", len(p.Image), "found", p.Found)
	return nil
}

func printResult(r protocol.ResultData) {
	if *asJSON {
		data, _ := json.Marshal(r)
		fmt.Println(string(data))
		return
	}
	if !r.Found {
		fmt.Printf("%s  %d..%d @ %.1f°  not found (%s): %s\n", r.ID, r.Left, r.Right, r.Heading, r.Reason, r.Error)
		return
	}
	fmt.Printf("%s  %d..%d @ %.1f°  %s  x=%.3f y=%.3f  range=%.3f bearing=%.2f°\n",
		r.ID, r.Left, r.Right, r.Heading, r.Orientation, r.X, r.Y, r.Range, r.Angle)
}
