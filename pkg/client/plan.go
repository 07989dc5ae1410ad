package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/teslashibe/go-conepose/internal/httpc"
)

// Plan is a rendered top-down view fetched from a server.
type Plan struct {
	Image       []byte
	ContentType string
	Found       bool
}

// FetchPlan asks the server at baseURL (http://host:port) to render the scene
// for one box and heading. format is "png" or "webp"; size 0 means the
// server default.
func FetchPlan(ctx context.Context, baseURL string, left, right int, heading float64, format string, size int) (*Plan, error) {
	q := url.Values{}
	q.Set("left", strconv.Itoa(left))
	q.Set("right", strconv.Itoa(right))
	q.Set("heading", strconv.FormatFloat(heading, 'f', -1, 64))
	if format != "" {
		q.Set("format", format)
	}
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	endpoint := strings.TrimSuffix(baseURL, "/") + "/api/plan?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch plan: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("plan: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return &Plan{
		Image:       body,
		ContentType: resp.Header.Get("Content-Type"),
		Found:       resp.Header.Get("X-Cone-Found") == "true",
	}, nil
}
