package checker

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"flagrange/internal/store"

	"github.com/google/uuid"
)

// TCPChecker probes a single TCP port. A completed dial is UP with 100%
// SLA; a refused or timed out dial is DOWN.
type TCPChecker struct {
	Port    int
	Timeout time.Duration
}

func (c *TCPChecker) Check(ctx context.Context, teamAddr string, _ uuid.UUID, _ string, _ int) (Result, error) {
	d := net.Dialer{Timeout: c.Timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(teamAddr, fmt.Sprintf("%d", c.Port)))
	if err != nil {
		return Result{
			Status:  store.CheckStatusDown,
			Message: err.Error(),
		}, nil
	}
	conn.Close()
	return Result{Status: store.CheckStatusUp, SLAPercentage: 100}, nil
}

// HTTPChecker issues a GET against the team's target. A 2xx response is UP
// with 100% SLA, any other response is DOWN with 50% (the service answers
// but misbehaves), and a transport error is DOWN with 0%.
type HTTPChecker struct {
	Port   int
	Path   string
	Client *http.Client
}

func (c *HTTPChecker) Check(ctx context.Context, teamAddr string, _ uuid.UUID, _ string, _ int) (Result, error) {
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	url := fmt.Sprintf("http://%s%s", net.JoinHostPort(teamAddr, fmt.Sprintf("%d", c.Port)), c.Path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{
			Status:  store.CheckStatusDown,
			Message: err.Error(),
		}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{Status: store.CheckStatusUp, SLAPercentage: 100}, nil
	}
	return Result{
		Status:        store.CheckStatusDown,
		SLAPercentage: 50,
		Message:       fmt.Sprintf("unexpected status %d", resp.StatusCode),
	}, nil
}
