// Package connectivity reports remote reachability and drives sync triggers.
package connectivity

import (
	"context"
	"net/http"
	"time"
)

// Oracle answers a single question: is the remote reachable right now?
type Oracle interface {
	Reachable(ctx context.Context) bool
}

// Probe is an Oracle backed by an HTTP request against the remote health
// endpoint. Any response at all counts as reachable; only the absence of a
// response counts as unreachable.
type Probe struct {
	url    string
	client *http.Client
}

// NewProbe creates a Probe against the given health URL.
func NewProbe(url string, timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Probe{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Reachable issues a GET against the health URL and reports whether any
// response came back.
func (p *Probe) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Static is a fixed-answer Oracle, used in tests and to force offline mode.
type Static bool

// Reachable returns the fixed answer.
func (s Static) Reachable(context.Context) bool { return bool(s) }
