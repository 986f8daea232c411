package inference

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Loader builds a Model. It may be slow.
type Loader func(ctx context.Context) (Model, error)

// Handle owns a lazily loaded Model. Concurrent callers of Get share one
// load; a failed load is not cached so the next Get retries.
type Handle struct {
	mu     sync.Mutex
	load   Loader
	model  Model
	loads  int
	logger *slog.Logger
}

func NewHandle(load Loader, logger *slog.Logger) *Handle {
	return &Handle{load: load, logger: logger}
}

// Get returns the model, loading it on first use.
func (h *Handle) Get(ctx context.Context) (Model, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.model != nil {
		return h.model, nil
	}
	if h.load == nil {
		return nil, ErrUnavailable
	}
	m, err := h.load(ctx)
	if err != nil {
		h.logger.Warn("model load failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	h.model = m
	h.loads++
	h.logger.Info("model loaded", "loads", h.loads)
	return m, nil
}

// Loaded reports whether a model is currently held.
func (h *Handle) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.model != nil
}

// Loads is the number of successful loads since creation.
func (h *Handle) Loads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loads
}

// Reset drops the held model so the next Get loads it again.
func (h *Handle) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.model = nil
}

// HTTPLoader returns a Loader that pings the server before handing out
// the client.
func HTTPLoader(c *HTTPClient) Loader {
	return func(ctx context.Context) (Model, error) {
		if err := c.Ping(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
}
