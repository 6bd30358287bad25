package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RefresherConfig holds configuration for the snapshot refresher
type RefresherConfig struct {
	// Interval is how often the snapshot is reloaded (default: 5m, the cache TTL)
	Interval time.Duration

	// Timeout bounds a single reload (default: 15s)
	Timeout time.Duration
}

// DefaultRefresherConfig returns sensible defaults
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Interval: 5 * time.Minute,
		Timeout:  15 * time.Second,
	}
}

// Refresher reloads the service snapshot in the background so long running
// servers do not serve views older than the cache freshness window.
type Refresher struct {
	svc    *CategoryService
	config RefresherConfig
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRefresher(svc *CategoryService, config RefresherConfig, logger *slog.Logger) *Refresher {
	def := DefaultRefresherConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{svc: svc, config: config, logger: logger}
}

// Start begins the reload loop. Returns an error if already running.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("refresher is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	r.logger.InfoContext(ctx, "Category refresher started",
		"component", "categories", "interval", r.config.Interval)
	return nil
}

// Stop gracefully stops the loop and waits for completion.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		r.logger.InfoContext(ctx, "Category refresher stopped gracefully", "component", "categories")
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Category refresher stop timed out", "component", "categories")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

// IsRunning returns whether the loop is active
func (r *Refresher) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Refresher) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.reload(ctx)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reload(ctx)
		}
	}
}

func (r *Refresher) reload(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	snap, err := r.svc.Refresh(rctx)
	if err != nil {
		r.logger.WarnContext(ctx, "Category reload failed", "component", "categories", "error", err)
		return
	}
	r.logger.DebugContext(ctx, "Category snapshot reloaded",
		"component", "categories", "total", snap.Stats.Total)
}
