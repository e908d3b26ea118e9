package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fortuna/stathistory/internal/config"
	"github.com/fortuna/stathistory/internal/history"
)

// Builder computes one history.
type Builder interface {
	Build(ctx context.Context, cfg config.Config, reporter history.Reporter) (*history.History, error)
}

// Publisher appends a history to a durable stream.
type Publisher interface {
	PublishHistory(ctx context.Context, h *history.History) error
}

// Broadcaster pushes raw payloads to live subscribers of key.
type Broadcaster interface {
	Broadcast(key string, data []byte)
}

// Config holds scheduler configuration
type Config struct {
	Interval             time.Duration // Default: 25m, matches the response cache TTL
	MaxRetries           int           // Default: 3
	RetryDelay           time.Duration // Default: 5s
	MaxConsecutiveErrors int           // Default: 5
	Cooldown             time.Duration // Default: 1m, extra wait once a target keeps failing
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	return &Config{
		Interval:             25 * time.Minute,
		MaxRetries:           3,
		RetryDelay:           5 * time.Second,
		MaxConsecutiveErrors: 5,
		Cooldown:             time.Minute,
	}
}

// TargetStatus is the last outcome for one watched target.
type TargetStatus struct {
	Target            string    `json:"target"`
	LastSuccess       time.Time `json:"last_success,omitempty"`
	LastError         string    `json:"last_error,omitempty"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
}

// Refresher rebuilds watched histories on an interval and fans them out to
// the stream publisher and websocket subscribers.
type Refresher struct {
	base        config.Config
	targets     []config.Target
	builder     Builder
	publisher   Publisher
	broadcaster Broadcaster
	config      *Config
	logger      *log.Logger

	mu     sync.Mutex
	status map[string]*TargetStatus
	cancel context.CancelFunc
}

// NewRefresher creates a refresher. publisher and broadcaster may be nil.
func NewRefresher(base config.Config, targets []config.Target, builder Builder, publisher Publisher, broadcaster Broadcaster, cfg *Config, logger *log.Logger) *Refresher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[scheduler] ", log.LstdFlags)
	}
	status := make(map[string]*TargetStatus, len(targets))
	for _, t := range targets {
		status[t.String()] = &TargetStatus{Target: t.String()}
	}
	return &Refresher{
		base:        base,
		targets:     targets,
		builder:     builder,
		publisher:   publisher,
		broadcaster: broadcaster,
		config:      cfg,
		logger:      logger,
		status:      status,
	}
}

// Start refreshes every target immediately and then on each tick, until ctx
// is cancelled or Stop is called.
func (r *Refresher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	if len(r.targets) == 0 {
		r.logger.Println("No watch targets configured; refresher idle")
		<-ctx.Done()
		return
	}

	r.logger.Printf("→ Refreshing %d targets every %v", len(r.targets), r.config.Interval)
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.RefreshAll(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Println("→ Refresher stopped")
			return
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

// Stop cancels a running Start.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// RefreshAll refreshes each target in turn and reports how many succeeded.
func (r *Refresher) RefreshAll(ctx context.Context) int {
	ok := 0
	for _, target := range r.targets {
		if ctx.Err() != nil {
			break
		}
		if err := r.refreshWithRetry(ctx, target); err != nil {
			continue
		}
		ok++
	}
	if ok > 0 {
		r.logger.Printf("✓ Refreshed %d/%d targets", ok, len(r.targets))
	}
	return ok
}

func (r *Refresher) refreshWithRetry(ctx context.Context, target config.Target) error {
	var err error
	for attempt := 1; attempt <= r.config.MaxRetries; attempt++ {
		if err = r.Refresh(ctx, target); err == nil {
			r.record(target, nil)
			return nil
		}
		r.logger.Printf("  ⚠️  %s attempt %d/%d failed: %v", target, attempt, r.config.MaxRetries, err)

		if attempt < r.config.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.config.RetryDelay):
			}
		}
	}

	failures := r.record(target, err)
	r.logger.Printf("  ❌ %s: all %d attempts failed. Consecutive errors: %d/%d",
		target, r.config.MaxRetries, failures, r.config.MaxConsecutiveErrors)
	if failures >= r.config.MaxConsecutiveErrors {
		r.logger.Printf("  ⚠️  High error rate for %s. Cooling down %v...", target, r.config.Cooldown)
		select {
		case <-ctx.Done():
		case <-time.After(r.config.Cooldown):
		}
	}
	return err
}

// Refresh builds one target's history and fans it out.
func (r *Refresher) Refresh(ctx context.Context, target config.Target) error {
	h, err := r.builder.Build(ctx, r.base.With(target), nil)
	if err != nil {
		return fmt.Errorf("building %s: %w", target, err)
	}

	if r.publisher != nil {
		if err := r.publisher.PublishHistory(ctx, h); err != nil {
			return fmt.Errorf("publishing %s: %w", target, err)
		}
	}
	if r.broadcaster != nil {
		data, err := json.Marshal(h)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", target, err)
		}
		r.broadcaster.Broadcast(target.String(), data)
	}
	return nil
}

func (r *Refresher) record(target config.Target, err error) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.status[target.String()]
	if !ok {
		s = &TargetStatus{Target: target.String()}
		r.status[target.String()] = s
	}
	if err == nil {
		s.LastSuccess = time.Now()
		s.LastError = ""
		s.ConsecutiveErrors = 0
		return 0
	}
	s.LastError = err.Error()
	s.ConsecutiveErrors++
	return s.ConsecutiveErrors
}

// GetStatus returns the last outcome of every target, in watch order.
func (r *Refresher) GetStatus() []TargetStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TargetStatus, 0, len(r.targets))
	for _, t := range r.targets {
		out = append(out, *r.status[t.String()])
	}
	return out
}
