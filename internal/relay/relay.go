// Package relay forwards received notifications to external sinks. Delivery
// is best effort: failures are logged and never reach the connection manager.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"notify-client/internal/models"
)

const (
	DefaultSinkTimeout = 5 * time.Second
	defaultQueueSize   = 256
)

var ErrQueueFull = errors.New("relay queue full")

// Stats counts relay outcomes since start
type Stats struct {
	Enqueued  int64            `json:"enqueued"`
	Dropped   int64            `json:"dropped"`
	Delivered map[string]int64 `json:"delivered"`
	Failed    map[string]int64 `json:"failed"`
}

type Relay struct {
	sinks   []Sink
	queue   chan Envelope
	timeout time.Duration
	logger  *slog.Logger

	enqueued atomic.Int64
	dropped  atomic.Int64

	mu        sync.Mutex
	delivered map[string]int64
	failed    map[string]int64
}

// New creates a relay over sinks. A zero timeout uses DefaultSinkTimeout.
func New(logger *slog.Logger, timeout time.Duration, sinks ...Sink) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultSinkTimeout
	}
	return &Relay{
		sinks:     sinks,
		queue:     make(chan Envelope, defaultQueueSize),
		timeout:   timeout,
		logger:    logger,
		delivered: make(map[string]int64),
		failed:    make(map[string]int64),
	}
}

// Sinks returns the configured sink names
func (r *Relay) Sinks() []string {
	names := make([]string, 0, len(r.sinks))
	for _, s := range r.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Enqueue hands a notification to the relay without blocking. It fits the
// connection manager's notification hook.
func (r *Relay) Enqueue(userID string, n models.Notification) error {
	select {
	case r.queue <- Envelope{UserID: userID, Notification: n}:
		r.enqueued.Add(1)
		return nil
	default:
		r.dropped.Add(1)
		r.logger.Warn("Relay queue full, dropping notification", "notificationID", n.ID)
		return ErrQueueFull
	}
}

// Run delivers queued notifications until ctx is cancelled. Anything still
// queued at that point is delivered before returning.
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info("Relay started", "sinks", r.Sinks())
	for {
		select {
		case env := <-r.queue:
			r.Deliver(ctx, env)
		case <-ctx.Done():
			r.drain()
			r.logger.Info("Relay stopped")
			return
		}
	}
}

func (r *Relay) drain() {
	for {
		select {
		case env := <-r.queue:
			r.Deliver(context.Background(), env)
		default:
			return
		}
	}
}

// Deliver fans env out to every sink concurrently, each under its own timeout
func (r *Relay) Deliver(ctx context.Context, env Envelope) {
	var wg sync.WaitGroup
	for _, sink := range r.sinks {
		wg.Add(1)
		go func(sink Sink) {
			defer wg.Done()

			sinkCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			if err := sink.Publish(sinkCtx, env); err != nil {
				r.record(r.failed, sink.Name())
				r.logger.Warn("Failed to relay notification",
					"sink", sink.Name(), "notificationID", env.ID, "error", err)
				return
			}
			r.record(r.delivered, sink.Name())
		}(sink)
	}
	wg.Wait()
}

func (r *Relay) record(counts map[string]int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts[name]++
}

func (r *Relay) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		Enqueued:  r.enqueued.Load(),
		Dropped:   r.dropped.Load(),
		Delivered: make(map[string]int64, len(r.delivered)),
		Failed:    make(map[string]int64, len(r.failed)),
	}
	for k, v := range r.delivered {
		s.Delivered[k] = v
	}
	for k, v := range r.failed {
		s.Failed[k] = v
	}
	return s
}

// Close closes every sink and joins their errors
func (r *Relay) Close() error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
