// Package heartbeat sends application pings on a cron schedule.
package heartbeat

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"notify-client/internal/connection"

	"github.com/robfig/cron/v3"
)

var ErrEmptySchedule = errors.New("empty ping schedule")

// Pinger is implemented by *connection.Manager
type Pinger interface {
	SendPing() error
}

type Scheduler struct {
	c       *cron.Cron
	pinger  Pinger
	logger  *slog.Logger
	sent    atomic.Int64
	skipped atomic.Int64
}

// parser accepts optional seconds and descriptors such as "@every 30s".
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New parses spec and prepares a scheduler; call Start to begin pinging.
func New(spec string, pinger Pinger, logger *slog.Logger) (*Scheduler, error) {
	if spec == "" {
		return nil, ErrEmptySchedule
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		c:      cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		pinger: pinger,
		logger: logger,
	}
	if _, err := s.c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid ping schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	err := s.pinger.SendPing()
	switch {
	case err == nil:
		s.sent.Add(1)
	case errors.Is(err, connection.ErrNotConnected):
		s.skipped.Add(1)
	default:
		s.logger.Warn("Scheduled ping failed", "error", err)
	}
}

func (s *Scheduler) Start() {
	s.c.Start()
	s.logger.Info("Heartbeat started", "entries", len(s.c.Entries()))
}

// Stop halts the schedule and waits for a running ping to finish
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

// Sent and Skipped count pings delivered and pings skipped while disconnected
func (s *Scheduler) Sent() int64    { return s.sent.Load() }
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }
