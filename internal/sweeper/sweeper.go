// Package sweeper runs the background auto-archival loop: on a cron
// schedule it finds slots that have gone inactive and archives them
// through the storage manager.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/nextlevelbuilder/memvault/internal/storage"
)

// Service periodically archives inactive slots.
type Service struct {
	storage *storage.Manager
	gron    *gronx.Gronx

	mu           sync.Mutex
	schedule     string
	daysInactive int
	minEntries   int
	running      bool
	stopChan     chan struct{}
}

// New creates a sweeper. schedule is a standard five-field cron expression.
func New(mgr *storage.Manager, schedule string, daysInactive, minEntries int) (*Service, error) {
	g := gronx.New()
	if !g.IsValid(schedule) {
		return nil, fmt.Errorf("invalid sweep schedule %q", schedule)
	}
	return &Service{
		storage:      mgr,
		gron:         g,
		schedule:     schedule,
		daysInactive: daysInactive,
		minEntries:   minEntries,
	}, nil
}

// Reconfigure swaps the schedule and thresholds. Used by config hot reload.
func (s *Service) Reconfigure(schedule string, daysInactive, minEntries int) error {
	if !s.gron.IsValid(schedule) {
		return fmt.Errorf("invalid sweep schedule %q", schedule)
	}
	s.mu.Lock()
	s.schedule = schedule
	s.daysInactive = daysInactive
	s.minEntries = minEntries
	s.mu.Unlock()
	slog.Info("sweeper reconfigured", "schedule", schedule, "days_inactive", daysInactive)
	return nil
}

// Start begins the scheduling loop. The schedule is checked once a minute.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	schedule := s.schedule
	s.mu.Unlock()

	go s.runLoop(ctx, stop)
	slog.Info("sweeper started", "schedule", schedule)
}

// Stop halts the scheduling loop.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopChan)
	s.running = false
	slog.Info("sweeper stopped")
}

func (s *Service) runLoop(ctx context.Context, stop chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.mu.Lock()
			schedule := s.schedule
			s.mu.Unlock()

			due, err := s.gron.IsDue(schedule, now)
			if err != nil || !due {
				continue
			}
			s.Sweep(ctx)
		}
	}
}

// Sweep archives every eligible slot once. Failures on individual slots are
// logged and do not stop the pass.
func (s *Service) Sweep(ctx context.Context) (archived int) {
	s.mu.Lock()
	days, minEntries := s.daysInactive, s.minEntries
	s.mu.Unlock()

	candidates, err := s.storage.ArchiveCandidates(ctx, days, minEntries)
	if err != nil {
		slog.Error("sweep candidate scan failed", "error", err)
		return 0
	}

	for _, c := range candidates {
		reason := fmt.Sprintf("auto-archived after %d days of inactivity", c.DaysInactive)
		if _, err := s.storage.ArchiveSlot(ctx, c.SlotName, reason); err != nil {
			slog.Warn("sweep failed to archive slot", "slot", c.SlotName, "error", err)
			continue
		}
		archived++
	}

	if archived > 0 {
		slog.Info("sweep complete", "archived", archived, "candidates", len(candidates))
	}
	return archived
}
