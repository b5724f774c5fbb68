package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/filecrate/filecrate/internal/blob"
	"github.com/filecrate/filecrate/internal/store"
)

// orphanGracePeriod is how old a blob must be before housekeeping will treat
// the absence of a metadata row as proof of orphanhood rather than an upload
// still in flight. Blob ids carry their creation time, so age is free.
const orphanGracePeriod = time.Hour

// HousekeepingService periodically reconciles the blob directory against
// file metadata: stale temp files from crashed uploads are deleted, and
// committed blobs whose metadata insert never landed are removed.
type HousekeepingService struct {
	Store    store.Store
	Blobs    *blob.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the background sweeper. An interval of 0 or
// less defaults to 1 hour.
func NewHousekeepingService(st store.Store, blobs *blob.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Blobs:    blobs,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one reconciliation pass. The two halves are independent;
// a failure in one does not stop the other.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	if removed, err := s.Blobs.SweepTemp(orphanGracePeriod); err != nil {
		s.Logger.Error("temp sweep failed", slog.Any("err", err))
	} else if removed > 0 {
		s.Logger.Info("removed stale temp files", slog.Int("count", removed))
	}

	if err := s.sweepOrphans(ctx); err != nil {
		s.Logger.Error("orphan sweep failed", slog.Any("err", err))
	}
}

func (s *HousekeepingService) sweepOrphans(ctx context.Context) error {
	known, err := s.Store.Files().ListAllIDs(ctx)
	if err != nil {
		return err
	}
	knownSet := make(map[string]struct{}, len(known))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}

	onDisk, err := s.Blobs.ListIDs()
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-orphanGracePeriod)
	removed := 0
	for _, id := range onDisk {
		if _, ok := knownSet[id.String()]; ok {
			continue
		}
		if id.Time().After(cutoff) {
			// Too young to condemn; its metadata insert may still be
			// in flight.
			continue
		}
		if err := s.Blobs.Remove(id); err == nil {
			removed++
		}
	}

	if removed > 0 {
		s.Logger.Info("removed orphaned blobs", slog.Int("count", removed))
	}
	return nil
}
