package simulation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/vitals/internal/game/entity"
)

// Store persists entity snapshots.
//
//go:generate go tool mockgen -destination=mocks/store_mock.go -package=mocks . Store
type Store interface {
	// Save inserts or replaces the snapshot for snap.ID, effects included.
	Save(ctx context.Context, snap entity.Snapshot) error
	// Load returns the snapshot for id, or an error wrapping storage.ErrSnapshotNotFound.
	Load(ctx context.Context, id string) (entity.Snapshot, error)
	// List returns every stored snapshot ordered by ID.
	List(ctx context.Context) ([]entity.Snapshot, error)
	// Delete removes the snapshot for id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
}

// Saver moves the world to and from a Store.
type Saver struct {
	store       Store
	world       *World
	concurrency int
	logger      *zap.Logger
}

// NewSaver creates a Saver writing at most concurrency snapshots at once.
//
// Precondition: store, world and logger must be non-nil; concurrency >= 1.
func NewSaver(store Store, world *World, concurrency int, logger *zap.Logger) *Saver {
	if store == nil || world == nil || logger == nil {
		panic("simulation: NewSaver requires non-nil store, world and logger")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Saver{store: store, world: world, concurrency: concurrency, logger: logger}
}

// SaveAll snapshots every entity and writes the snapshots concurrently.
//
// Postcondition: returns the number saved, or the first write error.
func (s *Saver) SaveAll(ctx context.Context) (int, error) {
	start := time.Now()
	snaps := s.world.Snapshots()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, snap := range snaps {
		g.Go(func() error {
			if err := s.store.Save(gctx, snap); err != nil {
				return fmt.Errorf("saving %s: %w", snap.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("save failed", zap.Error(err))
		return 0, err
	}
	s.logger.Info("world saved", zap.Int("entities", len(snaps)), zap.Duration("elapsed", time.Since(start)))
	return len(snaps), nil
}

// LoadAll resumes every stored snapshot into the world.
//
// Postcondition: returns the number of entities spawned, or the first error.
func (s *Saver) LoadAll(ctx context.Context) (int, error) {
	snaps, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing snapshots: %w", err)
	}
	for _, snap := range snaps {
		e, err := s.world.Runner().Resume(snap)
		if err != nil {
			return 0, err
		}
		if err := s.world.Spawn(e); err != nil {
			return 0, fmt.Errorf("spawning %s: %w", snap.ID, err)
		}
	}
	s.logger.Info("world loaded", zap.Int("entities", len(snaps)))
	return len(snaps), nil
}

// Run saves every interval until ctx is cancelled. Save errors are logged and
// the next interval retries.
func (s *Saver) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.SaveAll(ctx)
		}
	}
}
