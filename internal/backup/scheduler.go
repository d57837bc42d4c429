package backup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/panelkit/internal/component"
	"github.com/alfredjeanlab/panelkit/internal/store"
)

// Catalog resolves registered component names to definitions.
type Catalog interface {
	Get(name string) (*component.Definition, bool)
}

// Scheduler periodically snapshots every installed component and mirrors
// the snapshots to the configured destinations.
type Scheduler struct {
	store         store.Store
	catalog       Catalog
	componentsDir string
	destinations  []Destination
	interval      time.Duration
	logger        *slog.Logger
	now           func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that snapshots at the given interval. A
// non-positive interval takes a single snapshot on Start. A nil logger
// discards output.
func NewScheduler(s store.Store, catalog Catalog, componentsDir string, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		store:         s,
		catalog:       catalog,
		componentsDir: componentsDir,
		destinations:  destinations,
		interval:      interval,
		logger:        logger,
		now:           time.Now,
	}
}

// Start begins periodic snapshots. It runs one immediately, then on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current snapshot (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.SnapshotAll(ctx)
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SnapshotAll(ctx)
		}
	}
}

// SnapshotAll snapshots each registered component once and returns the
// number of snapshots written.
func (s *Scheduler) SnapshotAll(ctx context.Context) int {
	comps, err := s.store.ListComponents(ctx)
	if err != nil {
		s.logger.Error("snapshot: list components failed", "err", err)
		return 0
	}

	written := 0
	for _, c := range comps {
		def, ok := s.catalog.Get(c.Name)
		if !ok {
			s.logger.Warn("snapshot: no definition for installed component", "component", c.Name)
			continue
		}
		res := write(ctx, s.store, def, s.componentsDir, SnapshotPrefix, s.now())
		if !res.Success {
			s.logger.Error("snapshot failed", "component", c.Name, "err", res.Error)
			continue
		}
		for _, w := range Mirror(ctx, c.Name, res.Path, s.destinations) {
			s.logger.Warn("snapshot mirror failed", "component", c.Name, "warning", w)
		}
		written++
	}

	s.logger.Info("snapshot completed", "components", written, "destinations", len(s.destinations))
	return written
}
