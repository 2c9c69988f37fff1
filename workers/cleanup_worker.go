package workers

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"aegis/repositories"
)

// CleanupWorker prunes location trail entries past the retention window.
// The TTL index on the collection is the primary guard; this worker is the
// belt for deployments where the index was dropped or retention shrank.
type CleanupWorker struct {
	locationRepo  *repositories.LocationRepository
	retentionDays int
	interval      time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
}

func NewCleanupWorker(locationRepo *repositories.LocationRepository, retentionDays int) *CleanupWorker {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupWorker{
		locationRepo:  locationRepo,
		retentionDays: retentionDays,
		interval:      6 * time.Hour,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (cw *CleanupWorker) Start() {
	cw.mu.Lock()
	if cw.isRunning {
		cw.mu.Unlock()
		return
	}
	cw.isRunning = true
	cw.mu.Unlock()

	cw.wg.Add(1)
	go cw.run()
	logrus.Info("Cleanup worker started")
}

func (cw *CleanupWorker) Stop() {
	cw.mu.Lock()
	if !cw.isRunning {
		cw.mu.Unlock()
		return
	}
	cw.isRunning = false
	cw.mu.Unlock()

	cw.cancel()
	cw.wg.Wait()
	logrus.Info("Cleanup worker stopped")
}

func (cw *CleanupWorker) run() {
	defer cw.wg.Done()

	ticker := time.NewTicker(cw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-cw.ctx.Done():
			return
		case <-ticker.C:
			cw.pruneTrail()
		}
	}
}

func (cw *CleanupWorker) pruneTrail() {
	ctx, cancel := context.WithTimeout(cw.ctx, 2*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -cw.retentionDays)
	deleted, err := cw.locationRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Warn("Trail retention prune failed")
		return
	}
	if deleted > 0 {
		logrus.WithField("deleted", deleted).Info("Pruned expired trail entries")
	}
}
