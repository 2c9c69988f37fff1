package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"aegis/models"
	"aegis/platform"
	"aegis/utils"
)

// StreamEngine owns the continuous location subscription. It runs two
// concurrent sources against the same processing path: the modern
// continuous channel and the legacy delegate callbacks, as redundancy
// against platform API inconsistencies. Duplicate fixes from the double
// delivery are suppressed at the emit boundary by timestamp+coordinate
// equality.
type StreamEngine struct {
	provider platform.LocationProvider
	tracker  *platform.AuthorizationTracker

	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	lastFix     *models.LocationSample
	lastErr     error
	subscribers map[int]chan models.LocationSample
	nextSubID   int
	wg          sync.WaitGroup
}

func NewStreamEngine(provider platform.LocationProvider, tracker *platform.AuthorizationTracker) *StreamEngine {
	return &StreamEngine{
		provider:    provider,
		tracker:     tracker,
		subscribers: make(map[int]chan models.LocationSample),
	}
}

// delegateAdapter bridges the legacy platform callbacks into the engine.
// Non-owning and stateless beyond its forwarding targets.
type delegateAdapter struct {
	engine  *StreamEngine
	tracker *platform.AuthorizationTracker
}

func (da delegateAdapter) OnSamples(samples []models.LocationSample) {
	for _, sample := range samples {
		da.engine.ingest(sample)
	}
}

func (da delegateAdapter) OnAuthorizationChanged(capability models.AuthorizationCapability) {
	da.tracker.OnAuthorizationChanged(capability)
}

func (da delegateAdapter) OnError(err error) {
	da.engine.recordError(err)
}

// Start begins producing samples at the given intensity. The stream is not
// restartable without Stop; starting an already-running engine is a no-op.
func (se *StreamEngine) Start(intensity models.MonitoringIntensity) error {
	se.mu.Lock()
	if se.running {
		se.mu.Unlock()
		return nil
	}

	params := models.ParametersFor(intensity)

	ctx, cancel := context.WithCancel(context.Background())
	updates, err := se.provider.Updates(ctx, params)
	if err != nil {
		cancel()
		se.mu.Unlock()
		return err
	}

	se.running = true
	se.cancel = cancel
	se.lastFix = nil
	se.lastErr = nil
	se.mu.Unlock()

	if err := se.provider.StartLegacyUpdates(delegateAdapter{engine: se, tracker: se.tracker}, params); err != nil {
		// The continuous channel alone still carries the session.
		logrus.WithError(err).Warn("Legacy update source unavailable, running single-sourced")
	}

	se.wg.Add(1)
	go se.pump(ctx, updates)

	logrus.WithField("intensity", string(intensity)).Info("Location stream started")
	return nil
}

// pump drains the continuous channel. The liveness check happens on every
// resumption: once ctx is cancelled the loop exits before processing
// another sample, so no subscription outlives the logical session.
func (se *StreamEngine) pump(ctx context.Context, updates <-chan models.LocationSample) {
	defer se.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-updates:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			se.ingest(sample)
		}
	}
}

// ingest is the single processing path both sources feed.
func (se *StreamEngine) ingest(sample models.LocationSample) {
	se.mu.Lock()
	if !se.running {
		se.mu.Unlock()
		return
	}
	if se.lastFix != nil && se.lastFix.SameFix(sample) {
		// Double delivery from the redundant source pair.
		se.mu.Unlock()
		return
	}
	fix := sample
	se.lastFix = &fix

	// Send under the lock. The sends are non-blocking, and an unsubscribe
	// closes the channel under this same lock; sending after unlocking
	// could land on a just-closed channel.
	for _, ch := range se.subscribers {
		select {
		case ch <- sample:
		default:
			logrus.Debug("Dropping location sample for slow subscriber")
		}
	}
	se.mu.Unlock()
}

// recordError keeps the error for diagnostics without ending the session.
// Intermittent signal loss is expected and must never abort an emergency in
// progress.
func (se *StreamEngine) recordError(err error) {
	if err == nil {
		return
	}
	se.mu.Lock()
	se.lastErr = utils.NewTransientSignalError(err)
	se.mu.Unlock()
	logrus.WithError(err).Warn("Location source error, session continues")
}

// Stop terminates the stream deterministically and releases both platform
// subscriptions. Safe to call when not running.
func (se *StreamEngine) Stop() {
	se.mu.Lock()
	if !se.running {
		se.mu.Unlock()
		return
	}
	se.running = false
	cancel := se.cancel
	se.cancel = nil
	se.mu.Unlock()

	cancel()
	se.provider.StopLegacyUpdates()
	se.wg.Wait()

	logrus.Info("Location stream stopped")
}

// Subscribe registers a sample consumer. The returned func unsubscribes and
// closes the channel.
func (se *StreamEngine) Subscribe(buffer int) (<-chan models.LocationSample, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan models.LocationSample, buffer)

	se.mu.Lock()
	id := se.nextSubID
	se.nextSubID++
	se.subscribers[id] = ch
	se.mu.Unlock()

	cancel := func() {
		se.mu.Lock()
		if _, ok := se.subscribers[id]; ok {
			delete(se.subscribers, id)
			close(ch)
		}
		se.mu.Unlock()
	}
	return ch, cancel
}

// Running reports whether the engine currently owns a live subscription.
func (se *StreamEngine) Running() bool {
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.running
}

// LastError returns the most recent recorded source error, if any.
func (se *StreamEngine) LastError() error {
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.lastErr
}
