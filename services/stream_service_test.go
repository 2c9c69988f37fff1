package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegis/models"
	"aegis/platform"
	"aegis/utils"
)

func newTestEngine(t *testing.T) (*StreamEngine, *fakeProvider) {
	t.Helper()
	provider := newFakeProvider()
	tracker := platform.NewAuthorizationTracker(grantAll{})
	tracker.OnAuthorizationChanged(models.CapabilityFullAccess)
	return NewStreamEngine(provider, tracker), provider
}

func sampleAt(sec int) models.LocationSample {
	return models.LocationSample{
		Latitude:  40.758,
		Longitude: -73.9855,
		Accuracy:  10,
		Timestamp: time.Date(2026, 3, 1, 12, 0, sec, 0, time.UTC),
	}
}

func collect(ch <-chan models.LocationSample, max int, wait time.Duration) []models.LocationSample {
	var out []models.LocationSample
	deadline := time.After(wait)
	for len(out) < max {
		select {
		case sample, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, sample)
		case <-deadline:
			return out
		}
	}
	return out
}

func TestStreamEngineDeduplicatesDoubleDelivery(t *testing.T) {
	engine, provider := newTestEngine(t)
	require.NoError(t, engine.Start(models.IntensityActive))
	defer engine.Stop()

	ch, cancel := engine.Subscribe(16)
	defer cancel()

	// The same fix arrives on both sources; a distinct one follows.
	provider.emitContinuous(sampleAt(1))
	time.Sleep(20 * time.Millisecond)
	provider.emitLegacy(sampleAt(1))
	provider.emitLegacy(sampleAt(2))

	got := collect(ch, 3, 200*time.Millisecond)
	require.Len(t, got, 2)
	assert.Equal(t, sampleAt(1).Timestamp, got[0].Timestamp)
	assert.Equal(t, sampleAt(2).Timestamp, got[1].Timestamp)
}

func TestStreamEngineBothSourcesFeedOnePath(t *testing.T) {
	engine, provider := newTestEngine(t)
	require.NoError(t, engine.Start(models.IntensityPanic))
	defer engine.Stop()

	ch, cancel := engine.Subscribe(16)
	defer cancel()

	provider.emitLegacy(sampleAt(1))
	provider.emitContinuous(sampleAt(2))
	provider.emitLegacy(sampleAt(3))

	got := collect(ch, 3, 300*time.Millisecond)
	assert.Len(t, got, 3)
}

func TestStreamEngineStartWhileRunningIsNoop(t *testing.T) {
	engine, _ := newTestEngine(t)
	require.NoError(t, engine.Start(models.IntensityActive))
	defer engine.Stop()

	assert.NoError(t, engine.Start(models.IntensityPanic))
	assert.True(t, engine.Running())
}

func TestStreamEngineStartFailsWhenServicesDisabled(t *testing.T) {
	engine, provider := newTestEngine(t)
	provider.enabled = false

	err := engine.Start(models.IntensityActive)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.ErrCodeLocationServicesDisabled))
	assert.False(t, engine.Running())
}

func TestStreamEngineLegacyFailureRunsSingleSourced(t *testing.T) {
	engine, provider := newTestEngine(t)
	provider.legacyErr = errors.New("delegate unavailable")

	require.NoError(t, engine.Start(models.IntensityActive))
	defer engine.Stop()

	ch, cancel := engine.Subscribe(16)
	defer cancel()

	provider.emitContinuous(sampleAt(1))
	got := collect(ch, 1, 200*time.Millisecond)
	assert.Len(t, got, 1)
}

func TestStreamEngineErrorsDoNotStopStream(t *testing.T) {
	engine, provider := newTestEngine(t)
	require.NoError(t, engine.Start(models.IntensityActive))
	defer engine.Stop()

	ch, cancel := engine.Subscribe(16)
	defer cancel()

	provider.emitLegacy(sampleAt(1))
	provider.legacyError(errors.New("signal lost"))
	provider.emitLegacy(sampleAt(2))

	got := collect(ch, 2, 300*time.Millisecond)
	assert.Len(t, got, 2)
	assert.True(t, engine.Running())

	lastErr := engine.LastError()
	require.Error(t, lastErr)
	assert.True(t, utils.IsCode(lastErr, utils.ErrCodeTransientSignal))
}

func TestStreamEngineStopReleasesBothSources(t *testing.T) {
	engine, provider := newTestEngine(t)
	require.NoError(t, engine.Start(models.IntensityActive))

	engine.Stop()

	assert.False(t, engine.Running())
	provider.mu.Lock()
	stopped := provider.stopped
	provider.mu.Unlock()
	assert.Equal(t, 1, stopped)

	// Samples arriving after stop are discarded, not delivered.
	ch, cancel := engine.Subscribe(4)
	defer cancel()
	engine.ingest(sampleAt(9))
	got := collect(ch, 1, 100*time.Millisecond)
	assert.Empty(t, got)
}

func TestStreamEngineSubscribeCancelCloses(t *testing.T) {
	engine, _ := newTestEngine(t)
	ch, cancel := engine.Subscribe(4)

	cancel()
	_, open := <-ch
	assert.False(t, open)

	// Double cancel is safe.
	cancel()
}

func TestStreamEngineUnsubscribeDuringDeliveryIsSafe(t *testing.T) {
	engine, provider := newTestEngine(t)
	require.NoError(t, engine.Start(models.IntensityActive))
	defer engine.Stop()

	// Hammer the ingest path from the legacy source while churning
	// subscriptions. A send must never land on a just-closed channel.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			provider.emitLegacy(sampleAt(i))
		}
	}()

	for i := 0; i < 500; i++ {
		_, cancel := engine.Subscribe(1)
		cancel()
	}
	<-done
}
