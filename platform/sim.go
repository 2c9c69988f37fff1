package platform

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"aegis/models"
	"aegis/utils"
)

// SimulatedProvider is an in-process location driver used in development
// mode and in tests. It drives both the continuous channel and the legacy
// delegate path from the same generated fixes, mirroring the double
// delivery real devices exhibit.
type SimulatedProvider struct {
	Origin   models.LocationSample
	Interval time.Duration

	mu             sync.Mutex
	legacyDelegate LocationDelegate
	legacyCancel   context.CancelFunc
	enabled        bool
}

func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{
		Origin: models.LocationSample{
			Latitude:  40.7580,
			Longitude: -73.9855,
			Accuracy:  10,
		},
		Interval: time.Second,
		enabled:  true,
	}
}

func (sp *SimulatedProvider) Updates(ctx context.Context, params models.MonitoringParameters) (<-chan models.LocationSample, error) {
	if !sp.ServicesEnabled() {
		return nil, utils.NewLocationServicesDisabledError()
	}

	out := make(chan models.LocationSample)
	go func() {
		defer close(out)
		ticker := time.NewTicker(sp.Interval)
		defer ticker.Stop()

		current := sp.Origin
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				current = sp.drift(current, now, params)
				select {
				case out <- current:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (sp *SimulatedProvider) StartLegacyUpdates(delegate LocationDelegate, params models.MonitoringParameters) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if sp.legacyCancel != nil {
		sp.legacyCancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	sp.legacyDelegate = delegate
	sp.legacyCancel = cancel

	go func() {
		ticker := time.NewTicker(sp.Interval)
		defer ticker.Stop()

		current := sp.Origin
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				current = sp.drift(current, now, params)
				delegate.OnSamples([]models.LocationSample{current})
			}
		}
	}()
	return nil
}

func (sp *SimulatedProvider) StopLegacyUpdates() {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.legacyCancel != nil {
		sp.legacyCancel()
		sp.legacyCancel = nil
		sp.legacyDelegate = nil
	}
}

func (sp *SimulatedProvider) ServicesEnabled() bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.enabled
}

// SetServicesEnabled toggles the simulated OS location switch.
func (sp *SimulatedProvider) SetServicesEnabled(enabled bool) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.enabled = enabled
}

func (sp *SimulatedProvider) drift(from models.LocationSample, at time.Time, params models.MonitoringParameters) models.LocationSample {
	// Random walk scaled by the distance filter so tighter tracking sees
	// smaller, more frequent movements.
	step := params.DistanceFilterMeters / 111000.0
	return models.LocationSample{
		Latitude:  from.Latitude + (rand.Float64()-0.5)*step,
		Longitude: from.Longitude + (rand.Float64()-0.5)*step,
		Accuracy:  params.AccuracyMeters,
		Speed:     rand.Float64() * 2,
		Bearing:   rand.Float64() * 360,
		Timestamp: at,
	}
}

// SimulatedPermissions answers permission dialogs with a scripted result
// after a short delay, the way a user tapping the dialog would.
type SimulatedPermissions struct {
	Tracker      *AuthorizationTracker
	GrantWhenUse models.AuthorizationCapability
	GrantAlways  models.AuthorizationCapability
	Delay        time.Duration
}

func (sm *SimulatedPermissions) RequestWhenInUse() {
	go func() {
		time.Sleep(sm.Delay)
		sm.Tracker.OnAuthorizationChanged(sm.GrantWhenUse)
	}()
}

func (sm *SimulatedPermissions) RequestAlways() {
	go func() {
		time.Sleep(sm.Delay)
		sm.Tracker.OnAuthorizationChanged(sm.GrantAlways)
	}()
}

// SimulatedScheduler hands out keep-alive tokens unconditionally.
type SimulatedScheduler struct{}

type simKeepAlive struct{ name string }

func (s simKeepAlive) End() {
	logrus.WithField("name", s.name).Debug("Keep-alive session ended")
}

func (ss *SimulatedScheduler) BeginKeepAlive(name string) (KeepAliveSession, error) {
	return simKeepAlive{name: name}, nil
}

// SimulatedGranter grants foreground time immediately.
type SimulatedGranter struct{}

func (sg *SimulatedGranter) RequestForeground(ctx context.Context) (func(), error) {
	return func() {}, nil
}

// SimulatedBattery reports a fixed battery level.
type SimulatedBattery struct {
	Percent int
}

func (sb *SimulatedBattery) Level() int {
	if sb.Percent == 0 {
		return 100
	}
	return sb.Percent
}
