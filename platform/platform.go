// Package platform is the boundary to the mobile OS: location hardware,
// permission dialogs, background execution and battery state. Everything
// above it depends only on these interfaces.
package platform

import (
	"context"

	"aegis/models"
)

// LocationDelegate receives the legacy per-batch callbacks from the OS
// location subsystem. Implementations are non-owning adapters that forward
// into the stream engine; they hold no state beyond forwarding targets.
type LocationDelegate interface {
	OnSamples(samples []models.LocationSample)
	OnAuthorizationChanged(capability models.AuthorizationCapability)
	OnError(err error)
}

// LocationProvider abstracts the platform location subsystem. Both update
// paths are kept live at once as redundancy against platform API
// inconsistencies: the modern continuous channel and the legacy delegate
// callbacks deliver the same fixes.
type LocationProvider interface {
	// Updates opens the continuous update channel tuned by params. The
	// channel closes when ctx is cancelled or Stop is called.
	Updates(ctx context.Context, params models.MonitoringParameters) (<-chan models.LocationSample, error)

	// StartLegacyUpdates begins delegate-callback delivery with the same
	// tuning. StopLegacyUpdates releases the subscription.
	StartLegacyUpdates(delegate LocationDelegate, params models.MonitoringParameters) error
	StopLegacyUpdates()

	// ServicesEnabled reports whether location services are on at the OS
	// level at all.
	ServicesEnabled() bool
}

// PermissionRequester triggers the OS permission dialogs. Results arrive
// asynchronously through the delegate's OnAuthorizationChanged, never as a
// return value.
type PermissionRequester interface {
	RequestWhenInUse()
	RequestAlways()
}

// ForegroundGranter models the OS facility a widget extension uses to
// request foreground execution time before arming background persistence.
type ForegroundGranter interface {
	// RequestForeground blocks until the OS grants foreground execution
	// time or refuses. The returned release func reduces the process back
	// to background priority and must always be called.
	RequestForeground(ctx context.Context) (release func(), err error)
}

// BatteryMonitor reads the device battery level (0-100).
type BatteryMonitor interface {
	Level() int
}

// BackgroundConfig is the application's declared background-capability
// configuration. Arming background persistence is skipped with a warning if
// "location" is missing.
type BackgroundConfig struct {
	Modes []string
}

// HasLocationMode reports whether background location execution is declared.
func (bc BackgroundConfig) HasLocationMode() bool {
	for _, mode := range bc.Modes {
		if mode == "location" {
			return true
		}
	}
	return false
}
