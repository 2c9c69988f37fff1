package models

import (
	"time"
)

// AuthorizationCapability is the ordered capability ladder derived from the
// platform's location permission state. Only FullAccess permits background
// monitoring; values are never self-assigned, they change only when the
// platform delivers a permission callback.
type AuthorizationCapability int

const (
	CapabilityNotDetermined AuthorizationCapability = iota
	CapabilityDenied
	CapabilityForegroundOnly
	CapabilityFullAccess
)

func (c AuthorizationCapability) String() string {
	switch c {
	case CapabilityNotDetermined:
		return "not_determined"
	case CapabilityDenied:
		return "denied"
	case CapabilityForegroundOnly:
		return "foreground_only"
	case CapabilityFullAccess:
		return "full_access"
	default:
		return "unknown"
	}
}

// CanMonitor reports whether any location monitoring may start at all.
func (c AuthorizationCapability) CanMonitor() bool {
	return c >= CapabilityForegroundOnly
}

// CanMonitorBackground reports whether monitoring may continue while the
// process has no foreground execution time.
func (c AuthorizationCapability) CanMonitorBackground() bool {
	return c == CapabilityFullAccess
}

// MonitoringIntensity selects how aggressively locations are sampled.
type MonitoringIntensity string

const (
	IntensityOff     MonitoringIntensity = "off"
	IntensityCheckIn MonitoringIntensity = "check_in"
	IntensityActive  MonitoringIntensity = "active"
	IntensityPanic   MonitoringIntensity = "panic"
)

// MonitoringParameters is the immutable tuning triple a MonitoringIntensity
// maps to.
type MonitoringParameters struct {
	AccuracyMeters       float64      `json:"accuracyMeters"`
	DistanceFilterMeters float64      `json:"distanceFilterMeters"`
	PowerProfile         PowerProfile `json:"powerProfile"`
}

type PowerProfile string

const (
	PowerProfileMinimal  PowerProfile = "minimal"
	PowerProfileBalanced PowerProfile = "balanced"
	PowerProfileHigh     PowerProfile = "high"
	PowerProfileMaximum  PowerProfile = "maximum"
)

// ParametersFor maps a monitoring intensity to its tracking parameters.
// Panic always returns the tightest accuracy and distance filter of all
// intensities: during an active emergency, not losing the subject wins over
// battery life.
func ParametersFor(intensity MonitoringIntensity) MonitoringParameters {
	switch intensity {
	case IntensityPanic:
		return MonitoringParameters{
			AccuracyMeters:       5,
			DistanceFilterMeters: 5,
			PowerProfile:         PowerProfileMaximum,
		}
	case IntensityActive:
		return MonitoringParameters{
			AccuracyMeters:       25,
			DistanceFilterMeters: 25,
			PowerProfile:         PowerProfileHigh,
		}
	case IntensityCheckIn:
		return MonitoringParameters{
			AccuracyMeters:       100,
			DistanceFilterMeters: 250,
			PowerProfile:         PowerProfileBalanced,
		}
	default: // IntensityOff
		return MonitoringParameters{
			AccuracyMeters:       1000,
			DistanceFilterMeters: 1000,
			PowerProfile:         PowerProfileMinimal,
		}
	}
}

// SessionStatus is the panic state machine's externally visible state.
type SessionStatus string

const (
	SessionIdle       SessionStatus = "idle"
	SessionMonitoring SessionStatus = "monitoring"
	SessionPanic      SessionStatus = "panic"
	SessionResolved   SessionStatus = "resolved"
)

// Armed reports whether the session currently owns a live location stream.
func (s SessionStatus) Armed() bool {
	return s == SessionMonitoring || s == SessionPanic
}

const (
	// LocationHistoryCap bounds the in-memory trail of a session.
	LocationHistoryCap = 1000
	// LocationHistoryEvictFraction of the oldest samples removed on overflow.
	LocationHistoryEvictFraction = 0.10
)

// MonitoringSession is the live state owned by the panic state machine.
// It is mutated only by the state machine, never by UI surfaces.
type MonitoringSession struct {
	Status             SessionStatus       `json:"status"`
	StartedAt          time.Time           `json:"startedAt"`
	Intensity          MonitoringIntensity `json:"intensity"`
	LocationHistory    []LocationSample    `json:"locationHistory"`
	LastKnownLocation  *LocationSample     `json:"lastKnownLocation,omitempty"`
	EscalationDeadline *time.Time          `json:"escalationDeadline,omitempty"`
	AlertID            string              `json:"alertId,omitempty"`
	Degraded           bool                `json:"degraded"`
	LastError          string              `json:"lastError,omitempty"`
}

// NewMonitoringSession returns an idle session with an empty history.
func NewMonitoringSession() *MonitoringSession {
	return &MonitoringSession{
		Status:          SessionIdle,
		LocationHistory: make([]LocationSample, 0, LocationHistoryCap),
	}
}

// AppendLocation records a sample, evicting the oldest 10% of the history
// once the cap is exceeded. Chronological order of the remainder is
// preserved.
func (ms *MonitoringSession) AppendLocation(sample LocationSample) {
	ms.LocationHistory = append(ms.LocationHistory, sample)
	ms.LastKnownLocation = &sample

	if len(ms.LocationHistory) > LocationHistoryCap {
		evict := int(float64(LocationHistoryCap) * LocationHistoryEvictFraction)
		if evict < 1 {
			evict = 1
		}
		remaining := len(ms.LocationHistory) - evict
		kept := make([]LocationSample, remaining, LocationHistoryCap)
		copy(kept, ms.LocationHistory[evict:])
		ms.LocationHistory = kept
	}
}
