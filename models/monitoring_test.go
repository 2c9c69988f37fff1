package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthorizationCapabilityLadder(t *testing.T) {
	tests := []struct {
		name          string
		capability    AuthorizationCapability
		canMonitor    bool
		canBackground bool
	}{
		{"not determined", CapabilityNotDetermined, false, false},
		{"denied", CapabilityDenied, false, false},
		{"foreground only", CapabilityForegroundOnly, true, false},
		{"full access", CapabilityFullAccess, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.canMonitor, tt.capability.CanMonitor())
			assert.Equal(t, tt.canBackground, tt.capability.CanMonitorBackground())
		})
	}
}

func TestParametersForPanicIsTightest(t *testing.T) {
	panicParams := ParametersFor(IntensityPanic)

	for _, intensity := range []MonitoringIntensity{IntensityActive, IntensityCheckIn, IntensityOff} {
		params := ParametersFor(intensity)
		assert.Less(t, panicParams.AccuracyMeters, params.AccuracyMeters,
			"panic accuracy must beat %s", intensity)
		assert.Less(t, panicParams.DistanceFilterMeters, params.DistanceFilterMeters,
			"panic distance filter must beat %s", intensity)
	}

	assert.Equal(t, PowerProfileMaximum, panicParams.PowerProfile)
}

func TestParametersForOrdering(t *testing.T) {
	// Sampling loosens monotonically as intensity drops.
	ordered := []MonitoringIntensity{IntensityPanic, IntensityActive, IntensityCheckIn, IntensityOff}
	for i := 1; i < len(ordered); i++ {
		tighter := ParametersFor(ordered[i-1])
		looser := ParametersFor(ordered[i])
		assert.LessOrEqual(t, tighter.AccuracyMeters, looser.AccuracyMeters)
		assert.LessOrEqual(t, tighter.DistanceFilterMeters, looser.DistanceFilterMeters)
	}
}

func TestSessionStatusArmed(t *testing.T) {
	assert.False(t, SessionIdle.Armed())
	assert.True(t, SessionMonitoring.Armed())
	assert.True(t, SessionPanic.Armed())
	assert.False(t, SessionResolved.Armed())
}

func TestAppendLocationEvictsOldest(t *testing.T) {
	session := NewMonitoringSession()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	total := LocationHistoryCap + 5
	for i := 0; i < total; i++ {
		session.AppendLocation(LocationSample{
			Latitude:  40.0 + float64(i)*0.0001,
			Longitude: -73.0,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	// One eviction pass: cap exceeded once at 1001 samples, dropping the
	// oldest 10%, then four more appends.
	evicted := int(float64(LocationHistoryCap) * LocationHistoryEvictFraction)
	wantLen := LocationHistoryCap + 1 - evicted + 4
	assert.Len(t, session.LocationHistory, wantLen)

	// Oldest surviving sample is the first not evicted.
	first := session.LocationHistory[0]
	assert.Equal(t, base.Add(time.Duration(evicted)*time.Second), first.Timestamp)

	// Chronological order preserved throughout.
	for i := 1; i < len(session.LocationHistory); i++ {
		assert.True(t, session.LocationHistory[i].Timestamp.After(session.LocationHistory[i-1].Timestamp),
			fmt.Sprintf("history out of order at index %d", i))
	}

	// Newest sample is the last appended and mirrored in LastKnownLocation.
	last := session.LocationHistory[len(session.LocationHistory)-1]
	assert.Equal(t, base.Add(time.Duration(total-1)*time.Second), last.Timestamp)
	assert.NotNil(t, session.LastKnownLocation)
	assert.Equal(t, last, *session.LastKnownLocation)
}

func TestNewMonitoringSessionStartsIdle(t *testing.T) {
	session := NewMonitoringSession()
	assert.Equal(t, SessionIdle, session.Status)
	assert.Empty(t, session.LocationHistory)
	assert.Nil(t, session.LastKnownLocation)
	assert.Nil(t, session.EscalationDeadline)
}
