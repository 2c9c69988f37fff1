package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSameFix(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fix := LocationSample{Latitude: 40.758, Longitude: -73.9855, Accuracy: 10, Timestamp: at}

	tests := []struct {
		name  string
		other LocationSample
		want  bool
	}{
		{
			name:  "identical fix",
			other: LocationSample{Latitude: 40.758, Longitude: -73.9855, Accuracy: 10, Timestamp: at},
			want:  true,
		},
		{
			name: "same fix different accuracy",
			// The redundant source pair can disagree on accuracy for the
			// same underlying fix.
			other: LocationSample{Latitude: 40.758, Longitude: -73.9855, Accuracy: 25, Timestamp: at},
			want:  true,
		},
		{
			name:  "different timestamp",
			other: LocationSample{Latitude: 40.758, Longitude: -73.9855, Timestamp: at.Add(time.Second)},
			want:  false,
		},
		{
			name:  "different coordinates",
			other: LocationSample{Latitude: 40.759, Longitude: -73.9855, Timestamp: at},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fix.SameFix(tt.other))
		})
	}
}

func TestDescribe(t *testing.T) {
	fix := LocationSample{Latitude: 40.758, Longitude: -73.9855, Accuracy: 12.4}
	assert.Equal(t, "40.75800, -73.98550 (±12m)", fix.Describe())
}
