// models/location.go
package models

import (
	"fmt"
	"time"
)

// LocationSample is a single fix produced by the platform location
// subsystem. Immutable once captured.
type LocationSample struct {
	Latitude  float64   `json:"latitude" bson:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64   `json:"longitude" bson:"longitude" validate:"gte=-180,lte=180"`
	Accuracy  float64   `json:"accuracy" bson:"accuracy"` // meters
	Altitude  float64   `json:"altitude" bson:"altitude"` // meters
	Speed     float64   `json:"speed" bson:"speed"`       // m/s
	Bearing   float64   `json:"bearing" bson:"bearing"`   // degrees 0-360
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// SameFix reports whether two samples describe the same platform fix.
// The continuous stream and the legacy delegate both deliver the same fixes;
// history appends use this to suppress the duplicate.
func (ls LocationSample) SameFix(other LocationSample) bool {
	return ls.Timestamp.Equal(other.Timestamp) &&
		ls.Latitude == other.Latitude &&
		ls.Longitude == other.Longitude
}

// Describe renders a short human-readable position for the lock-screen
// surface.
func (ls LocationSample) Describe() string {
	return fmt.Sprintf("%.5f, %.5f (±%.0fm)", ls.Latitude, ls.Longitude, ls.Accuracy)
}

// TrailEntry is a persisted location sample scoped to its owner and alert.
type TrailEntry struct {
	ID        string         `json:"id" bson:"_id,omitempty"`
	UserID    string         `json:"userId" bson:"userId"`
	AlertID   string         `json:"alertId,omitempty" bson:"alertId,omitempty"`
	Sample    LocationSample `json:"sample" bson:"sample"`
	CreatedAt time.Time      `json:"createdAt" bson:"createdAt"`
}

// LocationTrailRequest filters a trail read.
type LocationTrailRequest struct {
	UserID    string    `json:"userId" validate:"required"`
	AlertID   string    `json:"alertId,omitempty"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Limit     int       `json:"limit" validate:"gte=0,lte=1000"`
}
