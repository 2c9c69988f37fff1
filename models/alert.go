package models

import (
	"time"
)

// SafetyAlert is the persisted record created once per panic activation.
type SafetyAlert struct {
	ID              string           `json:"id" bson:"_id,omitempty"`
	UserID          string           `json:"userId" bson:"userId"`
	Type            string           `json:"type" bson:"type"`
	Status          string           `json:"status" bson:"status"`
	Message         string           `json:"message,omitempty" bson:"message,omitempty"`
	Location        *LocationSample  `json:"location,omitempty" bson:"location,omitempty"`
	LocationHistory []LocationSample `json:"locationHistory,omitempty" bson:"locationHistory,omitempty"`
	BatteryLevel    int              `json:"batteryLevel" bson:"batteryLevel"`
	Escalated       bool             `json:"escalated" bson:"escalated"`
	Resolution      string           `json:"resolution,omitempty" bson:"resolution,omitempty"`
	CreatedAt       time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt" bson:"updatedAt"`
	EscalatedAt     time.Time        `json:"escalatedAt,omitempty" bson:"escalatedAt,omitempty"`
	ResolvedAt      time.Time        `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
}

// Alert type constants
const (
	AlertTypePanic         = "panic"
	AlertTypeDeadManSwitch = "dead_man_switch"
	AlertTypeCheckInMissed = "check_in_missed"
	AlertTypeManual        = "manual"
)

// Alert status constants. Transitions are monotonic except that resolved
// and false_alarm may follow active, and escalated may follow active.
const (
	AlertStatusActive     = "active"
	AlertStatusResolved   = "resolved"
	AlertStatusFalseAlarm = "false_alarm"
	AlertStatusEscalated  = "escalated"
)

// Closed reports whether the alert has reached a terminal status.
func (sa *SafetyAlert) Closed() bool {
	return sa.Status == AlertStatusResolved || sa.Status == AlertStatusFalseAlarm
}

// ActivateMonitorRequest starts or retunes a monitoring session.
type ActivateMonitorRequest struct {
	Intensity MonitoringIntensity `json:"intensity" validate:"required,monitoring_intensity"`
	Message   string              `json:"message,omitempty" validate:"max=280"`
}

// CheckInRequest pushes the escalation deadline forward.
type CheckInRequest struct {
	ExtendBySeconds int `json:"extendBySeconds" validate:"gte=0,lte=86400"`
}

// ResolveAlertRequest closes an alert.
type ResolveAlertRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=resolved false_alarm"`
	Note    string `json:"note,omitempty" validate:"max=500"`
}
