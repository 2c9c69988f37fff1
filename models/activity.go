package models

import (
	"time"
)

// LiveActivityState is the content state pushed to the lock-screen
// presentation surface. The state machine updates it directly; the surface
// only renders it.
type LiveActivityState struct {
	Status                  SessionStatus `json:"status"`
	StartedAt               time.Time     `json:"startedAt,omitempty"`
	LastLocationDescription string        `json:"lastLocationDescription,omitempty"`
	BatteryLevel            int           `json:"batteryLevel"`
	ContactsNotified        int           `json:"contactsNotified"`
	CustomMessage           string        `json:"customMessage,omitempty"`
	EscalationDeadline      *time.Time    `json:"escalationDeadline,omitempty"`
	Degraded                bool          `json:"degraded"`
	UpdatedAt               time.Time     `json:"updatedAt"`
}

// Widget commands the lock-screen surface can issue. They arrive through
// the shared flag store, never as a live call into the main process.
const (
	WidgetCommandCheckIn = "check_in"
	WidgetCommandPanic   = "panic"
	WidgetCommandStop    = "stop_monitoring"
	WidgetCommandToggle  = "toggle_monitoring"
)

// Shared control flag keys. Each pending flag is written by the widget
// process and consumed exactly once by the main process's resume path.
const (
	FlagPendingPanic     = "pending_panic"
	FlagPendingStop      = "pending_stop"
	FlagPendingToggle    = "pending_toggle"
	FlagMonitoringActive = "is_monitoring_active"
	FlagLastCheckIn      = "last_check_in_time"
)

// WidgetCommandRequest is the widget ingress payload.
type WidgetCommandRequest struct {
	Command string `json:"command" validate:"required,widget_command"`
	Message string `json:"message,omitempty" validate:"max=280"`
}
