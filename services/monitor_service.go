package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"aegis/interfaces"
	"aegis/models"
	"aegis/platform"
	"aegis/utils"
)

const (
	defaultEscalationWindow = 15 * time.Minute
	trailFlushBatchSize     = 10
)

// MonitorService is the panic-mode state machine. All session mutations are
// serialized through its mutex: concurrent activate/deactivate calls never
// interleave and the machine never observes a half-armed session.
type MonitorService struct {
	userID     string
	tracker    *platform.AuthorizationTracker
	background *platform.BackgroundSessionController
	engine     *StreamEngine
	alerts     *AlertService
	trailStore interfaces.TrailStore
	flags      interfaces.FlagStore
	activity   interfaces.ActivityPublisher
	battery    platform.BatteryMonitor
	validator  *utils.ValidationService

	escalationWindow time.Duration

	mu               sync.Mutex
	session          *models.MonitoringSession
	customMessage    string
	contactsNotified int
	escalationGen    int
	escalationCancel chan struct{}
	unsubscribe      func()
	trailBatch       []models.LocationSample
}

func NewMonitorService(
	userID string,
	tracker *platform.AuthorizationTracker,
	background *platform.BackgroundSessionController,
	engine *StreamEngine,
	alerts *AlertService,
	trailStore interfaces.TrailStore,
	flags interfaces.FlagStore,
	activity interfaces.ActivityPublisher,
	battery platform.BatteryMonitor,
	escalationWindow time.Duration,
) *MonitorService {
	if escalationWindow <= 0 {
		escalationWindow = defaultEscalationWindow
	}
	return &MonitorService{
		userID:           userID,
		tracker:          tracker,
		background:       background,
		engine:           engine,
		alerts:           alerts,
		trailStore:       trailStore,
		flags:            flags,
		activity:         activity,
		battery:          battery,
		validator:        utils.NewValidationService(),
		escalationWindow: escalationWindow,
		session:          models.NewMonitoringSession(),
	}
}

// Activate arms the session at the requested intensity. Idempotent: calling
// it while already armed at the same intensity succeeds without a second
// alert or a second background session. The capability gate re-checks the
// tracker at call time, never a cached value.
func (ms *MonitorService) Activate(ctx context.Context, req models.ActivateMonitorRequest) error {
	if validationErrors := ms.validator.ValidateStruct(req); len(validationErrors) > 0 {
		return utils.NewBadRequestError("invalid activation request")
	}
	if req.Intensity == models.IntensityOff {
		return ms.Deactivate(ctx)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	capability := ms.tracker.Current()
	if !capability.CanMonitor() {
		return utils.NewInsufficientPermissionsError("capability is " + capability.String())
	}
	if capability == models.CapabilityForegroundOnly {
		// Prefer a background upgrade, but do not block the emergency on the
		// dialog outcome.
		ms.tracker.RequestBackgroundUpgrade()
	}

	if ms.session.Status.Armed() {
		if ms.session.Intensity == req.Intensity {
			return nil
		}
		return ms.retuneLocked(ctx, req)
	}

	ms.session = models.NewMonitoringSession()
	ms.session.StartedAt = time.Now()
	ms.session.Intensity = req.Intensity
	ms.customMessage = req.Message
	ms.contactsNotified = 0

	ms.background.Arm()
	ms.session.Degraded = ms.background.Degraded() || !capability.CanMonitorBackground()

	if err := ms.engine.Start(req.Intensity); err != nil {
		ms.background.Disarm()
		ms.session = models.NewMonitoringSession()
		return err
	}
	ms.startConsumeLocked()

	if req.Intensity == models.IntensityPanic {
		ms.session.Status = models.SessionPanic
		ms.enterPanicLocked(ctx)
	} else {
		ms.session.Status = models.SessionMonitoring
	}

	if err := ms.flags.Set(ctx, ms.userID, models.FlagMonitoringActive, "true"); err != nil {
		logrus.WithError(err).Warn("Failed to mirror monitoring flag")
	}
	ms.publishActivityLocked()

	logrus.WithFields(logrus.Fields{
		"intensity": string(req.Intensity),
		"degraded":  ms.session.Degraded,
	}).Info("Monitoring session armed")
	return nil
}

// retuneLocked changes intensity within the armed state. Entering panic
// from plain monitoring creates the alert; leaving panic keeps the existing
// alert open.
func (ms *MonitorService) retuneLocked(ctx context.Context, req models.ActivateMonitorRequest) error {
	wasPanic := ms.session.Status == models.SessionPanic
	previous := ms.session.Intensity

	ms.stopStreamLocked()
	if err := ms.engine.Start(req.Intensity); err != nil {
		// Put the session back on its previous stream rather than leaving
		// it armed with no fixes flowing. If even that fails the session
		// cannot do its job, so it folds down to idle.
		if restoreErr := ms.engine.Start(previous); restoreErr != nil {
			logrus.WithError(restoreErr).Error("Could not restore previous stream, deactivating")
			ms.teardownLocked(ctx)
			return err
		}
		ms.startConsumeLocked()
		return err
	}
	ms.startConsumeLocked()

	ms.session.Intensity = req.Intensity
	if req.Message != "" {
		ms.customMessage = req.Message
	}

	if req.Intensity == models.IntensityPanic && !wasPanic {
		ms.session.Status = models.SessionPanic
		ms.enterPanicLocked(ctx)
	}

	ms.publishActivityLocked()
	logrus.WithField("intensity", string(req.Intensity)).Info("Monitoring session retuned")
	return nil
}

// enterPanicLocked creates the one alert record for this activation,
// dispatches the initial notification and starts the dead-man's-switch
// timer.
func (ms *MonitorService) enterPanicLocked(ctx context.Context) {
	if ms.session.AlertID == "" {
		alert, err := ms.alerts.CreateAlertRecord(ctx, ms.userID, models.AlertTypePanic, ms.customMessage, ms.session.LastKnownLocation)
		if err != nil {
			// The session still tracks; the alert record is retried on the
			// next escalation or resolution attempt by its absence being
			// visible in status.
			logrus.WithError(err).Error("Failed to create safety alert record")
		} else {
			ms.session.AlertID = alert.ID
			ms.contactsNotified = ms.alerts.Dispatch(ctx, alert, ms.customMessage)
		}
	}
	ms.resetEscalationLocked(ms.escalationWindow)
}

// Deactivate stops everything and returns to Idle. Safe to call from any
// state; deactivating an idle session is a no-op, not an error.
func (ms *MonitorService) Deactivate(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.session.Status == models.SessionIdle {
		return nil
	}

	ms.teardownLocked(ctx)

	logrus.Info("Monitoring session deactivated")
	return nil
}

// teardownLocked dismantles the armed session and returns it to idle.
func (ms *MonitorService) teardownLocked(ctx context.Context) {
	ms.escalationGen++ // invalidates any pending timer
	ms.cancelEscalationLocked()
	ms.session.EscalationDeadline = nil

	ms.stopStreamLocked()
	ms.background.Disarm()
	ms.flushTrailLocked(ctx)

	if ms.session.AlertID != "" && len(ms.session.LocationHistory) > 0 {
		ms.alerts.AttachHistory(ctx, ms.userID, ms.session.AlertID, ms.session.LocationHistory)
	}

	// Resolved is transient; it folds back to Idle once cleanup completes.
	ms.session.Status = models.SessionResolved
	ms.publishActivityLocked()

	ms.session = models.NewMonitoringSession()
	ms.customMessage = ""
	ms.contactsNotified = 0

	if err := ms.flags.Clear(ctx, ms.userID, models.FlagMonitoringActive); err != nil {
		logrus.WithError(err).Warn("Failed to clear monitoring flag")
	}
	ms.publishActivityLocked()
}

// Toggle flips between idle and active monitoring.
func (ms *MonitorService) Toggle(ctx context.Context) error {
	ms.mu.Lock()
	armed := ms.session.Status.Armed()
	ms.mu.Unlock()

	if armed {
		return ms.Deactivate(ctx)
	}
	return ms.Activate(ctx, models.ActivateMonitorRequest{Intensity: models.IntensityActive})
}

// CheckIn pushes the escalation deadline forward without touching the
// session status.
func (ms *MonitorService) CheckIn(ctx context.Context, req models.CheckInRequest) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.session.Status.Armed() && ms.session.EscalationDeadline != nil {
		extend := ms.escalationWindow
		if req.ExtendBySeconds > 0 {
			extend = time.Duration(req.ExtendBySeconds) * time.Second
		}
		ms.resetEscalationLocked(extend)
	}

	ms.publishActivityLocked()
	logrus.Debug("Check-in recorded")
	return nil
}

// resetEscalationLocked arms the dead-man's-switch timer. A later reset or
// deactivation invalidates the pending timer through the generation
// counter and reclaims its goroutine through the cancel channel, so expiry
// escalates at most once and no timer outlives its deadline's validity.
func (ms *MonitorService) resetEscalationLocked(window time.Duration) {
	ms.escalationGen++
	gen := ms.escalationGen
	ms.cancelEscalationLocked()
	cancelled := make(chan struct{})
	ms.escalationCancel = cancelled
	deadline := time.Now().Add(window)
	ms.session.EscalationDeadline = &deadline

	go func() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-cancelled:
			return
		}

		ms.mu.Lock()
		stale := gen != ms.escalationGen || ms.session.Status != models.SessionPanic
		alertID := ms.session.AlertID
		ms.mu.Unlock()
		if stale || alertID == "" {
			return
		}

		logrus.Warn("Escalation deadline passed without check-in")
		if err := ms.alerts.Escalate(context.Background(), ms.userID, alertID); err != nil {
			logrus.WithError(err).Error("Failed to escalate alert")
		}

		ms.mu.Lock()
		ms.publishActivityLocked()
		ms.mu.Unlock()
	}()
}

// cancelEscalationLocked releases any pending timer goroutine.
func (ms *MonitorService) cancelEscalationLocked() {
	if ms.escalationCancel != nil {
		close(ms.escalationCancel)
		ms.escalationCancel = nil
	}
}

// startConsumeLocked subscribes the session to the stream engine.
func (ms *MonitorService) startConsumeLocked() {
	ch, cancel := ms.engine.Subscribe(32)
	ms.unsubscribe = cancel

	go func() {
		for sample := range ch {
			ms.mu.Lock()
			if !ms.session.Status.Armed() {
				ms.mu.Unlock()
				continue
			}
			ms.session.AppendLocation(sample)
			ms.trailBatch = append(ms.trailBatch, sample)
			flush := len(ms.trailBatch) >= trailFlushBatchSize
			if flush {
				ms.flushTrailLocked(context.Background())
			}
			ms.publishActivityLocked()
			ms.mu.Unlock()
		}
	}()
}

func (ms *MonitorService) stopStreamLocked() {
	if ms.unsubscribe != nil {
		ms.unsubscribe()
		ms.unsubscribe = nil
	}
	ms.engine.Stop()
}

// flushTrailLocked uploads the pending batch. Upload failures are absorbed:
// the trail is best-effort, the in-memory history is authoritative.
func (ms *MonitorService) flushTrailLocked(ctx context.Context) {
	if len(ms.trailBatch) == 0 {
		return
	}
	batch := ms.trailBatch
	ms.trailBatch = nil
	alertID := ms.session.AlertID
	go func() {
		if err := ms.trailStore.CreateBatch(ctx, ms.userID, alertID, batch); err != nil {
			logrus.WithError(err).Warn("Trail batch upload failed")
		}
	}()
}

func (ms *MonitorService) publishActivityLocked() {
	state := models.LiveActivityState{
		Status:             ms.session.Status,
		StartedAt:          ms.session.StartedAt,
		BatteryLevel:       ms.battery.Level(),
		ContactsNotified:   ms.contactsNotified,
		CustomMessage:      ms.customMessage,
		EscalationDeadline: ms.session.EscalationDeadline,
		Degraded:           ms.session.Degraded,
		UpdatedAt:          time.Now(),
	}
	if ms.session.LastKnownLocation != nil {
		state.LastLocationDescription = ms.session.LastKnownLocation.Describe()
	}
	ms.activity.PublishActivity(ms.userID, state)
}

// Status returns a snapshot of the live session.
func (ms *MonitorService) Status() models.MonitorStatusResponse {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	session := *ms.session
	session.LocationHistory = append([]models.LocationSample(nil), ms.session.LocationHistory...)
	if err := ms.engine.LastError(); err != nil {
		session.LastError = err.Error()
	}

	state := models.LiveActivityState{
		Status:             session.Status,
		StartedAt:          session.StartedAt,
		BatteryLevel:       ms.battery.Level(),
		ContactsNotified:   ms.contactsNotified,
		CustomMessage:      ms.customMessage,
		EscalationDeadline: session.EscalationDeadline,
		Degraded:           session.Degraded,
		UpdatedAt:          time.Now(),
	}
	if session.LastKnownLocation != nil {
		state.LastLocationDescription = session.LastKnownLocation.Describe()
	}

	return models.MonitorStatusResponse{
		Session:    session,
		Activity:   state,
		Capability: ms.tracker.Current(),
	}
}

// UserID returns the identity this monitor is scoped to.
func (ms *MonitorService) UserID() string {
	return ms.userID
}
