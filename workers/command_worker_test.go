package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegis/models"
	"aegis/platform"
	"aegis/services"
	"aegis/utils"
)

// The worker drives a real monitor service; only the stores and the
// platform edges are stubbed.

type stubAlertStore struct {
	mu     sync.Mutex
	alerts map[string]*models.SafetyAlert
}

func newStubAlertStore() *stubAlertStore {
	return &stubAlertStore{alerts: map[string]*models.SafetyAlert{}}
}

func (ss *stubAlertStore) Create(ctx context.Context, alert *models.SafetyAlert) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	alert.ID = utils.GenerateUUID()
	alert.CreatedAt = time.Now()
	stored := *alert
	ss.alerts[alert.ID] = &stored
	return nil
}

func (ss *stubAlertStore) GetByID(ctx context.Context, userID, alertID string) (*models.SafetyAlert, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	alert, ok := ss.alerts[alertID]
	if !ok {
		return nil, utils.NewAlertNotFoundError()
	}
	copied := *alert
	return &copied, nil
}

func (ss *stubAlertStore) GetActive(ctx context.Context, userID string) ([]models.SafetyAlert, error) {
	return nil, nil
}

func (ss *stubAlertStore) GetHistory(ctx context.Context, userID string, limit int) ([]models.SafetyAlert, error) {
	return nil, nil
}

func (ss *stubAlertStore) MarkEscalated(ctx context.Context, userID, alertID string, at time.Time) error {
	return nil
}

func (ss *stubAlertStore) MarkResolved(ctx context.Context, userID, alertID, outcome, note string, at time.Time) error {
	return nil
}

func (ss *stubAlertStore) AppendHistory(ctx context.Context, userID, alertID string, samples []models.LocationSample) error {
	return nil
}

func (ss *stubAlertStore) count() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.alerts)
}

type stubContactStore struct{}

func (stubContactStore) GetUserContacts(ctx context.Context, userID string) ([]models.TrustedContact, error) {
	return nil, nil
}

type stubNotifier struct{}

func (stubNotifier) SendSMS(ctx context.Context, phone, message string) error { return nil }
func (stubNotifier) SendPush(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	return nil
}

type stubTrailStore struct{}

func (stubTrailStore) CreateBatch(ctx context.Context, userID, alertID string, samples []models.LocationSample) error {
	return nil
}

func (stubTrailStore) GetTrail(ctx context.Context, req models.LocationTrailRequest) ([]models.TrailEntry, error) {
	return nil, nil
}

type stubPublisher struct{}

func (stubPublisher) PublishActivity(userID string, state models.LiveActivityState) {}

type stubBattery struct{}

func (stubBattery) Level() int { return 100 }

type stubRequester struct{}

func (stubRequester) RequestWhenInUse() {}
func (stubRequester) RequestAlways()    {}

// mapFlagStore is a plain in-memory flag mailbox.
type mapFlagStore struct {
	mu    sync.Mutex
	flags map[string]string
}

func newMapFlagStore() *mapFlagStore {
	return &mapFlagStore{flags: map[string]string{}}
}

func (ms *mapFlagStore) key(userID, flag string) string { return userID + ":" + flag }

func (ms *mapFlagStore) Set(ctx context.Context, userID, flag, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.flags[ms.key(userID, flag)] = value
	return nil
}

func (ms *mapFlagStore) SetTimestamp(ctx context.Context, userID, flag string, t time.Time) error {
	return ms.Set(ctx, userID, flag, t.UTC().Format(time.RFC3339Nano))
}

func (ms *mapFlagStore) Consume(ctx context.Context, userID, flag string) (string, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	value, ok := ms.flags[ms.key(userID, flag)]
	if ok {
		delete(ms.flags, ms.key(userID, flag))
	}
	return value, ok, nil
}

func (ms *mapFlagStore) Peek(ctx context.Context, userID, flag string) (string, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	value, ok := ms.flags[ms.key(userID, flag)]
	return value, ok, nil
}

func (ms *mapFlagStore) Clear(ctx context.Context, userID, flag string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.flags, ms.key(userID, flag))
	return nil
}

type workerFixture struct {
	worker  *CommandWorker
	monitor *services.MonitorService
	flags   *mapFlagStore
	alerts  *stubAlertStore
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	tracker := platform.NewAuthorizationTracker(stubRequester{})
	tracker.OnAuthorizationChanged(models.CapabilityFullAccess)

	background := platform.NewBackgroundSessionController(platform.BackgroundConfig{
		Modes: []string{"location"},
	}, &platform.SimulatedScheduler{})

	alerts := newStubAlertStore()
	engine := services.NewStreamEngine(platform.NewSimulatedProvider(), tracker)
	alertService := services.NewAlertService(alerts, stubContactStore{}, stubNotifier{}, stubBattery{})

	flags := newMapFlagStore()
	monitor := services.NewMonitorService("u1", tracker, background, engine, alertService,
		stubTrailStore{}, flags, stubPublisher{}, stubBattery{}, time.Hour)

	worker := NewCommandWorker(monitor, flags, time.Hour)

	t.Cleanup(func() {
		worker.Stop()
		monitor.Deactivate(context.Background())
	})

	return &workerFixture{worker: worker, monitor: monitor, flags: flags, alerts: alerts}
}

func (fx *workerFixture) status() models.SessionStatus {
	return fx.monitor.Status().Session.Status
}

func TestColdLaunchConsumesStagedPanic(t *testing.T) {
	fx := newWorkerFixture(t)

	// Staged while the process was dead.
	require.NoError(t, fx.flags.Set(context.Background(), "u1", models.FlagPendingPanic, "help"))

	fx.worker.Start()

	assert.Eventually(t, func() bool {
		return fx.status() == models.SessionPanic
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, fx.alerts.count())

	_, ok, err := fx.flags.Peek(context.Background(), "u1", models.FlagPendingPanic)
	require.NoError(t, err)
	assert.False(t, ok, "flag consumed")
}

func TestWakeConsumesPendingToggle(t *testing.T) {
	fx := newWorkerFixture(t)
	fx.worker.Start()

	require.NoError(t, fx.flags.Set(context.Background(), "u1", models.FlagPendingToggle, "x"))
	fx.worker.Wake()

	assert.Eventually(t, func() bool {
		return fx.status() == models.SessionMonitoring
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, fx.flags.Set(context.Background(), "u1", models.FlagPendingToggle, "x"))
	fx.worker.Wake()

	assert.Eventually(t, func() bool {
		return fx.status() == models.SessionIdle
	}, time.Second, 10*time.Millisecond)
}

func TestStopWinsOverStagedPanic(t *testing.T) {
	fx := newWorkerFixture(t)

	ctx := context.Background()
	require.NoError(t, fx.flags.Set(ctx, "u1", models.FlagPendingPanic, "help"))
	require.NoError(t, fx.flags.Set(ctx, "u1", models.FlagPendingStop, "x"))

	fx.worker.Start()

	// Both flags are consumed in one pass; the stop is honored and the
	// stale panic never arms.
	assert.Eventually(t, func() bool {
		_, panicLeft, _ := fx.flags.Peek(ctx, "u1", models.FlagPendingPanic)
		_, stopLeft, _ := fx.flags.Peek(ctx, "u1", models.FlagPendingStop)
		return !panicLeft && !stopLeft
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, models.SessionIdle, fx.status())
	assert.Equal(t, 0, fx.alerts.count())
}

func TestPanicMessageForwardedUnlessTimestamp(t *testing.T) {
	fx := newWorkerFixture(t)

	require.NoError(t, fx.flags.Set(context.Background(), "u1", models.FlagPendingPanic, "trapped in elevator"))
	fx.worker.Start()

	assert.Eventually(t, func() bool {
		return fx.status() == models.SessionPanic
	}, time.Second, 10*time.Millisecond)
}

func TestCheckInFlagExtendsDeadline(t *testing.T) {
	fx := newWorkerFixture(t)
	fx.worker.Start()

	require.NoError(t, fx.flags.Set(context.Background(), "u1", models.FlagPendingPanic, "help"))
	fx.worker.Wake()
	assert.Eventually(t, func() bool {
		return fx.status() == models.SessionPanic
	}, time.Second, 10*time.Millisecond)

	before := fx.monitor.Status().Session.EscalationDeadline
	require.NotNil(t, before)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, fx.flags.SetTimestamp(context.Background(), "u1", models.FlagLastCheckIn, time.Now()))
	fx.worker.Wake()

	assert.Eventually(t, func() bool {
		after := fx.monitor.Status().Session.EscalationDeadline
		return after != nil && after.After(*before)
	}, time.Second, 10*time.Millisecond)
}

func TestStartIsIdempotent(t *testing.T) {
	fx := newWorkerFixture(t)
	fx.worker.Start()
	fx.worker.Start()
	fx.worker.Stop()
	fx.worker.Stop()
}

// flakyFlagStore fails consumes of one flag to model a Redis hiccup.
type flakyFlagStore struct {
	*mapFlagStore
	failFlag string
}

func (fs *flakyFlagStore) Consume(ctx context.Context, userID, flag string) (string, bool, error) {
	if flag == fs.failFlag {
		return "", false, errors.New("connection refused")
	}
	return fs.mapFlagStore.Consume(ctx, userID, flag)
}

func TestCheckInFlagReadFailureDoesNotBlockCommands(t *testing.T) {
	tracker := platform.NewAuthorizationTracker(stubRequester{})
	tracker.OnAuthorizationChanged(models.CapabilityFullAccess)
	background := platform.NewBackgroundSessionController(platform.BackgroundConfig{
		Modes: []string{"location"},
	}, &platform.SimulatedScheduler{})

	engine := services.NewStreamEngine(platform.NewSimulatedProvider(), tracker)
	alertService := services.NewAlertService(newStubAlertStore(), stubContactStore{}, stubNotifier{}, stubBattery{})

	flags := &flakyFlagStore{mapFlagStore: newMapFlagStore(), failFlag: models.FlagLastCheckIn}
	monitor := services.NewMonitorService("u1", tracker, background, engine, alertService,
		stubTrailStore{}, flags, stubPublisher{}, stubBattery{}, time.Hour)

	worker := NewCommandWorker(monitor, flags, time.Hour)
	t.Cleanup(func() {
		worker.Stop()
		monitor.Deactivate(context.Background())
	})

	require.NoError(t, flags.Set(context.Background(), "u1", models.FlagPendingToggle, "x"))
	worker.Start()

	// The failing check-in read is logged and the staged toggle still runs.
	assert.Eventually(t, func() bool {
		return monitor.Status().Session.Status == models.SessionMonitoring
	}, time.Second, 10*time.Millisecond)
}
