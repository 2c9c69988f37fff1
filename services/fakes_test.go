package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"aegis/models"
	"aegis/platform"
	"aegis/utils"
)

// fakeProvider is a hand-driven platform.LocationProvider: tests push fixes
// through both the continuous channel and the legacy delegate.
type fakeProvider struct {
	mu        sync.Mutex
	updates   chan models.LocationSample
	delegate  platform.LocationDelegate
	legacyErr error
	enabled   bool
	failNext  int
	stopped   int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{enabled: true}
}

func (fp *fakeProvider) Updates(ctx context.Context, params models.MonitoringParameters) (<-chan models.LocationSample, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	if !fp.enabled {
		return nil, utils.NewLocationServicesDisabledError()
	}
	if fp.failNext > 0 {
		fp.failNext--
		return nil, utils.NewLocationServicesDisabledError()
	}
	fp.updates = make(chan models.LocationSample, 64)
	return fp.updates, nil
}

// failStarts makes the next n Updates calls fail.
func (fp *fakeProvider) failStarts(n int) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.failNext = n
}

func (fp *fakeProvider) StartLegacyUpdates(delegate platform.LocationDelegate, params models.MonitoringParameters) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	if fp.legacyErr != nil {
		return fp.legacyErr
	}
	fp.delegate = delegate
	return nil
}

func (fp *fakeProvider) StopLegacyUpdates() {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.delegate = nil
	fp.stopped++
}

func (fp *fakeProvider) ServicesEnabled() bool {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.enabled
}

func (fp *fakeProvider) emitContinuous(sample models.LocationSample) {
	fp.mu.Lock()
	ch := fp.updates
	fp.mu.Unlock()
	if ch != nil {
		ch <- sample
	}
}

func (fp *fakeProvider) emitLegacy(samples ...models.LocationSample) {
	fp.mu.Lock()
	delegate := fp.delegate
	fp.mu.Unlock()
	if delegate != nil {
		delegate.OnSamples(samples)
	}
}

func (fp *fakeProvider) legacyError(err error) {
	fp.mu.Lock()
	delegate := fp.delegate
	fp.mu.Unlock()
	if delegate != nil {
		delegate.OnError(err)
	}
}

// grantAll is a PermissionRequester whose dialogs nobody answers.
type grantAll struct{}

func (grantAll) RequestWhenInUse() {}
func (grantAll) RequestAlways()    {}

// fakeAlertStore is an in-memory interfaces.AlertStore.
type fakeAlertStore struct {
	mu             sync.Mutex
	alerts         map[string]*models.SafetyAlert
	nextID         int
	escalatedCalls int
	historyCalls   int
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{alerts: map[string]*models.SafetyAlert{}}
}

func (fs *fakeAlertStore) Create(ctx context.Context, alert *models.SafetyAlert) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.nextID++
	alert.ID = utils.GenerateUUID()
	alert.CreatedAt = time.Now()
	stored := *alert
	fs.alerts[alert.ID] = &stored
	return nil
}

func (fs *fakeAlertStore) GetByID(ctx context.Context, userID, alertID string) (*models.SafetyAlert, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	alert, ok := fs.alerts[alertID]
	if !ok || alert.UserID != userID {
		return nil, utils.NewAlertNotFoundError()
	}
	copied := *alert
	return &copied, nil
}

func (fs *fakeAlertStore) GetActive(ctx context.Context, userID string) ([]models.SafetyAlert, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []models.SafetyAlert
	for _, alert := range fs.alerts {
		if alert.UserID == userID && (alert.Status == models.AlertStatusActive || alert.Status == models.AlertStatusEscalated) {
			out = append(out, *alert)
		}
	}
	return out, nil
}

func (fs *fakeAlertStore) GetHistory(ctx context.Context, userID string, limit int) ([]models.SafetyAlert, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []models.SafetyAlert
	for _, alert := range fs.alerts {
		if alert.UserID == userID {
			out = append(out, *alert)
		}
	}
	return out, nil
}

func (fs *fakeAlertStore) MarkEscalated(ctx context.Context, userID, alertID string, at time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	alert, ok := fs.alerts[alertID]
	if !ok {
		return utils.NewAlertNotFoundError()
	}
	// Same guard as the mongo store: only an active alert escalates.
	if alert.Status != models.AlertStatusActive {
		return nil
	}
	alert.Status = models.AlertStatusEscalated
	alert.Escalated = true
	alert.EscalatedAt = at
	fs.escalatedCalls++
	return nil
}

func (fs *fakeAlertStore) MarkResolved(ctx context.Context, userID, alertID, outcome, note string, at time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	alert, ok := fs.alerts[alertID]
	if !ok {
		return utils.NewAlertNotFoundError()
	}
	// Same guard as the mongo store: a closed alert stays closed.
	if alert.Closed() {
		return nil
	}
	alert.Status = outcome
	alert.Resolution = note
	alert.ResolvedAt = at
	return nil
}

func (fs *fakeAlertStore) AppendHistory(ctx context.Context, userID, alertID string, samples []models.LocationSample) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	alert, ok := fs.alerts[alertID]
	if !ok {
		return utils.NewAlertNotFoundError()
	}
	alert.LocationHistory = append(alert.LocationHistory, samples...)
	fs.historyCalls++
	return nil
}

func (fs *fakeAlertStore) escalations() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.escalatedCalls
}

func (fs *fakeAlertStore) count() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.alerts)
}

// fakeContactStore returns a fixed contact list.
type fakeContactStore struct {
	contacts []models.TrustedContact
}

func (fs *fakeContactStore) GetUserContacts(ctx context.Context, userID string) ([]models.TrustedContact, error) {
	return fs.contacts, nil
}

// fakeNotifier records deliveries.
type fakeNotifier struct {
	mu     sync.Mutex
	sms    []string
	pushes []string
	smsErr error
}

func (fn *fakeNotifier) SendSMS(ctx context.Context, phone, message string) error {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	if fn.smsErr != nil {
		return fn.smsErr
	}
	fn.sms = append(fn.sms, message)
	return nil
}

func (fn *fakeNotifier) SendPush(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	fn.pushes = append(fn.pushes, body)
	return nil
}

func (fn *fakeNotifier) pushCount() int {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	return len(fn.pushes)
}

func (fn *fakeNotifier) smsCount() int {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	return len(fn.sms)
}

// fakeTrailStore records uploaded batches.
type fakeTrailStore struct {
	mu      sync.Mutex
	batches [][]models.LocationSample
}

func (fs *fakeTrailStore) CreateBatch(ctx context.Context, userID, alertID string, samples []models.LocationSample) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.batches = append(fs.batches, samples)
	return nil
}

func (fs *fakeTrailStore) GetTrail(ctx context.Context, req models.LocationTrailRequest) ([]models.TrailEntry, error) {
	return nil, nil
}

func (fs *fakeTrailStore) total() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := 0
	for _, batch := range fs.batches {
		n += len(batch)
	}
	return n
}

// memFlagStore is an in-memory interfaces.FlagStore.
type memFlagStore struct {
	mu    sync.Mutex
	flags map[string]string
}

func newMemFlagStore() *memFlagStore {
	return &memFlagStore{flags: map[string]string{}}
}

func (ms *memFlagStore) key(userID, flag string) string { return userID + ":" + flag }

func (ms *memFlagStore) Set(ctx context.Context, userID, flag, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.flags[ms.key(userID, flag)] = value
	return nil
}

func (ms *memFlagStore) SetTimestamp(ctx context.Context, userID, flag string, t time.Time) error {
	return ms.Set(ctx, userID, flag, t.UTC().Format(time.RFC3339Nano))
}

func (ms *memFlagStore) Consume(ctx context.Context, userID, flag string) (string, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	value, ok := ms.flags[ms.key(userID, flag)]
	if ok {
		delete(ms.flags, ms.key(userID, flag))
	}
	return value, ok, nil
}

func (ms *memFlagStore) Peek(ctx context.Context, userID, flag string) (string, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	value, ok := ms.flags[ms.key(userID, flag)]
	return value, ok, nil
}

func (ms *memFlagStore) Clear(ctx context.Context, userID, flag string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.flags, ms.key(userID, flag))
	return nil
}

func (ms *memFlagStore) get(userID, flag string) (string, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	value, ok := ms.flags[ms.key(userID, flag)]
	return value, ok
}

// recordPublisher captures published activity states.
type recordPublisher struct {
	mu     sync.Mutex
	states []models.LiveActivityState
}

func (rp *recordPublisher) PublishActivity(userID string, state models.LiveActivityState) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.states = append(rp.states, state)
}

func (rp *recordPublisher) last() (models.LiveActivityState, bool) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if len(rp.states) == 0 {
		return models.LiveActivityState{}, false
	}
	return rp.states[len(rp.states)-1], true
}

// fakeGranter records the order of flag writes versus foreground requests.
type fakeGranter struct {
	mu       sync.Mutex
	log      *[]string
	refuse   bool
	released int
}

func (fg *fakeGranter) RequestForeground(ctx context.Context) (func(), error) {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	if fg.log != nil {
		*fg.log = append(*fg.log, "foreground")
	}
	if fg.refuse {
		return nil, errors.New("foreground grant refused")
	}
	return func() {
		fg.mu.Lock()
		fg.released++
		fg.mu.Unlock()
	}, nil
}

// orderedFlagStore wraps memFlagStore and appends to a shared order log.
type orderedFlagStore struct {
	*memFlagStore
	log *[]string
}

func (os *orderedFlagStore) Set(ctx context.Context, userID, flag, value string) error {
	*os.log = append(*os.log, "flag:"+flag)
	return os.memFlagStore.Set(ctx, userID, flag, value)
}

func (os *orderedFlagStore) SetTimestamp(ctx context.Context, userID, flag string, t time.Time) error {
	*os.log = append(*os.log, "flag:"+flag)
	return os.memFlagStore.SetTimestamp(ctx, userID, flag, t)
}

// countWaker counts resume pokes.
type countWaker struct {
	mu    sync.Mutex
	wakes int
}

func (cw *countWaker) Wake() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.wakes++
}

func (cw *countWaker) count() int {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.wakes
}

// fixedBattery satisfies platform.BatteryMonitor.
type fixedBattery struct{ level int }

func (fb fixedBattery) Level() int { return fb.level }
