package workers

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"aegis/interfaces"
	"aegis/models"
	"aegis/services"
)

// CommandWorker is the main process's resume path. The widget process
// communicates only through the shared flag store; this worker consumes the
// pending flags on every wake signal (deep-link launch or foreground
// transition) and on a safety-net poll tick, so a command staged while the
// process was suspended is never lost and never replayed.
type CommandWorker struct {
	monitor *services.MonitorService
	flags   interfaces.FlagStore

	pollInterval time.Duration
	wake         chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
}

func NewCommandWorker(monitor *services.MonitorService, flags interfaces.FlagStore, pollInterval time.Duration) *CommandWorker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CommandWorker{
		monitor:      monitor,
		flags:        flags,
		pollInterval: pollInterval,
		wake:         make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (cw *CommandWorker) Start() {
	cw.mu.Lock()
	if cw.isRunning {
		cw.mu.Unlock()
		return
	}
	cw.isRunning = true
	cw.mu.Unlock()

	cw.wg.Add(1)
	go cw.run()
	logrus.Info("Command worker started")
}

func (cw *CommandWorker) Stop() {
	cw.mu.Lock()
	if !cw.isRunning {
		cw.mu.Unlock()
		return
	}
	cw.isRunning = false
	cw.mu.Unlock()

	cw.cancel()
	cw.wg.Wait()
	logrus.Info("Command worker stopped")
}

// Wake signals a foreground transition. Coalesces: multiple wakes while a
// consume pass is running collapse into one more pass.
func (cw *CommandWorker) Wake() {
	select {
	case cw.wake <- struct{}{}:
	default:
	}
}

func (cw *CommandWorker) run() {
	defer cw.wg.Done()

	ticker := time.NewTicker(cw.pollInterval)
	defer ticker.Stop()

	// Cold launch counts as a resume: consume anything staged while the
	// process was dead.
	cw.consumePending()

	for {
		select {
		case <-cw.ctx.Done():
			return
		case <-cw.wake:
			cw.consumePending()
		case <-ticker.C:
			cw.consumePending()
		}
	}
}

// consumePending drains the mailbox. Stop wins over panic when both flags
// are staged: the user's last explicit stop should not be overridden by an
// earlier queued panic, and each flag is consumed exactly once either way.
func (cw *CommandWorker) consumePending() {
	ctx, cancel := context.WithTimeout(cw.ctx, 10*time.Second)
	defer cancel()

	userID := cw.monitor.UserID()

	panicMsg, panicPending, err := cw.flags.Consume(ctx, userID, models.FlagPendingPanic)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read pending panic flag")
	}
	_, stopPending, err := cw.flags.Consume(ctx, userID, models.FlagPendingStop)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read pending stop flag")
	}
	_, togglePending, err := cw.flags.Consume(ctx, userID, models.FlagPendingToggle)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read pending toggle flag")
	}

	switch {
	case stopPending:
		if err := cw.monitor.Deactivate(ctx); err != nil {
			logrus.WithError(err).Error("Pending stop failed")
		}
	case panicPending:
		req := models.ActivateMonitorRequest{Intensity: models.IntensityPanic}
		if !isTimestamp(panicMsg) {
			req.Message = panicMsg
		}
		if err := cw.monitor.Activate(ctx, req); err != nil {
			logrus.WithError(err).Error("Pending panic activation failed")
		}
	case togglePending:
		if err := cw.monitor.Toggle(ctx); err != nil {
			logrus.WithError(err).Error("Pending toggle failed")
		}
	}

	raw, checkInPending, err := cw.flags.Consume(ctx, userID, models.FlagLastCheckIn)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read check-in flag")
	}
	if checkInPending {
		req := models.CheckInRequest{}
		if err := cw.monitor.CheckIn(ctx, req); err != nil {
			logrus.WithError(err).Warn("Pending check-in failed")
		} else {
			logrus.WithField("at", raw).Debug("Widget check-in consumed")
		}
	}
}

func isTimestamp(value string) bool {
	_, err := time.Parse(time.RFC3339Nano, value)
	return err == nil
}
