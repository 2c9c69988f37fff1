package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"aegis/interfaces"
	"aegis/models"
	"aegis/platform"
	"aegis/utils"
)

// BridgeService carries the four lock-screen widget commands. It runs in
// the widget extension host, a separate OS process from the monitor: it has
// no live handle on the state machine, only the shared flag store and the
// OS foreground grant. Every command except check-in writes its pending
// flag BEFORE requesting foreground time, so the intent survives even if
// the grant is delayed or refused.
type BridgeService struct {
	flags   interfaces.FlagStore
	granter platform.ForegroundGranter
	waker   Waker
}

// Waker pokes the main process's resume path after a flag write. In-process
// it is the command worker; across processes it is the deep-link launch.
type Waker interface {
	Wake()
}

func NewBridgeService(flags interfaces.FlagStore, granter platform.ForegroundGranter, waker Waker) *BridgeService {
	return &BridgeService{
		flags:   flags,
		granter: granter,
		waker:   waker,
	}
}

// Execute dispatches one widget command.
func (bs *BridgeService) Execute(ctx context.Context, userID string, req models.WidgetCommandRequest) error {
	switch req.Command {
	case models.WidgetCommandCheckIn:
		return bs.checkIn(ctx, userID)
	case models.WidgetCommandPanic:
		return bs.pendingCommand(ctx, userID, models.FlagPendingPanic, req.Message)
	case models.WidgetCommandStop:
		return bs.pendingCommand(ctx, userID, models.FlagPendingStop, "")
	case models.WidgetCommandToggle:
		return bs.pendingCommand(ctx, userID, models.FlagPendingToggle, "")
	default:
		return utils.NewBadRequestError("unknown widget command")
	}
}

// checkIn completes entirely in the widget process: a timestamp flag write,
// no foreground time needed.
func (bs *BridgeService) checkIn(ctx context.Context, userID string) error {
	if err := bs.flags.SetTimestamp(ctx, userID, models.FlagLastCheckIn, time.Now()); err != nil {
		return err
	}
	bs.waker.Wake()
	logrus.Debug("Widget check-in flag written")
	return nil
}

// pendingCommand writes the intent flag, then requests foreground execution
// time so the main process can arm background persistence safely, then
// reduces back to background.
func (bs *BridgeService) pendingCommand(ctx context.Context, userID, flag, value string) error {
	if value == "" {
		value = time.Now().UTC().Format(time.RFC3339Nano)
	}
	// Intent first. A refused or delayed grant must not lose the command;
	// the next foreground transition will consume it.
	if err := bs.flags.Set(ctx, userID, flag, value); err != nil {
		return err
	}

	release, err := bs.granter.RequestForeground(ctx)
	if err != nil {
		logrus.WithError(err).WithField("flag", flag).
			Warn("Foreground grant refused, command deferred to next resume")
		bs.waker.Wake()
		return nil
	}
	defer release()

	bs.waker.Wake()
	logrus.WithField("flag", flag).Info("Widget command staged")
	return nil
}
