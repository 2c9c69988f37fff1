package platform

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// KeepAliveSession is an open background execution token.
type KeepAliveSession interface {
	End()
}

// BackgroundScheduler opens OS keep-alive sessions. BeginKeepAlive is only
// valid while the process has foreground execution priority.
type BackgroundScheduler interface {
	BeginKeepAlive(name string) (KeepAliveSession, error)
}

// BackgroundSessionController manages the OS keep-alive session and the
// background-location-updates flag. Arm must be called only while the
// process holds foreground execution priority; calling it from the
// background is a programming error, not a recoverable condition.
type BackgroundSessionController struct {
	config    BackgroundConfig
	scheduler BackgroundScheduler

	mu       sync.Mutex
	armed    bool
	degraded bool
	session  KeepAliveSession
}

func NewBackgroundSessionController(config BackgroundConfig, scheduler BackgroundScheduler) *BackgroundSessionController {
	return &BackgroundSessionController{
		config:    config,
		scheduler: scheduler,
	}
}

// Arm enables background updates and opens the keep-alive session token.
// If the declared background modes do not include location, arming is
// skipped and the session falls back to foreground-only tracking; the
// caller sees Degraded() == true rather than an error.
func (bc *BackgroundSessionController) Arm() {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if bc.armed {
		return
	}

	if !bc.config.HasLocationMode() {
		logrus.Warn("Background location mode not declared, tracking is foreground-only")
		bc.armed = true
		bc.degraded = true
		return
	}

	session, err := bc.scheduler.BeginKeepAlive("safety-monitoring")
	if err != nil {
		logrus.WithError(err).Warn("Keep-alive session refused, tracking is foreground-only")
		bc.armed = true
		bc.degraded = true
		return
	}

	bc.session = session
	bc.armed = true
	bc.degraded = false
	logrus.Info("Background persistence armed")
}

// Disarm reverses Arm. Idempotent, safe to call even if never armed.
func (bc *BackgroundSessionController) Disarm() {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if !bc.armed {
		return
	}

	if bc.session != nil {
		bc.session.End()
		bc.session = nil
	}
	bc.armed = false
	bc.degraded = false
	logrus.Info("Background persistence disarmed")
}

// Armed reports whether a keep-alive session is currently open.
func (bc *BackgroundSessionController) Armed() bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.armed
}

// Degraded reports whether the current session is foreground-only because
// the background capability is not declared or the token was refused.
func (bc *BackgroundSessionController) Degraded() bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.degraded
}
