package platform

import (
	"sync"

	"github.com/sirupsen/logrus"

	"aegis/models"
)

// AuthorizationTracker maps platform permission callbacks onto the ordered
// AuthorizationCapability ladder. Capability transitions are driven only by
// OnAuthorizationChanged; operations gated on capability must call Current
// at the moment of the check rather than cache a value.
type AuthorizationTracker struct {
	requester PermissionRequester

	mu         sync.RWMutex
	capability models.AuthorizationCapability
	listeners  []func(models.AuthorizationCapability)
}

func NewAuthorizationTracker(requester PermissionRequester) *AuthorizationTracker {
	return &AuthorizationTracker{
		requester:  requester,
		capability: models.CapabilityNotDetermined,
	}
}

// Current returns the published capability.
func (at *AuthorizationTracker) Current() models.AuthorizationCapability {
	at.mu.RLock()
	defer at.mu.RUnlock()
	return at.capability
}

// RequestForegroundAccess triggers the when-in-use permission dialog. No-op
// if the user has already decided either way.
func (at *AuthorizationTracker) RequestForegroundAccess() {
	if at.Current() != models.CapabilityNotDetermined {
		return
	}
	at.requester.RequestWhenInUse()
}

// RequestBackgroundUpgrade asks for always-on access. Only meaningful from
// ForegroundOnly; anywhere else it is a no-op.
func (at *AuthorizationTracker) RequestBackgroundUpgrade() {
	if at.Current() != models.CapabilityForegroundOnly {
		return
	}
	at.requester.RequestAlways()
}

// OnAuthorizationChanged is the platform callback updating the published
// capability.
func (at *AuthorizationTracker) OnAuthorizationChanged(capability models.AuthorizationCapability) {
	at.mu.Lock()
	previous := at.capability
	at.capability = capability
	listeners := make([]func(models.AuthorizationCapability), len(at.listeners))
	copy(listeners, at.listeners)
	at.mu.Unlock()

	if previous != capability {
		logrus.WithFields(logrus.Fields{
			"from": previous.String(),
			"to":   capability.String(),
		}).Info("Location authorization changed")
	}

	for _, listener := range listeners {
		listener(capability)
	}
}

// Subscribe registers a listener invoked on every capability change.
func (at *AuthorizationTracker) Subscribe(listener func(models.AuthorizationCapability)) {
	at.mu.Lock()
	defer at.mu.Unlock()
	at.listeners = append(at.listeners, listener)
}
