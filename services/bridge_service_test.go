package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegis/models"
)

func TestPanicCommandWritesFlagBeforeForegroundRequest(t *testing.T) {
	var order []string
	flags := &orderedFlagStore{memFlagStore: newMemFlagStore(), log: &order}
	granter := &fakeGranter{log: &order}
	waker := &countWaker{}
	bridge := NewBridgeService(flags, granter, waker)

	err := bridge.Execute(context.Background(), "u1", models.WidgetCommandRequest{
		Command: models.WidgetCommandPanic,
		Message: "help",
	})
	require.NoError(t, err)

	// The intent must be durable before the OS is asked for anything.
	require.Equal(t, []string{"flag:" + models.FlagPendingPanic, "foreground"}, order)

	value, ok := flags.get("u1", models.FlagPendingPanic)
	assert.True(t, ok)
	assert.Equal(t, "help", value)
	assert.Equal(t, 1, waker.count())
}

func TestPanicCommandWithoutMessageStoresTimestamp(t *testing.T) {
	flags := newMemFlagStore()
	bridge := NewBridgeService(flags, &fakeGranter{}, &countWaker{})

	before := time.Now().UTC()
	require.NoError(t, bridge.Execute(context.Background(), "u1", models.WidgetCommandRequest{
		Command: models.WidgetCommandPanic,
	}))

	value, ok := flags.get("u1", models.FlagPendingPanic)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339Nano, value)
	require.NoError(t, err)
	assert.False(t, parsed.Before(before.Truncate(time.Second)))
}

func TestRefusedGrantKeepsCommandStaged(t *testing.T) {
	flags := newMemFlagStore()
	waker := &countWaker{}
	bridge := NewBridgeService(flags, &fakeGranter{refuse: true}, waker)

	err := bridge.Execute(context.Background(), "u1", models.WidgetCommandRequest{
		Command: models.WidgetCommandStop,
	})
	require.NoError(t, err, "a refused grant is not a command failure")

	_, ok := flags.get("u1", models.FlagPendingStop)
	assert.True(t, ok, "intent survives the refusal")
	assert.Equal(t, 1, waker.count(), "resume path still poked")
}

func TestGrantIsReleasedAfterStaging(t *testing.T) {
	granter := &fakeGranter{}
	bridge := NewBridgeService(newMemFlagStore(), granter, &countWaker{})

	require.NoError(t, bridge.Execute(context.Background(), "u1", models.WidgetCommandRequest{
		Command: models.WidgetCommandToggle,
	}))

	granter.mu.Lock()
	released := granter.released
	granter.mu.Unlock()
	assert.Equal(t, 1, released)
}

func TestCheckInWritesTimestampWithoutForeground(t *testing.T) {
	var order []string
	flags := &orderedFlagStore{memFlagStore: newMemFlagStore(), log: &order}
	granter := &fakeGranter{log: &order}
	waker := &countWaker{}
	bridge := NewBridgeService(flags, granter, waker)

	require.NoError(t, bridge.Execute(context.Background(), "u1", models.WidgetCommandRequest{
		Command: models.WidgetCommandCheckIn,
	}))

	// Check-in never needs foreground time.
	assert.Equal(t, []string{"flag:" + models.FlagLastCheckIn}, order)
	assert.Equal(t, 1, waker.count())

	value, ok := flags.get("u1", models.FlagLastCheckIn)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339Nano, value)
	assert.NoError(t, err)
}

func TestUnknownCommandRejected(t *testing.T) {
	bridge := NewBridgeService(newMemFlagStore(), &fakeGranter{}, &countWaker{})
	err := bridge.Execute(context.Background(), "u1", models.WidgetCommandRequest{Command: "self_destruct"})
	assert.Error(t, err)
}
