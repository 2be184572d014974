package pluginapi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusShouldContinueOnlyForContinueVariants(t *testing.T) {
	require.True(t, StatusContinue.ShouldContinue())
	require.True(t, StatusContinueIfNotQuiet.ShouldContinue())
	require.False(t, StatusTail.ShouldContinue())
	require.False(t, StatusSleep.ShouldContinue())
	require.False(t, StatusError.ShouldContinue())
}

func TestStatusStringCoversEveryValue(t *testing.T) {
	require.Equal(t, "error", StatusError.String())
	require.Equal(t, "continue", StatusContinue.String())
	require.Equal(t, "continue_if_not_quiet", StatusContinueIfNotQuiet.String())
	require.Equal(t, "tail", StatusTail.String())
	require.Equal(t, "sleep", StatusSleep.String())
	require.Equal(t, "unknown", Status(99).String())
}

func TestDefaultActivateSettingsMatchesEngineDefaults(t *testing.T) {
	s := DefaultActivateSettings()
	require.Equal(t, 44100.0, s.SampleRate)
	require.Equal(t, uint32(1), s.MinFrames)
	require.Equal(t, uint32(512), s.MaxFrames)
	require.Equal(t, 2, s.MinChannels)
	require.Equal(t, 2, s.MaxChannels)
	require.Equal(t, 256, s.EventInCap)
	require.Equal(t, 256, s.EventOutCap)
}

func TestActivateErrorWrapsUnderlyingSentinel(t *testing.T) {
	err := &ActivateError{Step: "ports", Err: ErrPortQueryFailed}
	require.ErrorIs(t, err, ErrPortQueryFailed)
	require.Equal(t, "activate: ports: failed to query audio/note port layout", err.Error())
	require.True(t, errors.Is(err, ErrPortQueryFailed))
}
