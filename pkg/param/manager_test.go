package param

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func gainInfo() Info {
	return Info{ID: 1, Name: "Gain", MinValue: 0, MaxValue: 2, DefaultValue: 1,
		Flags: FlagAutomatable | FlagBoundedBelow | FlagBoundedAbove}
}

func TestRegisterSeedsDefaultAndRejectsDuplicate(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(gainInfo()))
	require.Equal(t, 1.0, m.Get(1))

	require.ErrorIs(t, m.Register(gainInfo()), ErrParamExists)
	require.Equal(t, 1, m.Count())
}

func TestSetEnforcesBounds(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(gainInfo()))

	require.ErrorIs(t, m.Set(1, -0.5), ErrValueBelowMinimum)
	require.ErrorIs(t, m.Set(1, 3.0), ErrValueAboveMaximum)
	require.NoError(t, m.Set(1, 1.5))
	require.Equal(t, 1.5, m.Get(1))
}

func TestSetUnregisteredIDReturnsError(t *testing.T) {
	m := NewManager()
	require.ErrorIs(t, m.Set(42, 1.0), ErrInvalidParam)
	require.Equal(t, 0.0, m.Get(42))
}

func TestSetNotifiesListenersOnlyOnActualChange(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(gainInfo()))

	var calls int
	_, err := m.AddListener(func(id ID, oldValue, newValue float64) {
		calls++
		require.Equal(t, ID(1), id)
		require.Equal(t, 1.0, oldValue)
		require.Equal(t, 1.5, newValue)
	})
	require.NoError(t, err)

	require.NoError(t, m.Set(1, 1.5))
	require.NoError(t, m.Set(1, 1.5), "setting the same value again must not re-notify")
	require.Equal(t, 1, calls)
}

func TestRemoveListenerStopsNotifications(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(gainInfo()))

	var calls int
	token, err := m.AddListener(func(ID, float64, float64) { calls++ })
	require.NoError(t, err)

	require.True(t, m.RemoveListener(token))
	require.False(t, m.RemoveListener(token), "already removed")

	require.NoError(t, m.Set(1, 0.1))
	require.Equal(t, 0, calls)
}

func TestListenerLimitReached(t *testing.T) {
	m := NewManager()
	for i := 0; i < MaxListeners; i++ {
		_, err := m.AddListener(func(ID, float64, float64) {})
		require.NoError(t, err)
	}
	_, err := m.AddListener(func(ID, float64, float64) {})
	require.ErrorIs(t, err, ErrListenerLimitReached)
}

func TestResetToDefaultsRestoresEveryParam(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(gainInfo()))
	require.NoError(t, m.Set(1, 1.9))

	m.ResetToDefaults()
	require.Equal(t, 1.0, m.Get(1))
}

func TestGetInfoByIndexFollowsRegistrationOrder(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(Info{ID: 5, Name: "First"}))
	require.NoError(t, m.Register(Info{ID: 2, Name: "Second"}))

	info, err := m.GetInfoByIndex(1)
	require.NoError(t, err)
	require.Equal(t, ID(2), info.ID)

	_, err = m.GetInfoByIndex(2)
	require.ErrorIs(t, err, ErrInvalidParam)
}
