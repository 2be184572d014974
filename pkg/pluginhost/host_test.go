package pluginhost_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/justyntemme/audioengine/internal/gainplugin"
	"github.com/justyntemme/audioengine/pkg/graph"
	"github.com/justyntemme/audioengine/pkg/logging"
	"github.com/justyntemme/audioengine/pkg/pluginapi"
	"github.com/justyntemme/audioengine/pkg/pluginhost"
)

func newActivatedHost(t *testing.T) (*pluginhost.PluginInstanceHost, graph.InstanceID) {
	t.Helper()
	id := graph.InstanceID{}
	log := logging.Nop()
	plugin := gainplugin.New()
	host := pluginhost.New(id, plugin, graph.PluginSaveState{Key: gainplugin.Key}, log)
	_, err := host.Activate(pluginapi.DefaultActivateSettings())
	require.NoError(t, err)
	return host, id
}

func TestNewUnloadedPluginStartsInactiveWithError(t *testing.T) {
	host := pluginhost.New(graph.InstanceID{}, nil, graph.PluginSaveState{}, logging.Nop())
	require.Equal(t, pluginhost.StateInactiveWithError, host.State())
	require.ErrorIs(t, host.CanActivate(), pluginhost.ErrNotLoaded)
}

func TestActivateTransitionsToActiveAndBuildsAudioSibling(t *testing.T) {
	host, _ := newActivatedHost(t)
	require.Equal(t, pluginhost.StateActive, host.State())
	require.NotNil(t, host.AudioThread())
}

func TestActivateTwiceReturnsAlreadyActive(t *testing.T) {
	host, _ := newActivatedHost(t)
	_, err := host.Activate(pluginapi.DefaultActivateSettings())
	require.ErrorIs(t, err, pluginhost.ErrAlreadyActive)
}

func TestScheduleDeactivateOnlyAppliesWhenActive(t *testing.T) {
	host := pluginhost.New(graph.InstanceID{}, nil, graph.PluginSaveState{}, logging.Nop())
	host.ScheduleDeactivate()
	require.Equal(t, pluginhost.StateInactiveWithError, host.State(), "no-op unless currently active")
}

func TestScheduleRemoveDropsInstanceOnceAudioSiblingReleases(t *testing.T) {
	host, _ := newActivatedHost(t)
	audio := host.AudioThread()

	host.ScheduleRemove()
	require.Equal(t, pluginhost.StateWaitingToDrop, host.State())

	require.False(t, host.OnIdle(), "still waiting on the audio sibling to report dropped")

	audio.Drop()
	require.True(t, host.OnIdle(), "once dropped, OnIdle reports ready to remove")
	require.Nil(t, host.AudioThread())
}

func TestDrainParamChangesEmptyWhenPluginEmitsNoOutputEvents(t *testing.T) {
	host, _ := newActivatedHost(t)
	audio := host.AudioThread()

	ctx := context.Background()
	in := [][]float32{make([]float32, 4), make([]float32, 4)}
	out := [][]float32{make([]float32, 4), make([]float32, 4)}

	audio.UIToAudioValue().Set(gainplugin.GainParamID, 0.25)
	_, err := audio.Process(ctx, in, out, 0)
	require.NoError(t, err)

	for ch := range out {
		for _, v := range out[ch] {
			require.Equal(t, float32(0), v, "silent input stays silent regardless of gain")
		}
	}

	changes := host.DrainParamChanges()
	require.Empty(t, changes, "the gain plugin never writes to eventsOut, so nothing is fed back")
}
