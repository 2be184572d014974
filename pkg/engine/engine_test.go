package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/justyntemme/audioengine/internal/gainplugin"
	"github.com/justyntemme/audioengine/pkg/collector"
	"github.com/justyntemme/audioengine/pkg/engine"
	"github.com/justyntemme/audioengine/pkg/graph"
	"github.com/justyntemme/audioengine/pkg/logging"
	"github.com/justyntemme/audioengine/pkg/metrics"
	"github.com/justyntemme/audioengine/pkg/pluginapi"
	"github.com/justyntemme/audioengine/pkg/scanner"
)

func newTestEngine(t *testing.T) (*engine.Engine, context.CancelFunc) {
	t.Helper()
	reg := scanner.New()
	reg.Register(gainplugin.Key, gainplugin.Factory{})

	e := engine.New(reg, logging.Nop(), metrics.NewRecorder(48000, 512), collector.New(nil))
	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	return e, cancel
}

func waitForEvent(t *testing.T, e *engine.Engine, timeout time.Duration) engine.Event {
	t.Helper()
	select {
	case ev := <-e.Events():
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestActivateEnginePublishesScheduleAndEvent(t *testing.T) {
	e, cancel := newTestEngine(t)
	defer cancel()

	e.Send(engine.ActivateEngineRequest{Settings: pluginapi.DefaultActivateSettings()})
	ev := waitForEvent(t, e, time.Second)

	activated, ok := ev.(engine.EngineActivatedEvent)
	require.True(t, ok, "expected EngineActivatedEvent, got %T", ev)
	require.Equal(t, 44100.0, activated.SampleRate)

	require.Eventually(t, func() bool { return e.ScheduleCell() != nil }, time.Second, time.Millisecond)
}

func TestModifyGraphAddsAndWiresGainPlugin(t *testing.T) {
	e, cancel := newTestEngine(t)
	defer cancel()

	e.Send(engine.ActivateEngineRequest{Settings: pluginapi.DefaultActivateSettings()})
	require.IsType(t, engine.EngineActivatedEvent{}, waitForEvent(t, e, time.Second))

	e.Send(engine.ModifyGraphRequest{Ops: []engine.GraphOp{
		engine.AddPluginOp{Debug: "gain", Key: gainplugin.Key},
		engine.ConnectOp{
			Type: graph.PortAudio,
			From: engine.ExistingEndpoint(graph.GraphIn),
			To:   engine.AddedEndpoint(0),
		},
		engine.ConnectOp{
			Type: graph.PortAudio,
			From: engine.AddedEndpoint(0),
			To:   engine.ExistingEndpoint(graph.GraphOut),
		},
	}})

	ev := waitForEvent(t, e, time.Second)
	modified, ok := ev.(engine.AudioGraphModifiedEvent)
	require.True(t, ok, "expected AudioGraphModifiedEvent, got %T", ev)
	require.Len(t, modified.NewPlugins, 1)

	sched := e.ScheduleCell().Load()
	require.NotEmpty(t, sched.Tasks, "compiling with one inserted plugin must produce at least one task")
}

func TestModifyGraphIgnoredBeforeActivate(t *testing.T) {
	e, cancel := newTestEngine(t)
	defer cancel()

	e.Send(engine.ModifyGraphRequest{Ops: []engine.GraphOp{
		engine.AddPluginOp{Debug: "gain", Key: gainplugin.Key},
	}})

	select {
	case ev := <-e.Events():
		t.Fatalf("expected no event before ActivateEngine, got %T", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDeactivateEngineEmitsGracefulEventWithSaveState(t *testing.T) {
	e, cancel := newTestEngine(t)
	defer cancel()

	e.Send(engine.ActivateEngineRequest{Settings: pluginapi.DefaultActivateSettings()})
	require.IsType(t, engine.EngineActivatedEvent{}, waitForEvent(t, e, time.Second))

	e.Send(engine.DeactivateEngineRequest{})
	ev := waitForEvent(t, e, time.Second)
	deactivated, ok := ev.(engine.EngineDeactivatedEvent)
	require.True(t, ok, "expected EngineDeactivatedEvent, got %T", ev)
	require.True(t, deactivated.Graceful)
	require.NotNil(t, deactivated.SaveState)

	require.IsType(t, engine.AudioGraphClearedEvent{}, waitForEvent(t, e, time.Second))
}
