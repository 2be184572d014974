package engine

import (
	"github.com/justyntemme/audioengine/pkg/graph"
	"github.com/justyntemme/audioengine/pkg/pluginapi"
	"github.com/justyntemme/audioengine/pkg/tempo"
)

// Request is anything M accepts on its request channel. The concrete types
// below mirror spec.md §4.5's request union one-for-one.
type Request interface{ isRequest() }

type ModifyGraphRequest struct{ Ops []GraphOp }
type ActivateEngineRequest struct{ Settings pluginapi.ActivateSettings }
type DeactivateEngineRequest struct{}
type RestoreFromSaveStateRequest struct{ SaveState graph.AudioGraphSaveState }
type RequestLatestSaveStateRequest struct{}
type RescanPluginDirectoriesRequest struct{}
type UpdateTempoMapRequest struct{ Map tempo.Map }

type PluginGuiAction int

const (
	PluginShowGui PluginGuiAction = iota
	PluginCloseGui
)

type PluginRequest struct {
	ID     graph.InstanceID
	Action PluginGuiAction
}

func (ModifyGraphRequest) isRequest()             {}
func (ActivateEngineRequest) isRequest()          {}
func (DeactivateEngineRequest) isRequest()        {}
func (RestoreFromSaveStateRequest) isRequest()    {}
func (RequestLatestSaveStateRequest) isRequest()  {}
func (RescanPluginDirectoriesRequest) isRequest() {}
func (UpdateTempoMapRequest) isRequest()          {}
func (PluginRequest) isRequest()                  {}

// GraphOp is one operation in a ModifyGraphRequest batch. Edge endpoints
// addressed via EndpointRef may reference either an instance already in the
// graph or one added earlier in the same batch, letting a single request
// atomically add and wire plugins (spec.md §4.2).
type GraphOp interface{ isGraphOp() }

type AddPluginOp struct {
	Debug string
	Key   graph.ScanKey
}

type RemovePluginOp struct{ ID graph.InstanceID }

type ConnectOp struct {
	Type           graph.PortType
	From           EndpointRef
	FromPort       uint32
	FromChannel    int
	To             EndpointRef
	ToPort         uint32
	ToChannel      int
	LogErrorOnFail bool
}

type DisconnectOp struct {
	Type        graph.PortType
	From        EndpointRef
	FromPort    uint32
	FromChannel int
	To          EndpointRef
	ToPort      uint32
	ToChannel   int
}

func (AddPluginOp) isGraphOp()    {}
func (RemovePluginOp) isGraphOp() {}
func (ConnectOp) isGraphOp()      {}
func (DisconnectOp) isGraphOp()   {}

// EndpointRef addresses one plugin instance for an edge: either one already
// present in the graph (Existing) or the Nth AddPluginOp earlier in the
// same batch (AddedIndex), resolved once every AddPluginOp in the batch has
// run.
type EndpointRef struct {
	Existing   graph.InstanceID
	IsExisting bool
	AddedIndex int
}

func ExistingEndpoint(id graph.InstanceID) EndpointRef {
	return EndpointRef{Existing: id, IsExisting: true}
}

func AddedEndpoint(index int) EndpointRef {
	return EndpointRef{AddedIndex: index}
}
