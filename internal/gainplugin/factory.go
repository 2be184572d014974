package gainplugin

import "github.com/justyntemme/audioengine/pkg/pluginapi"

// Factory satisfies scanner.Factory for the gain plugin, standing in for
// the real scan-and-bind step a CLAP/C-ABI scanner would perform.
type Factory struct{}

func (Factory) Info() pluginapi.Info { return New().GetInfo() }

func (Factory) Create() (pluginapi.Plugin, error) { return New(), nil }
