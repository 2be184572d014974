package param

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderDefaultsToUnitRange(t *testing.T) {
	info := NewBuilder(1, "Mix").MustBuild()
	require.Equal(t, 0.0, info.MinValue)
	require.Equal(t, 1.0, info.MaxValue)
	require.Equal(t, 0.5, info.DefaultValue)
	require.Equal(t, FlagAutomatable, info.Flags)
}

func TestBuilderRangeRejectsInvertedBounds(t *testing.T) {
	_, err := NewBuilder(1, "Mix").Range(1, 0, 0.5).Build()
	require.Error(t, err)
}

func TestBuilderRangeRejectsOutOfRangeDefault(t *testing.T) {
	_, err := NewBuilder(1, "Mix").Range(0, 1, 5).Build()
	require.Error(t, err)
}

func TestBuilderBuildRequiresName(t *testing.T) {
	_, err := NewBuilder(1, "").Build()
	require.Error(t, err)
}

func TestBuilderChainsFlags(t *testing.T) {
	info := NewBuilder(1, "Cutoff").Bounded().Modulatable().Stepped().MustBuild()
	require.NotZero(t, info.Flags&FlagBoundedBelow)
	require.NotZero(t, info.Flags&FlagBoundedAbove)
	require.NotZero(t, info.Flags&FlagModulatable)
	require.NotZero(t, info.Flags&FlagStepped)
	require.NotZero(t, info.Flags&FlagAutomatable, "Automatable is part of NewBuilder's defaults")
}

func TestMustBuildPanicsOnInvalidRange(t *testing.T) {
	require.Panics(t, func() {
		NewBuilder(1, "Bad").Range(1, 0, 0).MustBuild()
	})
}

func TestErrorShortCircuitsFurtherChaining(t *testing.T) {
	_, err := NewBuilder(1, "Mix").Range(1, 0, 0.5).Module("Mixer").Cookie(7).Build()
	require.Error(t, err, "an error set by Range must survive later chained calls")
}
