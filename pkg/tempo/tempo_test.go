package tempo

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCellLoadReturnsSeededValue(t *testing.T) {
	c := NewCell(Map{BPM: 120, TimeSigNumer: 4, TimeSigDenom: 4})
	m := c.Load()
	require.Equal(t, 120.0, m.BPM)
	require.Equal(t, 4, m.TimeSigNumer)
}

func TestCellStoreReplacesWholeValue(t *testing.T) {
	c := NewCell(Map{BPM: 120})
	c.Store(Map{BPM: 90, TimeSigNumer: 3, TimeSigDenom: 4, SamplePosition: 48000})
	m := c.Load()
	require.Equal(t, 90.0, m.BPM)
	require.Equal(t, 3, m.TimeSigNumer)
	require.Equal(t, int64(48000), m.SamplePosition)
}

func TestCellConcurrentLoadStoreDoesNotRace(t *testing.T) {
	c := NewCell(Map{BPM: 120})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.Store(Map{BPM: float64(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = c.Load()
		}
	}()
	wg.Wait()
}
