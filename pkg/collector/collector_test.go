package collector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type closeTracker struct{ closed bool }

func (c *closeTracker) Close() { c.closed = true }

func TestRetiredObjectSurvivesOneDrainCycle(t *testing.T) {
	c := New(nil)
	obj := &closeTracker{}
	c.Retire(obj)

	c.Drain()
	require.False(t, obj.closed, "an object retired this cycle must not be freed by the very next Drain")

	c.Drain()
	require.True(t, obj.closed, "the second Drain after retirement must free it")
}

func TestPendingCountsBothGenerations(t *testing.T) {
	c := New(nil)
	require.Equal(t, 0, c.Pending())

	c.Retire(&closeTracker{})
	require.Equal(t, 1, c.Pending())

	c.Drain()
	require.Equal(t, 1, c.Pending(), "moved from pending to generation, still outstanding")

	c.Drain()
	require.Equal(t, 0, c.Pending())
}

func TestDrainClosesInRetirementOrder(t *testing.T) {
	c := New(nil)
	var order []int
	track := func(n int) *orderTracker { return &orderTracker{n: n, order: &order} }

	c.Retire(track(1))
	c.Retire(track(2))
	c.Drain() // promotes 1,2 to generation
	c.Retire(track(3))
	c.Drain() // frees 1,2; promotes 3

	require.Equal(t, []int{1, 2}, order)
}

type orderTracker struct {
	n     int
	order *[]int
}

func (o *orderTracker) Close() { *o.order = append(*o.order, o.n) }
