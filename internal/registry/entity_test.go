package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntityPoolCreateAssignsDenseIncreasingIDs(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	b := p.Create()
	require.NotZero(t, a)
	require.Equal(t, a+1, b)
}

func TestEntityPoolDestroyedIDIsNotAlive(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	require.True(t, p.Alive(a))
	p.Destroy(a)
	require.False(t, p.Alive(a))
}

func TestEntityPoolReusedSlotIsAliveAgain(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	p.Destroy(a)
	b := p.Create()
	require.Equal(t, a, b)
	require.True(t, p.Alive(b))
}

func TestEntityPoolZeroIDIsNeverAlive(t *testing.T) {
	p := NewEntityPool()
	require.False(t, p.Alive(0))
}

func TestEntityPoolMaxTracksHighestAllocated(t *testing.T) {
	p := NewEntityPool()
	require.Equal(t, EntityID(0), p.Max())
	a := p.Create()
	b := p.Create()
	require.Equal(t, b, p.Max())
	p.Destroy(a)
	require.Equal(t, b, p.Max())
}
