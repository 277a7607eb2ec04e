package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rtcorbin/ecsrun/internal/registry"
)

func TestEntitySetAddRemoveContains(t *testing.T) {
	var s EntitySet
	require.False(t, s.Contains(5))

	require.True(t, s.Add(5))
	require.True(t, s.Contains(5))
	require.False(t, s.Add(5))
	require.Equal(t, 1, s.Len())

	require.True(t, s.Remove(5))
	require.False(t, s.Contains(5))
	require.False(t, s.Remove(5))
	require.Zero(t, s.Len())
}

func TestEntitySetAddAcrossWordBoundary(t *testing.T) {
	var s EntitySet
	s.Add(3)
	s.Add(130) // second word

	require.True(t, s.Contains(3))
	require.True(t, s.Contains(130))
	require.Equal(t, 2, s.Len())
}

func TestEntitySetEachVisitsAllMembersAscending(t *testing.T) {
	var s EntitySet
	ids := []registry.EntityID{1, 64, 65, 200}
	for _, id := range ids {
		s.Add(id)
	}

	var seen []registry.EntityID
	s.Each(func(id registry.EntityID) { seen = append(seen, id) })
	require.Equal(t, ids, seen)
}

func TestEntitySetClearEmptiesWithoutReleasingBackingArray(t *testing.T) {
	var s EntitySet
	s.Add(1)
	s.Add(2)
	s.Clear()
	require.Zero(t, s.Len())
	require.False(t, s.Contains(1))
	require.True(t, s.Add(1))
}
