package query

import (
	"math/bits"

	"github.com/rtcorbin/ecsrun/internal/registry"
)

// EntitySet is a growable bitset of entity ids, used for a query's result
// set and its transient delta. A map would work too, but a bitset keeps
// membership tests and iteration allocation-free in the steady state.
type EntitySet struct {
	words []uint64
	count int
}

func wordBit(id registry.EntityID) (int, uint64) {
	return int(id) >> 6, 1 << (uint(id) & 63)
}

// Contains reports whether id is a member.
func (s *EntitySet) Contains(id registry.EntityID) bool {
	w, bit := wordBit(id)
	if w >= len(s.words) {
		return false
	}
	return s.words[w]&bit != 0
}

// Add inserts id, returning true if it was newly inserted.
func (s *EntitySet) Add(id registry.EntityID) bool {
	w, bit := wordBit(id)
	for len(s.words) <= w {
		s.words = append(s.words, 0)
	}
	if s.words[w]&bit != 0 {
		return false
	}
	s.words[w] |= bit
	s.count++
	return true
}

// Remove deletes id, returning true if it was present.
func (s *EntitySet) Remove(id registry.EntityID) bool {
	w, bit := wordBit(id)
	if w >= len(s.words) || s.words[w]&bit == 0 {
		return false
	}
	s.words[w] &^= bit
	s.count--
	return true
}

// Clear empties the set without releasing its backing array.
func (s *EntitySet) Clear() {
	for i := range s.words {
		s.words[i] = 0
	}
	s.count = 0
}

// Len returns the number of members.
func (s *EntitySet) Len() int { return s.count }

// Each calls fn for every member id in ascending order.
func (s *EntitySet) Each(fn func(registry.EntityID)) {
	for w, word := range s.words {
		for word != 0 {
			i := bits.TrailingZeros64(word)
			fn(registry.EntityID(w*64 + i))
			word &^= 1 << uint(i)
		}
	}
}
