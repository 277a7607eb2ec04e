// Package changelog implements the two append-only change streams the
// scheduler consumes: the shape log (entities whose component set changed)
// and the write log (component writes). Both are plain growable slices with
// per-consumer cursors that each advance independently, so a slow consumer
// never blocks a fast one and no consumer sees an entry twice.
//
// The pack/unpack helpers below deal only in raw uint32 ids and type
// numbers, not registry.EntityID/registry.ComponentTypeID: this package has
// no dependency on registry, registry depends on this one.
package changelog

import "fmt"

// EntityIDBits is the width reserved for the entity id in a packed write-log
// entry: entry = (componentTypeID << EntityIDBits) | entityID.
const EntityIDBits = 32

// EntityIDMask extracts the entity id from a packed write-log entry.
const EntityIDMask = (1 << EntityIDBits) - 1

// ErrCursorPastTail is the panic payload raised when ProcessSince finds a
// cursor positioned beyond the log's current tail. The package's own API
// never produces such a cursor; this only happens if the cursor's owner
// mutated its position directly.
type ErrCursorPastTail struct{ Cursor *Cursor }

func (e ErrCursorPastTail) Error() string {
	return fmt.Sprintf("changelog: cursor %p advanced past tail", e.Cursor)
}

// Cursor is a consumer's read position into a Log. The zero value reads
// from the start of whatever log it's first used against.
type Cursor struct {
	pos int
}

// Log is an append-only sequence of uint64 entries with monotonically
// advancing per-consumer cursors.
type Log struct {
	entries []uint64
}

// New returns an empty log.
func New() *Log { return &Log{} }

// Append adds an entry to the tail of the log.
func (l *Log) Append(entry uint64) {
	l.entries = append(l.entries, entry)
}

// CreatePointer returns a cursor anchored at the log's current tail (so it
// will not see any entry appended before this call), or re-anchors reuse if
// given.
func (l *Log) CreatePointer(reuse *Cursor) *Cursor {
	c := reuse
	if c == nil {
		c = &Cursor{}
	}
	c.pos = len(l.entries)
	return c
}

// HasUpdatesSince reports whether entries exist past the cursor's position.
func (l *Log) HasUpdatesSince(c *Cursor) bool {
	return c.pos < len(l.entries)
}

// ProcessSince returns the contiguous slice of entries new since c, advancing
// c past them, or ok=false if the cursor is already caught up to the tail.
func (l *Log) ProcessSince(c *Cursor) (buf []uint64, start, end int, ok bool) {
	if c.pos > len(l.entries) {
		panic(ErrCursorPastTail{Cursor: c})
	}
	if c.pos == len(l.entries) {
		return nil, 0, 0, false
	}
	start, end = c.pos, len(l.entries)
	buf = l.entries[start:end]
	c.pos = end
	return buf, start, end, true
}

// ShapeEntry packs an entity id for the shape log; shape-log entries are
// bare entity ids (no component type).
func ShapeEntry(id uint32) uint64 { return uint64(id) }

// ShapeEntryEntity unpacks a shape-log entry.
func ShapeEntryEntity(entry uint64) uint32 { return uint32(entry) }

// WriteEntry packs a (componentTypeID, entityID) pair for the write log.
func WriteEntry(t int, id uint32) uint64 {
	return uint64(t)<<EntityIDBits | uint64(id)
}

// WriteEntryParts unpacks a write-log entry into its component type number
// and entity id.
func WriteEntryParts(entry uint64) (t int, id uint32) {
	return int(entry >> EntityIDBits), uint32(entry & EntityIDMask)
}
