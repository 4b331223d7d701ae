// Package index provides a bidirectional mapping between node identities and
// dense integer indices.
//
// Indices are assigned in first-seen order starting at zero and never change
// once assigned. A [Map] is built by a single producer (the crawler or the
// edge-list reader) and then frozen before it is shared, after which it is
// safe for concurrent readers.
package index

import (
	"errors"
	"fmt"
)

var (
	// ErrFrozen is returned by [Map.Add] when an unseen identity is added to
	// a frozen map.
	ErrFrozen = errors.New("index: map is frozen")

	// ErrUnknown is returned when an identity or index is not in the map.
	ErrUnknown = errors.New("index: unknown node")
)

// Map assigns dense indices to string identities.
// The zero value is ready to use.
type Map struct {
	fwd    map[string]int
	inv    []string
	frozen bool
}

// New returns an empty map with room for n identities.
func New(n int) *Map {
	return &Map{
		fwd: make(map[string]int, n),
		inv: make([]string, 0, n),
	}
}

// FromIDs builds a frozen map whose indices follow the order of ids.
// Duplicate ids keep their first index.
func FromIDs(ids []string) *Map {
	m := New(len(ids))
	for _, id := range ids {
		m.Register(id)
	}
	m.Freeze()
	return m
}

// Register returns the index of id, assigning the next free index if id has
// not been seen. The boolean reports whether a new index was assigned.
// Register panics on a frozen map when id is unseen; use [Map.Add] when that
// is a recoverable condition.
func (m *Map) Register(id string) (int, bool) {
	i, added, err := m.add(id)
	if err != nil {
		panic(err)
	}
	return i, added
}

// Add is like Register but reports ErrFrozen instead of panicking.
func (m *Map) Add(id string) (int, error) {
	i, _, err := m.add(id)
	return i, err
}

func (m *Map) add(id string) (int, bool, error) {
	if i, ok := m.fwd[id]; ok {
		return i, false, nil
	}
	if m.frozen {
		return -1, false, fmt.Errorf("%w: cannot add %q", ErrFrozen, id)
	}
	if m.fwd == nil {
		m.fwd = make(map[string]int)
	}
	i := len(m.inv)
	m.fwd[id] = i
	m.inv = append(m.inv, id)
	return i, true, nil
}

// Index returns the index of id.
func (m *Map) Index(id string) (int, bool) {
	i, ok := m.fwd[id]
	return i, ok
}

// MustIndex returns the index of id or an error wrapping ErrUnknown.
func (m *Map) MustIndex(id string) (int, error) {
	i, ok := m.fwd[id]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknown, id)
	}
	return i, nil
}

// ID returns the identity at index i.
func (m *Map) ID(i int) (string, bool) {
	if i < 0 || i >= len(m.inv) {
		return "", false
	}
	return m.inv[i], true
}

// Contains reports whether id has been registered.
func (m *Map) Contains(id string) bool {
	_, ok := m.fwd[id]
	return ok
}

// Len returns the number of registered identities.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.inv)
}

// IDs returns a copy of all identities in index order.
func (m *Map) IDs() []string {
	out := make([]string, len(m.inv))
	copy(out, m.inv)
	return out
}

// Freeze makes the map read-only. It is idempotent.
func (m *Map) Freeze() { m.frozen = true }

// Frozen reports whether Freeze has been called.
func (m *Map) Frozen() bool { return m.frozen }
