package docfield

import "strings"

type seqLevelKey struct {
	id    string
	level int
}

// Sequences holds the named counters used by SEQ fields. Identifiers are
// case-insensitive.
type Sequences struct {
	values map[string]int
	// lastMark remembers the heading mark seen by the last \s reset per identifier and level
	lastMark map[seqLevelKey]int
}

// NewSequences creates an empty counter set
func NewSequences() *Sequences {
	return &Sequences{
		values:   make(map[string]int),
		lastMark: make(map[seqLevelKey]int),
	}
}

// Next increments id and returns the new value
func (s *Sequences) Next(id string) int {
	key := strings.ToLower(id)
	s.values[key]++
	return s.values[key]
}

// Get returns the current value of id without changing it
func (s *Sequences) Get(id string) int {
	return s.values[strings.ToLower(id)]
}

// Set makes k the current value of id
func (s *Sequences) Set(id string, k int) {
	s.values[strings.ToLower(id)] = k
}

// resetForHeading resets id to zero when the heading mark for level changed
// since the last call for the same identifier and level.
func (s *Sequences) resetForHeading(id string, level, mark int) bool {
	key := seqLevelKey{id: strings.ToLower(id), level: level}
	if s.lastMark[key] == mark {
		return false
	}
	s.lastMark[key] = mark
	s.Set(id, 0)
	return true
}
