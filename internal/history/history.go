// Package history holds the most recent evaluation results for the read-only
// API. One evaluation loop writes; any number of API handlers read.
package history

import (
	"sync"
	"time"

	"github.com/hlv-labs/phase-readiness/go-middleware/internal/readiness"
)

// #region types

// Record is one evaluated snapshot: the signals that went in, the output that
// came back, and the wall-clock instant the store observed it.
type Record struct {
	At      time.Time
	Signals readiness.Signals
	Output  readiness.Output
}

// DefaultCapacity bounds the history ring when no explicit capacity is set.
const DefaultCapacity = 100

// #endregion types

// #region store

// Store is a bounded, mutex-guarded snapshot store. Readers always see whole
// records; a torn read is impossible because every access copies under the
// same lock the writer holds.
type Store struct {
	mu       sync.Mutex
	records  []Record
	capacity int
}

// NewStore creates an empty store with DefaultCapacity.
func NewStore() *Store {
	return &Store{capacity: DefaultCapacity}
}

// Update appends one evaluated snapshot, evicting the oldest record once the
// store is at capacity.
func (s *Store) Update(sig readiness.Signals, out readiness.Output) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, Record{At: time.Now().UTC(), Signals: sig, Output: out})
	if n := len(s.records) - s.capacity; n > 0 {
		s.records = append(s.records[:0], s.records[n:]...)
	}
}

// Current returns the most recent record. ok is false until the first Update.
func (s *Store) Current() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 {
		return Record{}, false
	}
	return s.records[len(s.records)-1], true
}

// History returns up to max records, oldest first. max <= 0 means all.
func (s *Store) History(max int) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	if max > 0 && max < n {
		n = max
	}
	out := make([]Record, n)
	copy(out, s.records[len(s.records)-n:])
	return out
}

// Len returns the number of retained records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// SetCapacity changes the retention bound and trims existing records to fit.
// Capacities below 1 are coerced to 1.
func (s *Store) SetCapacity(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 1 {
		n = 1
	}
	s.capacity = n
	if excess := len(s.records) - n; excess > 0 {
		s.records = append(s.records[:0], s.records[excess:]...)
	}
}

// #endregion store
