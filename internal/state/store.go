// Package state holds the two process-lifetime singletons shared by every
// component: the call lifecycle record and the latest sensor reading. Both
// live behind one mutex so the alert gate always evaluates a consistent
// snapshot rather than a mix of stale and fresh fields.
package state

import (
	"sync"
	"time"
)

// CallState tracks the lifecycle of the single outbound call slot.
// At most one call is dialing or connected at any time.
type CallState struct {
	Active            bool
	LastCallAttemptAt time.Time // set on every initiate attempt
	LastSuccessAt     time.Time // set only when a call completes with the human engaged
}

// ReadingState tracks the most recent sensor reading.
type ReadingState struct {
	CurrentReading float64
	LastUpdateAt   time.Time
	AlertActive    bool // CurrentReading >= alert threshold
}

// Snapshot is a read-only copy of both singletons taken under the lock.
type Snapshot struct {
	Call    CallState
	Reading ReadingState
}

// Outcome is a terminal call delivery outcome folded into CallState.
type Outcome int

const (
	// OutcomeCompleted means the call ended with the human having engaged.
	// A voicemail pickup also reports "completed" and is indistinguishable
	// here; we accept that and trust the acknowledgment window.
	OutcomeCompleted Outcome = iota
	// OutcomeFailed covers busy, no-answer, failed and canceled deliveries.
	OutcomeFailed
)

// Store owns CallState and ReadingState. All mutations are total: they
// cannot fail, and every write is visible to the next read.
type Store struct {
	mu             sync.Mutex
	call           CallState
	reading        ReadingState
	alertThreshold float64

	now func() time.Time // swapped out in tests
}

// NewStore creates a store. Readings at or above alertThreshold mark the
// alert active.
func NewStore(alertThreshold float64) *Store {
	return &Store{
		alertThreshold: alertThreshold,
		now:            time.Now,
	}
}

// PushReading records the latest sensor value and recomputes the alert flag.
func (s *Store) PushReading(value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reading.CurrentReading = value
	s.reading.LastUpdateAt = s.now()
	s.reading.AlertActive = value >= s.alertThreshold
}

// RecordAttempt claims the single outbound call slot: it marks the call
// active and stamps the attempt time. Called immediately before dispatching
// to the provider so a racing trigger sees the slot taken.
func (s *Store) RecordAttempt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.call.Active = true
	s.call.LastCallAttemptAt = s.now()
}

// RecordDispatchFailure releases the call slot after the provider rejected
// the dispatch. The attempt timestamp is kept so the retry cooldown still
// applies to the failed attempt.
func (s *Store) RecordDispatchFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.call.Active = false
}

// RecordOutcome folds a terminal delivery outcome into the call state.
// Completed stamps the success time; every outcome releases the slot.
// Applying the same outcome twice re-sets the same fields, and an outcome
// arriving before the local dispatch returned (provider webhooks can race
// the REST response) is harmless for the same reason.
func (s *Store) RecordOutcome(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.call.Active = false
	if o == OutcomeCompleted {
		s.call.LastSuccessAt = s.now()
	}
}

// ClearActive releases the call slot without recording an outcome. Used by
// the operator-facing call-termination endpoint, which ends the call at the
// provider and does not wait for the status webhook.
func (s *Store) ClearActive() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.call.Active = false
}

// Snapshot returns a consistent copy of both singletons.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{Call: s.call, Reading: s.reading}
}
