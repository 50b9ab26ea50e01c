package state

import (
	"testing"
	"time"
)

// fixedClock returns a now func pinned to a settable instant.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time { return c.t }

func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(threshold float64) (*Store, *fixedClock) {
	clk := &fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(threshold)
	s.now = clk.now
	return s, clk
}

func TestPushReading_LastValueWins(t *testing.T) {
	s, clk := newTestStore(100)

	for _, v := range []float64{10, 250, 42} {
		clk.advance(time.Second)
		s.PushReading(v)
	}

	snap := s.Snapshot()
	if snap.Reading.CurrentReading != 42 {
		t.Errorf("CurrentReading = %v, want 42", snap.Reading.CurrentReading)
	}
	if snap.Reading.AlertActive {
		t.Error("AlertActive = true, want false for reading below threshold")
	}
	if got, want := snap.Reading.LastUpdateAt, clk.t; !got.Equal(want) {
		t.Errorf("LastUpdateAt = %v, want %v", got, want)
	}
}

func TestPushReading_AlertFlagTracksThreshold(t *testing.T) {
	s, _ := newTestStore(100)

	tests := []struct {
		value float64
		want  bool
	}{
		{0, false},
		{99.9, false},
		{100, true},
		{500, true},
		{50, false}, // falls back below threshold
	}
	for _, tt := range tests {
		s.PushReading(tt.value)
		if got := s.Snapshot().Reading.AlertActive; got != tt.want {
			t.Errorf("PushReading(%v): AlertActive = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestRecordAttempt_ClaimsSlot(t *testing.T) {
	s, clk := newTestStore(100)

	s.RecordAttempt()

	snap := s.Snapshot()
	if !snap.Call.Active {
		t.Error("Active = false after RecordAttempt, want true")
	}
	if !snap.Call.LastCallAttemptAt.Equal(clk.t) {
		t.Errorf("LastCallAttemptAt = %v, want %v", snap.Call.LastCallAttemptAt, clk.t)
	}
	if !snap.Call.LastSuccessAt.IsZero() {
		t.Error("LastSuccessAt set by RecordAttempt")
	}
}

func TestRecordDispatchFailure_ReleasesSlotKeepsAttemptTime(t *testing.T) {
	s, clk := newTestStore(100)

	s.RecordAttempt()
	attemptAt := clk.t
	clk.advance(2 * time.Second)
	s.RecordDispatchFailure()

	snap := s.Snapshot()
	if snap.Call.Active {
		t.Error("Active = true after dispatch failure, want false")
	}
	if !snap.Call.LastCallAttemptAt.Equal(attemptAt) {
		t.Errorf("LastCallAttemptAt = %v, want original attempt time %v", snap.Call.LastCallAttemptAt, attemptAt)
	}
}

func TestRecordOutcome_CompletedStampsSuccess(t *testing.T) {
	s, clk := newTestStore(100)

	s.RecordAttempt()
	clk.advance(time.Minute)
	s.RecordOutcome(OutcomeCompleted)

	snap := s.Snapshot()
	if snap.Call.Active {
		t.Error("Active = true after completed outcome, want false")
	}
	if !snap.Call.LastSuccessAt.Equal(clk.t) {
		t.Errorf("LastSuccessAt = %v, want %v", snap.Call.LastSuccessAt, clk.t)
	}
}

func TestRecordOutcome_FailedDoesNotStampSuccess(t *testing.T) {
	s, clk := newTestStore(100)

	s.RecordAttempt()
	clk.advance(time.Minute)
	s.RecordOutcome(OutcomeFailed)

	snap := s.Snapshot()
	if snap.Call.Active {
		t.Error("Active = true after failed outcome, want false")
	}
	if !snap.Call.LastSuccessAt.IsZero() {
		t.Errorf("LastSuccessAt = %v, want zero", snap.Call.LastSuccessAt)
	}
}

func TestRecordOutcome_Idempotent(t *testing.T) {
	s, clk := newTestStore(100)

	s.RecordAttempt()
	clk.advance(time.Minute)
	s.RecordOutcome(OutcomeCompleted)
	first := s.Snapshot().Call

	// Duplicate webhook delivery at the same instant.
	s.RecordOutcome(OutcomeCompleted)
	second := s.Snapshot().Call

	if first != second {
		t.Errorf("duplicate outcome changed state: first %+v, second %+v", first, second)
	}
}

func TestRecordOutcome_BeforeAttemptIsHarmless(t *testing.T) {
	s, _ := newTestStore(100)

	// Status webhook racing ahead of the local dispatch response: must not
	// panic and must leave a sane, inactive state.
	s.RecordOutcome(OutcomeFailed)

	snap := s.Snapshot()
	if snap.Call.Active {
		t.Error("Active = true, want false")
	}
	if !snap.Call.LastCallAttemptAt.IsZero() {
		t.Error("LastCallAttemptAt set without an attempt")
	}
}

func TestClearActive(t *testing.T) {
	s, _ := newTestStore(100)

	s.RecordAttempt()
	s.ClearActive()

	if s.Snapshot().Call.Active {
		t.Error("Active = true after ClearActive, want false")
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s, _ := newTestStore(100)

	snap := s.Snapshot()
	snap.Call.Active = true
	snap.Reading.CurrentReading = 999

	after := s.Snapshot()
	if after.Call.Active || after.Reading.CurrentReading != 0 {
		t.Error("mutating a snapshot leaked into the store")
	}
}
