package alert

import (
	"testing"
	"time"

	"github.com/gasguard/gasguard/internal/state"
)

var (
	t0       = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	testGate = Gate{AckWindow: 15 * time.Minute, RetryCooldown: 30 * time.Second}
)

func snapshot(call state.CallState) state.Snapshot {
	return state.Snapshot{Call: call}
}

func TestMayCall_AllowsWhenIdle(t *testing.T) {
	d := testGate.MayCall(snapshot(state.CallState{}), t0)
	if !d.Allow {
		t.Fatalf("expected Allow for idle state, got deny: %s", d.Reason)
	}
}

func TestMayCall_DeniesWhileCallActive(t *testing.T) {
	// Active blocks regardless of how old the other timestamps are.
	call := state.CallState{
		Active:            true,
		LastCallAttemptAt: t0.Add(-time.Hour),
		LastSuccessAt:     t0.Add(-time.Hour),
	}
	for _, now := range []time.Time{t0, t0.Add(time.Hour), t0.Add(24 * time.Hour)} {
		d := testGate.MayCall(snapshot(call), now)
		if d.Allow || d.Reason != ReasonCallInProgress {
			t.Errorf("MayCall(now=%v) = %+v, want deny call_in_progress", now, d)
		}
	}
}

func TestMayCall_AckWindow(t *testing.T) {
	call := state.CallState{LastSuccessAt: t0}

	tests := []struct {
		elapsed time.Duration
		allow   bool
	}{
		{0, false},
		{time.Minute, false},
		{14*time.Minute + 59*time.Second, false},
		{15 * time.Minute, true},
		{time.Hour, true},
	}
	for _, tt := range tests {
		d := testGate.MayCall(snapshot(call), t0.Add(tt.elapsed))
		if d.Allow != tt.allow {
			t.Errorf("elapsed %v: Allow = %v, want %v", tt.elapsed, d.Allow, tt.allow)
		}
		if !tt.allow && d.Reason != ReasonAlreadyAcknowledged {
			t.Errorf("elapsed %v: Reason = %s, want already_acknowledged", tt.elapsed, d.Reason)
		}
	}
}

func TestMayCall_RetryCooldown(t *testing.T) {
	// Failed dispatch: attempt stamped, no success, slot released.
	call := state.CallState{LastCallAttemptAt: t0}

	tests := []struct {
		elapsed time.Duration
		allow   bool
	}{
		{0, false},
		{29 * time.Second, false},
		{30 * time.Second, true},
		{time.Minute, true},
	}
	for _, tt := range tests {
		d := testGate.MayCall(snapshot(call), t0.Add(tt.elapsed))
		if d.Allow != tt.allow {
			t.Errorf("elapsed %v: Allow = %v, want %v", tt.elapsed, d.Allow, tt.allow)
		}
		if !tt.allow && d.Reason != ReasonCooldownActive {
			t.Errorf("elapsed %v: Reason = %s, want cooldown_active", tt.elapsed, d.Reason)
		}
	}
}

func TestMayCall_DecisionOrder(t *testing.T) {
	// When several rules match, the earlier rule's reason wins.
	now := t0.Add(time.Second)

	both := state.CallState{
		Active:            true,
		LastSuccessAt:     t0,
		LastCallAttemptAt: t0,
	}
	if d := testGate.MayCall(snapshot(both), now); d.Reason != ReasonCallInProgress {
		t.Errorf("active+ack+cooldown: Reason = %s, want call_in_progress", d.Reason)
	}

	ackAndCooldown := state.CallState{
		LastSuccessAt:     t0,
		LastCallAttemptAt: t0,
	}
	if d := testGate.MayCall(snapshot(ackAndCooldown), now); d.Reason != ReasonAlreadyAcknowledged {
		t.Errorf("ack+cooldown: Reason = %s, want already_acknowledged", d.Reason)
	}
}

func TestMayCall_Deterministic(t *testing.T) {
	call := state.CallState{LastCallAttemptAt: t0, LastSuccessAt: t0.Add(-20 * time.Minute)}
	now := t0.Add(10 * time.Second)

	first := testGate.MayCall(snapshot(call), now)
	for i := 0; i < 100; i++ {
		if d := testGate.MayCall(snapshot(call), now); d != first {
			t.Fatalf("iteration %d: decision %+v differs from first %+v", i, d, first)
		}
	}
}

func TestMayCall_ZeroTimestampsDoNotSuppress(t *testing.T) {
	// A fresh process has zero-valued timestamps; neither window may treat
	// them as recent activity.
	d := Gate{AckWindow: 100 * 365 * 24 * time.Hour, RetryCooldown: 100 * 365 * 24 * time.Hour}.
		MayCall(snapshot(state.CallState{}), t0)
	if !d.Allow {
		t.Fatalf("zero timestamps suppressed the call: %+v", d)
	}
}
