// Package alert decides whether a sensor alert may place an outbound call.
// The gate is deliberately stateless: every external trigger re-evaluates it
// against a fresh state snapshot, which is what gives the system its
// retry-via-cooldown behavior without any background timers.
package alert

import (
	"time"

	"github.com/gasguard/gasguard/internal/state"
)

// Reason explains why the gate denied a call.
type Reason string

const (
	ReasonCallInProgress      Reason = "call_in_progress"
	ReasonAlreadyAcknowledged Reason = "already_acknowledged"
	ReasonCooldownActive      Reason = "cooldown_active"
)

// Decision is the outcome of a gate evaluation.
type Decision struct {
	Allow  bool
	Reason Reason // set only when Allow is false
}

// Gate holds the two suppression windows. They are asymmetric on purpose:
// the acknowledgment window is long because a human who answered is trusted
// to act, while the retry cooldown is short because failed or unanswered
// calls should retry soon.
type Gate struct {
	AckWindow     time.Duration
	RetryCooldown time.Duration
}

// MayCall evaluates the gate against a consistent snapshot. Rules are checked
// in a fixed order and the first match wins:
//
//  1. a call is already dialing or connected
//  2. a completed call ended within the acknowledgment window
//  3. the last attempt (successful or not) was within the retry cooldown
//
// MayCall is a pure function of (snapshot, now); given the same inputs it
// always returns the same decision.
func (g Gate) MayCall(snap state.Snapshot, now time.Time) Decision {
	call := snap.Call

	if call.Active {
		return Decision{Reason: ReasonCallInProgress}
	}
	if !call.LastSuccessAt.IsZero() && now.Sub(call.LastSuccessAt) < g.AckWindow {
		return Decision{Reason: ReasonAlreadyAcknowledged}
	}
	if !call.LastCallAttemptAt.IsZero() && now.Sub(call.LastCallAttemptAt) < g.RetryCooldown {
		return Decision{Reason: ReasonCooldownActive}
	}
	return Decision{Allow: true}
}
