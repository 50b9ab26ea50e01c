package telephony

import (
	"log/slog"
	"sync"

	"github.com/gasguard/gasguard/internal/state"
)

// Status is a terminal delivery status reported by the provider's status
// webhook.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusBusy      Status = "busy"
	StatusNoAnswer  Status = "no-answer"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// ParseStatus maps a webhook CallStatus value to a known terminal status.
// Non-terminal progress statuses (queued, ringing, in-progress) and unknown
// values return ok=false and are ignored by the reducer.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusCompleted, StatusBusy, StatusNoAnswer, StatusFailed, StatusCanceled:
		return Status(s), true
	default:
		return "", false
	}
}

// StatusReducer folds terminal delivery statuses into the call state.
// "completed" is the only status treated as human acknowledgment; a call
// answered by voicemail also reports completed, which this model knowingly
// accepts. Applying the same status twice re-sets the same fields, and a
// status arriving before the dispatch response (webhooks race the REST
// reply) is a harmless no-op on an already-inactive slot.
type StatusReducer struct {
	store  *state.Store
	logger *slog.Logger

	mu       sync.Mutex
	outcomes map[Status]uint64
}

// NewStatusReducer creates a reducer over the given store.
func NewStatusReducer(store *state.Store, logger *slog.Logger) *StatusReducer {
	return &StatusReducer{
		store:    store,
		logger:   logger.With("subsystem", "call-status"),
		outcomes: make(map[Status]uint64),
	}
}

// OnStatusEvent applies one terminal delivery status.
func (r *StatusReducer) OnStatusEvent(status Status) {
	switch status {
	case StatusCompleted:
		r.store.RecordOutcome(state.OutcomeCompleted)
		r.logger.Info("call completed, alerts suppressed for the acknowledgment window")
	case StatusBusy, StatusNoAnswer, StatusFailed, StatusCanceled:
		r.store.RecordOutcome(state.OutcomeFailed)
		r.logger.Info("call did not reach the user, eligible for retry after cooldown", "status", string(status))
	default:
		r.logger.Warn("ignoring unknown call status", "status", string(status))
		return
	}

	r.mu.Lock()
	r.outcomes[status]++
	r.mu.Unlock()
}

// CountByOutcome returns the number of terminal statuses seen per status,
// for the metrics collector.
func (r *StatusReducer) CountByOutcome() map[string]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]uint64, len(r.outcomes))
	for st, n := range r.outcomes {
		counts[string(st)] = n
	}
	return counts
}
