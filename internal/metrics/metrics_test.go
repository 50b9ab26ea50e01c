package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeReading struct {
	value float64
	alert bool
}

func (f fakeReading) CurrentReading() (float64, bool) { return f.value, f.alert }

type fakeCallSlot struct{ active bool }

func (f fakeCallSlot) CallActive() bool { return f.active }

type fakeSessions struct{ n int }

func (f fakeSessions) Count() int { return f.n }

type fakeOutcomes struct{ counts map[string]uint64 }

func (f fakeOutcomes) CountByOutcome() map[string]uint64 { return f.counts }

func TestCollector(t *testing.T) {
	c := NewCollector(
		fakeReading{value: 120, alert: true},
		fakeCallSlot{active: true},
		fakeSessions{n: 1},
		fakeOutcomes{counts: map[string]uint64{"completed": 2, "no-answer": 1}},
		time.Now(),
	)

	expected := `
# HELP gasguard_gas_reading Most recent gas sensor reading
# TYPE gasguard_gas_reading gauge
gasguard_gas_reading 120
# HELP gasguard_alert_active Whether the latest reading is at or above the alert threshold (1=yes)
# TYPE gasguard_alert_active gauge
gasguard_alert_active 1
# HELP gasguard_call_active Whether an alert call is currently dialing or connected (1=yes)
# TYPE gasguard_call_active gauge
gasguard_call_active 1
# HELP gasguard_bridge_sessions_active Number of live media-stream bridge sessions
# TYPE gasguard_bridge_sessions_active gauge
gasguard_bridge_sessions_active 1
# HELP gasguard_call_outcomes_total Terminal call delivery outcomes by status
# TYPE gasguard_call_outcomes_total counter
gasguard_call_outcomes_total{status="completed"} 2
gasguard_call_outcomes_total{status="no-answer"} 1
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"gasguard_gas_reading",
		"gasguard_alert_active",
		"gasguard_call_active",
		"gasguard_bridge_sessions_active",
		"gasguard_call_outcomes_total",
	)
	if err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestCollector_NilProviders(t *testing.T) {
	c := NewCollector(nil, nil, nil, nil, time.Now())

	// Only uptime is emitted when no providers are wired.
	if n := testutil.CollectAndCount(c); n != 1 {
		t.Errorf("metric count = %d, want 1", n)
	}
}
