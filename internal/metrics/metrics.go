// Package metrics exposes GasGuard state as a prometheus.Collector. All
// values are read from providers at scrape time; nothing is pushed.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReadingProvider exposes the latest sensor reading and alert flag.
type ReadingProvider interface {
	CurrentReading() (value float64, alertActive bool)
}

// CallSlotProvider reports whether the outbound call slot is occupied.
type CallSlotProvider interface {
	CallActive() bool
}

// SessionCounter returns the number of live bridge sessions.
type SessionCounter interface {
	Count() int
}

// OutcomeCounter returns terminal call outcome counts keyed by status.
type OutcomeCounter interface {
	CountByOutcome() map[string]uint64
}

// Collector is a prometheus.Collector that gathers GasGuard metrics at
// scrape time.
type Collector struct {
	reading   ReadingProvider
	callSlot  CallSlotProvider
	sessions  SessionCounter
	outcomes  OutcomeCounter
	startTime time.Time

	// Metric descriptors.
	readingDesc      *prometheus.Desc
	alertActiveDesc  *prometheus.Desc
	callActiveDesc   *prometheus.Desc
	sessionsDesc     *prometheus.Desc
	callOutcomesDesc *prometheus.Desc
	uptimeDesc       *prometheus.Desc
}

// NewCollector creates a new metrics collector. Any provider may be nil if
// unavailable.
func NewCollector(
	reading ReadingProvider,
	callSlot CallSlotProvider,
	sessions SessionCounter,
	outcomes OutcomeCounter,
	startTime time.Time,
) *Collector {
	return &Collector{
		reading:   reading,
		callSlot:  callSlot,
		sessions:  sessions,
		outcomes:  outcomes,
		startTime: startTime,

		readingDesc: prometheus.NewDesc(
			"gasguard_gas_reading",
			"Most recent gas sensor reading",
			nil, nil,
		),
		alertActiveDesc: prometheus.NewDesc(
			"gasguard_alert_active",
			"Whether the latest reading is at or above the alert threshold (1=yes)",
			nil, nil,
		),
		callActiveDesc: prometheus.NewDesc(
			"gasguard_call_active",
			"Whether an alert call is currently dialing or connected (1=yes)",
			nil, nil,
		),
		sessionsDesc: prometheus.NewDesc(
			"gasguard_bridge_sessions_active",
			"Number of live media-stream bridge sessions",
			nil, nil,
		),
		callOutcomesDesc: prometheus.NewDesc(
			"gasguard_call_outcomes_total",
			"Terminal call delivery outcomes by status",
			[]string{"status"}, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"gasguard_uptime_seconds",
			"Seconds since the GasGuard process started",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.readingDesc
	ch <- c.alertActiveDesc
	ch <- c.callActiveDesc
	ch <- c.sessionsDesc
	ch <- c.callOutcomesDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector. It queries all providers at
// scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.reading != nil {
		value, alertActive := c.reading.CurrentReading()
		ch <- prometheus.MustNewConstMetric(
			c.readingDesc, prometheus.GaugeValue, value,
		)
		ch <- prometheus.MustNewConstMetric(
			c.alertActiveDesc, prometheus.GaugeValue, boolValue(alertActive),
		)
	}

	if c.callSlot != nil {
		ch <- prometheus.MustNewConstMetric(
			c.callActiveDesc, prometheus.GaugeValue, boolValue(c.callSlot.CallActive()),
		)
	}

	if c.sessions != nil {
		ch <- prometheus.MustNewConstMetric(
			c.sessionsDesc, prometheus.GaugeValue, float64(c.sessions.Count()),
		)
	}

	if c.outcomes != nil {
		for status, n := range c.outcomes.CountByOutcome() {
			ch <- prometheus.MustNewConstMetric(
				c.callOutcomesDesc, prometheus.CounterValue, float64(n), status,
			)
		}
	}

	ch <- prometheus.MustNewConstMetric(
		c.uptimeDesc, prometheus.GaugeValue, time.Since(c.startTime).Seconds(),
	)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
