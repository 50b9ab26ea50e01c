package state

import (
	"strings"
	"testing"
)

var testBounds = Thresholds{Safe: 50, Alert: 100, Critical: 200}

func TestClassify(t *testing.T) {
	tests := []struct {
		value float64
		want  Tier
	}{
		{0, TierVerySafe},
		{45, TierVerySafe},
		{49.9, TierVerySafe},
		{50, TierSafe},
		{99, TierSafe},
		{100, TierWarning},
		{120, TierWarning},
		{199, TierWarning},
		{200, TierCritical},
		{250, TierCritical},
	}
	for _, tt := range tests {
		if got := testBounds.Classify(tt.value); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestIsSafe(t *testing.T) {
	if !testBounds.IsSafe(45) {
		t.Error("IsSafe(45) = false, want true")
	}
	if !testBounds.IsSafe(99) {
		t.Error("IsSafe(99) = false, want true")
	}
	if testBounds.IsSafe(100) {
		t.Error("IsSafe(100) = true, want false")
	}
	if testBounds.IsSafe(250) {
		t.Error("IsSafe(250) = true, want false")
	}
}

func TestDescribe_MentionsReadingAndSeverity(t *testing.T) {
	tests := []struct {
		value    float64
		contains string
	}{
		{45, "very safe"},
		{80, "slightly elevated"},
		{120, "warning zone"},
		{250, "CRITICAL"},
	}
	for _, tt := range tests {
		msg := testBounds.Describe(tt.value)
		if !strings.Contains(msg, tt.contains) {
			t.Errorf("Describe(%v) = %q, want it to contain %q", tt.value, msg, tt.contains)
		}
	}
}
