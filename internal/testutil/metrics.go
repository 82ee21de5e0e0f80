package testutil

import (
	"github.com/hupe1980/meshrl/core"
)

// CaptureMetrics records every Log and Dump call.
type CaptureMetrics struct {
	Logged []LoggedValue
	Dumps  []DumpCall
}

// LoggedValue is one Log invocation.
type LoggedValue struct {
	Key   string
	Value float64
	Step  int
}

// DumpCall is one Dump invocation.
type DumpCall struct {
	Step int
	Save bool
}

// Log appends the entry.
func (m *CaptureMetrics) Log(key string, value float64, step int) {
	m.Logged = append(m.Logged, LoggedValue{Key: key, Value: value, Step: step})
}

// Dump appends the call.
func (m *CaptureMetrics) Dump(step int, save bool) {
	m.Dumps = append(m.Dumps, DumpCall{Step: step, Save: save})
}

// Keys returns the distinct logged keys in first-seen order.
func (m *CaptureMetrics) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, lv := range m.Logged {
		if !seen[lv.Key] {
			seen[lv.Key] = true
			keys = append(keys, lv.Key)
		}
	}
	return keys
}

var _ core.MetricsLogger = (*CaptureMetrics)(nil)
