// Package metrics implements the per-agent training diagnostics logger:
// values accumulate in averaging meters between dumps, and every dump
// appends the averaged values to a per-agent CSV file and echoes them to the
// structured logger. One Logger instance exists per agent identity.
package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/hupe1980/meshrl/core"
	"github.com/hupe1980/meshrl/logging"
)

// Options configures a Logger.
type Options struct {
	Logger logging.Logger
}

// Logger is a core.MetricsLogger writing long-format CSV rows
// (step,key,value) so the key set may grow over the life of a run.
type Logger struct {
	agentID string
	meters  map[string]*meter
	keys    []string
	writer  *csv.Writer
	file    *os.File
	log     logging.Logger
}

type meter struct {
	sum   float64
	count int
}

func (m *meter) value() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

// NewLogger creates a metrics logger writing to dir/<agentID>.csv. The file
// is opened in append mode so resumed runs continue the same log.
func NewLogger(dir, agentID string, optFns ...func(o *Options)) (*Logger, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("metrics: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, agentID+".csv")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("metrics: open %s: %w", path, err)
	}

	return &Logger{
		agentID: agentID,
		meters:  make(map[string]*meter),
		writer:  csv.NewWriter(f),
		file:    f,
		log:     opts.Logger,
	}, nil
}

// Log accumulates one value into the key's averaging meter.
func (l *Logger) Log(key string, value float64, _ int) {
	m, ok := l.meters[key]
	if !ok {
		m = &meter{}
		l.meters[key] = m
		l.keys = append(l.keys, key)
		sort.Strings(l.keys)
	}
	m.sum += value
	m.count++
}

// Dump flushes the accumulated averages at the given step. With save=false
// the meters are discarded without persisting, which the training loop uses
// while warm-up data would only pollute the log.
func (l *Logger) Dump(step int, save bool) {
	if save {
		for _, key := range l.keys {
			m := l.meters[key]
			if m.count == 0 {
				continue
			}
			l.writer.Write([]string{
				strconv.Itoa(step),
				key,
				strconv.FormatFloat(m.value(), 'g', -1, 64),
			})
			l.log.Info("metric", "agent", l.agentID, "step", step, "key", key, "value", m.value())
		}
		l.writer.Flush()
	}
	for _, m := range l.meters {
		m.sum, m.count = 0, 0
	}
}

// Close flushes and closes the underlying CSV file.
func (l *Logger) Close() error {
	l.writer.Flush()
	return l.file.Close()
}

// NoOp is a metrics logger that discards everything. Useful for tests.
type NoOp struct{}

// Log discards the value.
func (NoOp) Log(string, float64, int) {}

// Dump discards accumulated values.
func (NoOp) Dump(int, bool) {}

var (
	_ core.MetricsLogger = (*Logger)(nil)
	_ core.MetricsLogger = NoOp{}
)
