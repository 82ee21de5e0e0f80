// Package video captures evaluation episodes. The module renders no pixels;
// a StateTrace recorder dumps per-step simulator frames to CSV for offline
// visualization, and NoOp disables capture entirely.
package video

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hupe1980/meshrl/core"
)

// StateTrace records environment frames (via the optional core.Framer
// capability) and writes one CSV per saved episode.
type StateTrace struct {
	dir     string
	enabled bool
	frames  [][]float64
}

// NewStateTrace creates a recorder writing under dir. An empty dir disables
// recording regardless of Init.
func NewStateTrace(dir string) *StateTrace {
	return &StateTrace{dir: dir}
}

// Init starts a new capture. Only the first evaluation episode is typically
// enabled.
func (r *StateTrace) Init(enabled bool) {
	r.enabled = enabled && r.dir != ""
	r.frames = r.frames[:0]
}

// Record appends the environment's current frame if it exposes one.
func (r *StateTrace) Record(env core.Environment) {
	if !r.enabled {
		return
	}
	if framer, ok := env.(core.Framer); ok {
		r.frames = append(r.frames, framer.Frame())
	}
}

// Save writes the captured frames to dir/name.csv and ends the capture.
func (r *StateTrace) Save(name string) error {
	if !r.enabled || len(r.frames) == 0 {
		return nil
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("video: create %s: %w", r.dir, err)
	}

	path := filepath.Join(r.dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("video: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, frame := range r.frames {
		row := make([]string, len(frame))
		for i, v := range frame {
			row[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		w.Write(row)
	}
	w.Flush()
	return w.Error()
}

// NoOp is a recorder that captures nothing.
type NoOp struct{}

// Init does nothing.
func (NoOp) Init(bool) {}

// Record does nothing.
func (NoOp) Record(core.Environment) {}

// Save does nothing.
func (NoOp) Save(string) error { return nil }

var (
	_ core.Recorder = (*StateTrace)(nil)
	_ core.Recorder = NoOp{}
)
