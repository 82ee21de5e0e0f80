package checkpoint

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/hupe1980/meshrl/core"
	"github.com/hupe1980/meshrl/logging"
	"github.com/hupe1980/meshrl/replay"
)

const (
	stateFile  = "checkpoint.cbor"
	archiveDir = "replay_buffers"
	archiveExt = ".cbor.gz"
)

// Name returns the deterministic checkpoint directory name for a step.
func Name(step int) string { return fmt.Sprintf("cp_%d", step) }

// state is the combined file payload: the step counter at save time and
// every learner's exported state keyed by agent id (or "shared").
type state struct {
	Step   int                          `cbor:"step"`
	Models map[string]core.LearnerState `cbor:"models"`
}

// Options configures a Manager.
type Options struct {
	Logger logging.Logger
}

// Manager owns the checkpoint file layout and the store reconstruction
// algorithm. Save and load are blocking file operations performed only at
// loop start and loop end, never mid-episode.
type Manager struct {
	logger logging.Logger
}

// NewManager constructs a Manager with optional overrides.
func NewManager(optFns ...func(o *Options)) *Manager {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{logger: opts.Logger}
}

// Save creates dir/cp_<step>, writes the combined state file and one archive
// per entry of archives. Existing contents of the checkpoint directory are
// overwritten.
func (m *Manager) Save(dir string, step int, models map[string]core.LearnerState, archives map[string]replay.Arrays) error {
	cpDir := filepath.Join(dir, Name(step))
	m.logger.Info("saving checkpoint", "dir", cpDir, "step", step)

	if err := os.MkdirAll(filepath.Join(cpDir, archiveDir), 0o755); err != nil {
		return fmt.Errorf("checkpoint: create %s: %w", cpDir, err)
	}

	payload, err := marshal(state{Step: step, Models: models})
	if err != nil {
		return fmt.Errorf("checkpoint: encode state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cpDir, stateFile), payload, 0o644); err != nil {
		return fmt.Errorf("checkpoint: write state: %w", err)
	}

	for key, arrays := range archives {
		if err := m.writeArchive(cpDir, key, arrays); err != nil {
			return err
		}
	}

	m.logger.Info("saved checkpoint", "dir", cpDir, "step", step)
	return nil
}

// Load reads the combined state file of dir/name and returns the step
// counter and every learner state. Learner states are returned as saved;
// the caller performs the explicit device remap before importing.
func (m *Manager) Load(dir, name string) (int, map[string]core.LearnerState, error) {
	path := filepath.Join(dir, name, stateFile)
	m.logger.Info("loading checkpoint", "path", path)

	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil, fmt.Errorf("checkpoint: %w: %s", core.ErrCheckpointNotFound, path)
		}
		return 0, nil, fmt.Errorf("checkpoint: read state: %w", err)
	}

	var st state
	if err := unmarshal(payload, &st); err != nil {
		return 0, nil, fmt.Errorf("checkpoint: %w: decode %s: %v", core.ErrCheckpointCorrupt, path, err)
	}
	return st.Step, st.Models, nil
}

// ReadArchive reads one store archive of dir/name keyed by agent id (or
// "shared" for the pooled variant).
func (m *Manager) ReadArchive(dir, name, key string) (replay.Arrays, error) {
	path := filepath.Join(dir, name, archiveDir, key+archiveExt)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return replay.Arrays{}, fmt.Errorf("checkpoint: %w: %s", core.ErrCheckpointNotFound, path)
		}
		return replay.Arrays{}, fmt.Errorf("checkpoint: open archive: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return replay.Arrays{}, fmt.Errorf("checkpoint: %w: gzip %s: %v", core.ErrCheckpointCorrupt, path, err)
	}
	defer zr.Close()

	payload, err := io.ReadAll(zr)
	if err != nil {
		return replay.Arrays{}, fmt.Errorf("checkpoint: %w: read %s: %v", core.ErrCheckpointCorrupt, path, err)
	}

	var arrays replay.Arrays
	if err := unmarshal(payload, &arrays); err != nil {
		return replay.Arrays{}, fmt.Errorf("checkpoint: %w: decode %s: %v", core.ErrCheckpointCorrupt, path, err)
	}
	return arrays, nil
}

// Replay reconstructs buf from a saved archive by feeding exactly inserts
// insertions through the buffer's normal Add path. Insertion i reads slot
// i mod capacity, so slot contents converge to the saved bytes while the
// cursor position and full flag are derived from the insertion count rather
// than copied. The reconstruction is correct iff inserts equals the number
// of insertions performed before the original save.
func (m *Manager) Replay(buf *replay.Buffer, arrays replay.Arrays, inserts int) error {
	n := arrays.Len()
	if n < 0 {
		return fmt.Errorf("checkpoint: %w: archive arrays have mismatched lengths", core.ErrCheckpointCorrupt)
	}
	if n != buf.Capacity() {
		return fmt.Errorf("checkpoint: %w: archive holds %d slots, store capacity is %d",
			core.ErrCheckpointCorrupt, n, buf.Capacity())
	}
	if inserts < 0 {
		return fmt.Errorf("checkpoint: %w: negative replay count %d", core.ErrCheckpointCorrupt, inserts)
	}
	if inserts > 0 {
		if len(arrays.Observations[0]) != buf.ObsDim() || len(arrays.Actions[0]) != buf.ActionDim() {
			return fmt.Errorf("checkpoint: %w: archive dims %dx%d, store dims %dx%d",
				core.ErrCheckpointCorrupt,
				len(arrays.Observations[0]), len(arrays.Actions[0]), buf.ObsDim(), buf.ActionDim())
		}
	}

	for i := 0; i < inserts; i++ {
		j := i % n
		buf.Add(core.Transition{
			Observation:     arrays.Observations[j],
			Action:          arrays.Actions[j],
			Reward:          arrays.Rewards[j],
			NextObservation: arrays.NextObservations[j],
			Done:            arrays.NotDone[j] == 0,
			DoneNoMax:       arrays.NotDoneNoMax[j] == 0,
		})
	}

	m.logger.Debug("reconstructed replay store", "inserts", inserts, "size", buf.Size())
	return nil
}

func (m *Manager) writeArchive(cpDir, key string, arrays replay.Arrays) error {
	payload, err := marshal(arrays)
	if err != nil {
		return fmt.Errorf("checkpoint: encode archive %s: %w", key, err)
	}

	path := filepath.Join(cpDir, archiveDir, key+archiveExt)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("checkpoint: create archive %s: %w", key, err)
	}

	zw := gzip.NewWriter(f)
	if _, err := zw.Write(payload); err != nil {
		f.Close()
		return fmt.Errorf("checkpoint: write archive %s: %w", key, err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("checkpoint: flush archive %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("checkpoint: close archive %s: %w", key, err)
	}
	return nil
}
