package testutil

import (
	"github.com/hupe1980/meshrl/core"
)

// FakeLearner counts lifecycle calls and records the training flag observed
// on every Act and Update so tests can verify mode scoping.
type FakeLearner struct {
	ID       string
	ActValue float64

	Resets          int
	Updates         int
	Acts            int
	TrainingHistory []bool
	LastStep        int
	LastStoreSize   int
	Imported        []core.LearnerState

	training bool
}

// Reset counts the call.
func (l *FakeLearner) Reset() { l.Resets++ }

// Training reports the current flag.
func (l *FakeLearner) Training() bool { return l.training }

// SetTraining stores the flag.
func (l *FakeLearner) SetTraining(v bool) { l.training = v }

// Act returns a constant action of the observation's length.
func (l *FakeLearner) Act(obs []float64, sample bool) []float64 {
	l.Acts++
	l.TrainingHistory = append(l.TrainingHistory, l.training)
	out := make([]float64, len(obs))
	for i := range out {
		out[i] = l.ActValue
	}
	return out
}

// Update counts the call and records the store size it was handed.
func (l *FakeLearner) Update(store core.Sampler, logger core.MetricsLogger, step int) error {
	l.Updates++
	l.TrainingHistory = append(l.TrainingHistory, l.training)
	l.LastStep = step
	l.LastStoreSize = store.Size()
	return nil
}

// ExportState returns a minimal state tagged with the learner id.
func (l *FakeLearner) ExportState() (core.LearnerState, error) {
	return core.LearnerState{
		Algo:    "fake",
		Device:  "cpu",
		Params:  map[string][]float64{"w": {l.ActValue}},
		Scalars: map[string]float64{"updates": float64(l.Updates)},
	}, nil
}

// ImportState records the state for inspection.
func (l *FakeLearner) ImportState(s core.LearnerState) error {
	l.Imported = append(l.Imported, s)
	return nil
}

var _ core.Learner = (*FakeLearner)(nil)

// FakeFactory returns a core.LearnerFactory producing FakeLearners and
// collecting them by construction order.
func FakeFactory(made *[]*FakeLearner) core.LearnerFactory {
	return func(p core.LearnerParams) (core.Learner, error) {
		l := &FakeLearner{ActValue: 0.5}
		*made = append(*made, l)
		return l, nil
	}
}
