package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshrl/core"
	"github.com/hupe1980/meshrl/internal/testutil"
	"github.com/hupe1980/meshrl/multiagent"
)

// scriptedController returns constant actions and records how it was called.
type scriptedController struct {
	ids     []string
	resets  int
	acts    int
	sampled []bool
	modes   []core.Mode
	adds    int
}

func (c *scriptedController) Reset() { c.resets++ }

func (c *scriptedController) Act(obs map[string][]float64, sample bool, mode core.Mode) (map[string][]float64, error) {
	c.acts++
	c.sampled = append(c.sampled, sample)
	c.modes = append(c.modes, mode)
	actions := make(map[string][]float64, len(c.ids))
	for _, id := range c.ids {
		actions[id] = []float64{0}
	}
	return actions, nil
}

func (c *scriptedController) Update(map[string]core.MetricsLogger, int) error { return nil }

func (c *scriptedController) AddToBuffer(_, _ map[string][]float64, _ map[string]float64, _ map[string][]float64, _, _ bool) {
	c.adds++
}

func (c *scriptedController) SaveCheckpoint(string, int) error { return nil }

func (c *scriptedController) LoadCheckpoint(string, string) (int, error) { return 0, nil }

func (c *scriptedController) AgentIDs() []string { return c.ids }

var _ multiagent.Controller = (*scriptedController)(nil)

// captureRecorder records Init/Record/Save calls.
type captureRecorder struct {
	inits   []bool
	records int
	saves   []string
}

func (r *captureRecorder) Init(enabled bool) { r.inits = append(r.inits, enabled) }

func (r *captureRecorder) Record(core.Environment) { r.records++ }

func (r *captureRecorder) Save(name string) error {
	r.saves = append(r.saves, name)
	return nil
}

func TestEvaluator_AveragesEpisodeRewards(t *testing.T) {
	env := testutil.NewStubEnv(2, 3, 1, 4, 10)
	ctrl := &scriptedController{ids: env.IDs}
	loggers := map[string]core.MetricsLogger{
		"agent_0": &testutil.CaptureMetrics{},
		"agent_1": &testutil.CaptureMetrics{},
	}

	ev := New(env, ctrl, func(o *Options) { o.Episodes = 3 })
	averages, err := ev.Run(100, loggers)
	require.NoError(t, err)

	// Each episode runs 4 steps of reward 1, so the average is 4.
	assert.Equal(t, map[string]float64{"agent_0": 4, "agent_1": 4}, averages)
	assert.Equal(t, 3, ctrl.resets)
	assert.Equal(t, 12, ctrl.acts)
	assert.Equal(t, 0, ctrl.adds, "evaluation never writes to replay stores")
}

func TestEvaluator_DeterministicEvalScopedActions(t *testing.T) {
	env := testutil.NewStubEnv(1, 3, 1, 2, 10)
	ctrl := &scriptedController{ids: env.IDs}

	ev := New(env, ctrl, func(o *Options) { o.Episodes = 1 })
	_, err := ev.Run(0, map[string]core.MetricsLogger{})
	require.NoError(t, err)

	for i := range ctrl.sampled {
		assert.False(t, ctrl.sampled[i], "evaluation actions are the policy mode, not samples")
		assert.Equal(t, core.ModeEval, ctrl.modes[i])
	}
}

func TestEvaluator_LogsAndDumpsPerAgent(t *testing.T) {
	env := testutil.NewStubEnv(1, 3, 1, 2, 10)
	ctrl := &scriptedController{ids: env.IDs}
	cm := &testutil.CaptureMetrics{}

	ev := New(env, ctrl, func(o *Options) { o.Episodes = 2 })
	_, err := ev.Run(50, map[string]core.MetricsLogger{"agent_0": cm})
	require.NoError(t, err)

	require.Len(t, cm.Logged, 1)
	assert.Equal(t, "eval/episode_reward", cm.Logged[0].Key)
	assert.Equal(t, float64(2), cm.Logged[0].Value)
	assert.Equal(t, 50, cm.Logged[0].Step)

	require.Len(t, cm.Dumps, 1)
	assert.Equal(t, 50, cm.Dumps[0].Step)
	assert.True(t, cm.Dumps[0].Save)
}

func TestEvaluator_RecordsFirstEpisodeOnly(t *testing.T) {
	env := testutil.NewStubEnv(1, 3, 1, 3, 10)
	ctrl := &scriptedController{ids: env.IDs}
	rec := &captureRecorder{}

	ev := New(env, ctrl, func(o *Options) {
		o.Episodes = 3
		o.Recorder = rec
	})
	_, err := ev.Run(77, map[string]core.MetricsLogger{})
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false, false}, rec.inits)
	assert.Equal(t, 9, rec.records, "every step of every episode reaches the recorder")
	assert.Equal(t, []string{"77", "77", "77"}, rec.saves)
}
