package multiagent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshrl/core"
	"github.com/hupe1980/meshrl/internal/testutil"
)

func newShared(t *testing.T, numAgents, perAgentCapacity int, runMode core.RunMode) (*Shared, *testutil.StubEnv, *testutil.FakeLearner) {
	t.Helper()
	env := testutil.NewStubEnv(numAgents, 3, 2, 10, 10)
	var made []*testutil.FakeLearner
	c, err := NewShared(core.NewRunContext(1, "cpu"), env, perAgentCapacity, runMode, testutil.FakeFactory(&made))
	require.NoError(t, err)
	require.Len(t, made, 1, "shared variant must construct exactly one learner")
	return c, env, made[0]
}

func TestNewShared_SingleLearnerPooledStore(t *testing.T) {
	c, env, _ := newShared(t, 4, 25, core.RunModeTrain)

	assert.Equal(t, env.Agents(), c.AgentIDs())
	assert.Equal(t, 100, c.Buffer().Capacity(), "store capacity is per-agent capacity times identity count")
}

func TestNewShared_NoAgents(t *testing.T) {
	env := testutil.NewStubEnv(0, 3, 2, 10, 10)
	var made []*testutil.FakeLearner

	_, err := NewShared(core.NewRunContext(1, "cpu"), env, 10, core.RunModeTrain, testutil.FakeFactory(&made))
	assert.Error(t, err)
}

func TestShared_ResetOnce(t *testing.T) {
	c, _, l := newShared(t, 4, 10, core.RunModeTrain)

	c.Reset()

	assert.Equal(t, 1, l.Resets, "shared learner resets once, not once per identity")
}

func TestShared_ActOncePerIdentity(t *testing.T) {
	c, env, l := newShared(t, 3, 10, core.RunModeTrain)

	actions, err := c.Act(env.Reset(), true, core.ModeEval)
	require.NoError(t, err)

	assert.Len(t, actions, 3)
	assert.Equal(t, 3, l.Acts)
	assert.Equal(t, []bool{false, false, false}, l.TrainingHistory)
}

func TestShared_UpdateOncePerIdentity(t *testing.T) {
	c, env, l := newShared(t, 3, 10, core.RunModeTrain)
	obs := env.Reset()
	actions, err := c.Act(obs, true, core.ModeNone)
	require.NoError(t, err)
	nextObs, rewards, _, _ := env.Step(actions)
	c.AddToBuffer(obs, actions, rewards, nextObs, false, false)

	loggers := make(map[string]core.MetricsLogger, 3)
	for _, id := range c.AgentIDs() {
		loggers[id] = &testutil.CaptureMetrics{}
	}
	require.NoError(t, c.Update(loggers, 9))

	// One learning update per identity, all against the single learner.
	assert.Equal(t, 3, l.Updates)
	assert.Equal(t, 3, l.LastStoreSize)
}

func TestShared_AddToBufferInterleavesIdentities(t *testing.T) {
	c, _, _ := newShared(t, 2, 10, core.RunModeTrain)

	obsIn := map[string][]float64{"agent_0": {1, 1, 1}, "agent_1": {2, 2, 2}}
	rewards := map[string]float64{"agent_0": 10, "agent_1": 20}
	c.AddToBuffer(obsIn, obsIn, rewards, obsIn, false, false)

	assert.Equal(t, 2, c.Buffer().Size())
	a := c.Buffer().Arrays()
	assert.Equal(t, float64(10), a.Rewards[0])
	assert.Equal(t, float64(20), a.Rewards[1])
}

func TestShared_CheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	const steps = 3

	c, env, _ := newShared(t, 2, 10, core.RunModeTrain)
	obs := env.Reset()
	for i := 0; i < steps; i++ {
		actions, err := c.Act(obs, true, core.ModeNone)
		require.NoError(t, err)
		nextObs, rewards, _, _ := env.Step(actions)
		c.AddToBuffer(obs, actions, rewards, nextObs, false, false)
		obs = nextObs
	}
	require.NoError(t, c.SaveCheckpoint(dir, steps))

	restored, _, l := newShared(t, 2, 10, core.RunModeTrain)
	step, err := restored.LoadCheckpoint(dir, "cp_3")
	require.NoError(t, err)
	assert.Equal(t, steps, step)

	// step orchestration steps produced step*2 insertions.
	assert.Equal(t, steps*2, restored.Buffer().Inserts())
	assert.Equal(t, c.Buffer().Arrays(), restored.Buffer().Arrays())

	require.Len(t, l.Imported, 1)
	assert.Equal(t, "cpu", l.Imported[0].Device)
}

func TestShared_LoadCheckpointEvalSkipsStore(t *testing.T) {
	dir := t.TempDir()

	c, env, _ := newShared(t, 2, 10, core.RunModeTrain)
	obs := env.Reset()
	actions, err := c.Act(obs, true, core.ModeNone)
	require.NoError(t, err)
	nextObs, rewards, _, _ := env.Step(actions)
	c.AddToBuffer(obs, actions, rewards, nextObs, false, false)
	require.NoError(t, c.SaveCheckpoint(dir, 1))

	restored, _, _ := newShared(t, 2, 10, core.RunModeEval)
	step, err := restored.LoadCheckpoint(dir, "cp_1")
	require.NoError(t, err)
	assert.Equal(t, 1, step)
	assert.Equal(t, 0, restored.Buffer().Size())
}
