package agent

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/hupe1980/meshrl/core"
)

// Parameter names of the SAC learner. Targets carry no optimizer; they move
// by Polyak averaging only.
const (
	paramActorWMu     = "actor.w_mu"
	paramActorBMu     = "actor.b_mu"
	paramActorWLogStd = "actor.w_logstd"
	paramActorBLogStd = "actor.b_logstd"
	paramQ1W          = "critic.q1.w"
	paramQ1B          = "critic.q1.b"
	paramQ2W          = "critic.q2.w"
	paramQ2B          = "critic.q2.b"
	paramTargetQ1W    = "critic_target.q1.w"
	paramTargetQ1B    = "critic_target.q1.b"
	paramTargetQ2W    = "critic_target.q2.w"
	paramTargetQ2B    = "critic_target.q2.b"
	paramLogAlpha     = "alpha.log_alpha"
)

const algoSAC = "sac"

// Config holds the SAC hyperparameters. Zero values fall back to defaults
// via DefaultConfig; the factory never mutates a caller's Config.
type Config struct {
	BatchSize                   int     `yaml:"batch_size"`
	Discount                    float64 `yaml:"discount"`
	Tau                         float64 `yaml:"tau"`
	ActorLR                     float64 `yaml:"actor_lr"`
	CriticLR                    float64 `yaml:"critic_lr"`
	AlphaLR                     float64 `yaml:"alpha_lr"`
	Momentum                    float64 `yaml:"momentum"`
	InitTemperature             float64 `yaml:"init_temperature"`
	LogStdMin                   float64 `yaml:"log_std_min"`
	LogStdMax                   float64 `yaml:"log_std_max"`
	ActorUpdateFrequency        int     `yaml:"actor_update_frequency"`
	CriticTargetUpdateFrequency int     `yaml:"critic_target_update_frequency"`

	// TargetEntropy of 0 resolves to -actionDim at construction.
	TargetEntropy float64 `yaml:"target_entropy"`
}

// DefaultConfig returns the baseline hyperparameters.
func DefaultConfig() Config {
	return Config{
		BatchSize:                   256,
		Discount:                    0.99,
		Tau:                         0.005,
		ActorLR:                     1e-3,
		CriticLR:                    1e-3,
		AlphaLR:                     1e-3,
		Momentum:                    0.9,
		InitTemperature:             0.1,
		LogStdMin:                   -5,
		LogStdMax:                   2,
		ActorUpdateFrequency:        1,
		CriticTargetUpdateFrequency: 2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.Discount == 0 {
		c.Discount = d.Discount
	}
	if c.Tau == 0 {
		c.Tau = d.Tau
	}
	if c.ActorLR == 0 {
		c.ActorLR = d.ActorLR
	}
	if c.CriticLR == 0 {
		c.CriticLR = d.CriticLR
	}
	if c.AlphaLR == 0 {
		c.AlphaLR = d.AlphaLR
	}
	if c.Momentum == 0 {
		c.Momentum = d.Momentum
	}
	if c.InitTemperature == 0 {
		c.InitTemperature = d.InitTemperature
	}
	if c.LogStdMin == 0 {
		c.LogStdMin = d.LogStdMin
	}
	if c.LogStdMax == 0 {
		c.LogStdMax = d.LogStdMax
	}
	if c.ActorUpdateFrequency <= 0 {
		c.ActorUpdateFrequency = d.ActorUpdateFrequency
	}
	if c.CriticTargetUpdateFrequency <= 0 {
		c.CriticTargetUpdateFrequency = d.CriticTargetUpdateFrequency
	}
	return c
}

// SAC is a soft actor-critic learner over linear function approximators.
// The policy is a diagonal Gaussian with tanh squashing scaled into the
// action range; critics are linear in the concatenated observation-action
// features. Small enough to train on CPU with plain loops, complete enough
// to exercise every orchestration and checkpoint path.
type SAC struct {
	cfg       Config
	obsDim    int
	actionDim int
	actionMid float64
	actionHal float64

	params    map[string][]float64
	actorOpt  *SGD
	criticOpt *SGD
	alphaOpt  *SGD

	targetEntropy float64
	rng           *rand.Rand
	device        string
	training      bool
}

// Factory returns a core.LearnerFactory constructing SAC learners with the
// given hyperparameters.
func Factory(cfg Config) core.LearnerFactory {
	return func(p core.LearnerParams) (core.Learner, error) {
		return NewSAC(cfg, p)
	}
}

// NewSAC constructs a SAC learner for the given resolved parameters.
func NewSAC(cfg Config, p core.LearnerParams) (*SAC, error) {
	if p.ObsDim <= 0 || p.ActionDim <= 0 {
		return nil, fmt.Errorf("agent: invalid dims obs=%d action=%d", p.ObsDim, p.ActionDim)
	}
	if p.Run == nil {
		return nil, fmt.Errorf("agent: run context is required")
	}
	cfg = cfg.withDefaults()

	s := &SAC{
		cfg:       cfg,
		obsDim:    p.ObsDim,
		actionDim: p.ActionDim,
		actionMid: (p.ActionRange[0] + p.ActionRange[1]) / 2,
		actionHal: (p.ActionRange[1] - p.ActionRange[0]) / 2,
		actorOpt:  NewSGD(cfg.ActorLR, cfg.Momentum),
		criticOpt: NewSGD(cfg.CriticLR, cfg.Momentum),
		alphaOpt:  NewSGD(cfg.AlphaLR, cfg.Momentum),
		rng:       p.Run.RNG,
		device:    p.Run.Device,
		training:  true,
	}
	s.targetEntropy = cfg.TargetEntropy
	if s.targetEntropy == 0 {
		s.targetEntropy = -float64(p.ActionDim)
	}

	featDim := p.ObsDim + p.ActionDim
	s.params = map[string][]float64{
		paramActorWMu:     s.initWeights(p.ActionDim * p.ObsDim),
		paramActorBMu:     make([]float64, p.ActionDim),
		paramActorWLogStd: s.initWeights(p.ActionDim * p.ObsDim),
		paramActorBLogStd: make([]float64, p.ActionDim),
		paramQ1W:          s.initWeights(featDim),
		paramQ1B:          make([]float64, 1),
		paramQ2W:          s.initWeights(featDim),
		paramQ2B:          make([]float64, 1),
		paramLogAlpha:     {math.Log(cfg.InitTemperature)},
	}
	s.params[paramTargetQ1W] = append([]float64(nil), s.params[paramQ1W]...)
	s.params[paramTargetQ1B] = append([]float64(nil), s.params[paramQ1B]...)
	s.params[paramTargetQ2W] = append([]float64(nil), s.params[paramQ2W]...)
	s.params[paramTargetQ2B] = append([]float64(nil), s.params[paramQ2B]...)
	return s, nil
}

func (s *SAC) initWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = (s.rng.Float64()*2 - 1) * 0.05
	}
	return w
}

// Reset clears episodic state. The linear SAC learner carries none.
func (s *SAC) Reset() {}

// Training reports whether the learner is in training behavior.
func (s *SAC) Training() bool { return s.training }

// SetTraining switches between training and evaluation behavior.
func (s *SAC) SetTraining(training bool) { s.training = training }

// Act selects an action for one observation. sample=true draws from the
// squashed Gaussian; sample=false returns its mode. Act never touches a
// replay store.
func (s *SAC) Act(observation []float64, sample bool) []float64 {
	mu, logStd := s.policyHead(observation)
	action := make([]float64, s.actionDim)
	for i := 0; i < s.actionDim; i++ {
		x := mu[i]
		if sample {
			x += math.Exp(logStd[i]) * s.rng.NormFloat64()
		}
		action[i] = s.actionMid + s.actionHal*math.Tanh(x)
	}
	return action
}

// Update performs exactly one learning update: a critic step, an actor and
// temperature step at the configured cadence, and a Polyak target update.
func (s *SAC) Update(store core.Sampler, logger core.MetricsLogger, step int) error {
	batch, err := store.Sample(s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("agent: sac update: %w", err)
	}

	s.updateCritic(batch, logger, step)

	if step%s.cfg.ActorUpdateFrequency == 0 {
		s.updateActorAndAlpha(batch, logger, step)
	}
	if step%s.cfg.CriticTargetUpdateFrequency == 0 {
		s.updateTargets()
	}

	logger.Log("train/batch_reward", mean(batch.Rewards), step)
	return nil
}

func (s *SAC) updateCritic(batch core.Batch, logger core.MetricsLogger, step int) {
	n := batch.Len()
	alpha := math.Exp(s.params[paramLogAlpha][0])

	grads := map[string][]float64{
		paramQ1W: make([]float64, len(s.params[paramQ1W])),
		paramQ1B: make([]float64, 1),
		paramQ2W: make([]float64, len(s.params[paramQ2W])),
		paramQ2B: make([]float64, 1),
	}

	var loss float64
	for k := 0; k < n; k++ {
		nextAction, logProb := s.samplePolicy(batch.NextObservations[k])
		nextFeat := concat(batch.NextObservations[k], nextAction)

		tq1 := dot(s.params[paramTargetQ1W], nextFeat) + s.params[paramTargetQ1B][0]
		tq2 := dot(s.params[paramTargetQ2W], nextFeat) + s.params[paramTargetQ2B][0]
		targetV := math.Min(tq1, tq2) - alpha*logProb
		// Bootstrap with the horizon-truncation-suppressed flag so episodes
		// cut off by the time limit still propagate value.
		y := batch.Rewards[k] + s.cfg.Discount*batch.NotDoneNoMax[k]*targetV

		feat := concat(batch.Observations[k], batch.Actions[k])
		q1 := dot(s.params[paramQ1W], feat) + s.params[paramQ1B][0]
		q2 := dot(s.params[paramQ2W], feat) + s.params[paramQ2B][0]
		loss += (q1-y)*(q1-y) + (q2-y)*(q2-y)

		d1 := 2 * (q1 - y) / float64(n)
		d2 := 2 * (q2 - y) / float64(n)
		axpy(grads[paramQ1W], d1, feat)
		axpy(grads[paramQ2W], d2, feat)
		grads[paramQ1B][0] += d1
		grads[paramQ2B][0] += d2
	}

	s.criticOpt.Step(s.params, grads)
	logger.Log("train_critic/loss", loss/float64(n), step)
}

func (s *SAC) updateActorAndAlpha(batch core.Batch, logger core.MetricsLogger, step int) {
	n := batch.Len()
	alpha := math.Exp(s.params[paramLogAlpha][0])

	grads := map[string][]float64{
		paramActorWMu:     make([]float64, len(s.params[paramActorWMu])),
		paramActorBMu:     make([]float64, s.actionDim),
		paramActorWLogStd: make([]float64, len(s.params[paramActorWLogStd])),
		paramActorBLogStd: make([]float64, s.actionDim),
	}
	alphaGrad := []float64{0}

	var actorLoss, entropy float64
	for k := 0; k < n; k++ {
		obs := batch.Observations[k]
		mu, logStd := s.policyHead(obs)

		// Reparameterized sample: x = mu + std*eps, a = mid + half*tanh(x).
		action := make([]float64, s.actionDim)
		tanhX := make([]float64, s.actionDim)
		eps := make([]float64, s.actionDim)
		logProb := 0.0
		for i := 0; i < s.actionDim; i++ {
			eps[i] = s.rng.NormFloat64()
			x := mu[i] + math.Exp(logStd[i])*eps[i]
			tanhX[i] = math.Tanh(x)
			action[i] = s.actionMid + s.actionHal*tanhX[i]
			logProb += -0.5*eps[i]*eps[i] - logStd[i] - 0.5*math.Log(2*math.Pi)
			logProb -= math.Log(s.actionHal*(1-tanhX[i]*tanhX[i]) + 1e-6)
		}

		feat := concat(obs, action)
		q := dot(s.params[paramQ1W], feat) + s.params[paramQ1B][0]
		actorLoss += alpha*logProb - q
		entropy -= logProb

		for i := 0; i < s.actionDim; i++ {
			// d(alpha*logProb - q)/dx through the squash and the critic's
			// action weights, under the reparameterization (eps held fixed).
			dqda := s.params[paramQ1W][s.obsDim+i]
			dLdx := alpha*2*tanhX[i] - dqda*s.actionHal*(1-tanhX[i]*tanhX[i])
			dLdx /= float64(n)

			grads[paramActorBMu][i] += dLdx
			for j := 0; j < s.obsDim; j++ {
				grads[paramActorWMu][i*s.obsDim+j] += dLdx * obs[j]
			}

			if logStd[i] > s.cfg.LogStdMin && logStd[i] < s.cfg.LogStdMax {
				dLdLogStd := dLdx*float64(n)*math.Exp(logStd[i])*eps[i] - alpha
				dLdLogStd /= float64(n)
				grads[paramActorBLogStd][i] += dLdLogStd
				for j := 0; j < s.obsDim; j++ {
					grads[paramActorWLogStd][i*s.obsDim+j] += dLdLogStd * obs[j]
				}
			}
		}

		alphaGrad[0] += alpha * (-logProb - s.targetEntropy) / float64(n)
	}

	s.actorOpt.Step(s.params, grads)
	s.alphaOpt.Step(s.params, map[string][]float64{paramLogAlpha: alphaGrad})

	logger.Log("train_actor/loss", actorLoss/float64(n), step)
	logger.Log("train_actor/entropy", entropy/float64(n), step)
	logger.Log("train_alpha/loss", -alphaGrad[0], step)
	logger.Log("train_alpha/value", math.Exp(s.params[paramLogAlpha][0]), step)
}

func (s *SAC) updateTargets() {
	tau := s.cfg.Tau
	pairs := [][2]string{
		{paramTargetQ1W, paramQ1W}, {paramTargetQ1B, paramQ1B},
		{paramTargetQ2W, paramQ2W}, {paramTargetQ2B, paramQ2B},
	}
	for _, pair := range pairs {
		target, online := s.params[pair[0]], s.params[pair[1]]
		for i := range target {
			target[i] = (1-tau)*target[i] + tau*online[i]
		}
	}
}

// policyHead computes the Gaussian head for one observation; logStd is
// clamped into [LogStdMin, LogStdMax].
func (s *SAC) policyHead(obs []float64) (mu, logStd []float64) {
	mu = make([]float64, s.actionDim)
	logStd = make([]float64, s.actionDim)
	wMu, bMu := s.params[paramActorWMu], s.params[paramActorBMu]
	wLS, bLS := s.params[paramActorWLogStd], s.params[paramActorBLogStd]
	for i := 0; i < s.actionDim; i++ {
		mu[i] = bMu[i] + dot(wMu[i*s.obsDim:(i+1)*s.obsDim], obs)
		ls := bLS[i] + dot(wLS[i*s.obsDim:(i+1)*s.obsDim], obs)
		logStd[i] = clamp(ls, s.cfg.LogStdMin, s.cfg.LogStdMax)
	}
	return mu, logStd
}

// samplePolicy draws a squashed action and its log-probability.
func (s *SAC) samplePolicy(obs []float64) ([]float64, float64) {
	mu, logStd := s.policyHead(obs)
	action := make([]float64, s.actionDim)
	logProb := 0.0
	for i := 0; i < s.actionDim; i++ {
		eps := s.rng.NormFloat64()
		x := mu[i] + math.Exp(logStd[i])*eps
		t := math.Tanh(x)
		action[i] = s.actionMid + s.actionHal*t
		logProb += -0.5*eps*eps - logStd[i] - 0.5*math.Log(2*math.Pi)
		logProb -= math.Log(s.actionHal*(1-t*t) + 1e-6)
	}
	return action, logProb
}

// ExportState snapshots every parameter and optimizer buffer.
func (s *SAC) ExportState() (core.LearnerState, error) {
	params := make(map[string][]float64, len(s.params))
	for k, v := range s.params {
		params[k] = append([]float64(nil), v...)
	}
	return core.LearnerState{
		Algo:   algoSAC,
		Device: s.device,
		Params: params,
		Optims: map[string]core.OptimState{
			"actor":  s.actorOpt.State(),
			"critic": s.criticOpt.State(),
			"alpha":  s.alphaOpt.State(),
		},
	}, nil
}

// ImportState restores a snapshot. The state's device field names the
// placement it should be materialized on; for the CPU-only linear learner
// the remap amounts to adopting the label.
func (s *SAC) ImportState(state core.LearnerState) error {
	if state.Algo != algoSAC {
		return fmt.Errorf("agent: state algo %q, want %q", state.Algo, algoSAC)
	}
	for key, have := range s.params {
		saved, ok := state.Params[key]
		if !ok {
			return fmt.Errorf("agent: state missing parameter %q", key)
		}
		if len(saved) != len(have) {
			return fmt.Errorf("agent: parameter %q has %d values, want %d", key, len(saved), len(have))
		}
	}
	for key := range s.params {
		copy(s.params[key], state.Params[key])
	}
	for name, opt := range map[string]*SGD{"actor": s.actorOpt, "critic": s.criticOpt, "alpha": s.alphaOpt} {
		optState, ok := state.Optims[name]
		if !ok {
			return fmt.Errorf("agent: state missing optimizer %q", name)
		}
		if err := opt.LoadState(optState); err != nil {
			return fmt.Errorf("agent: optimizer %q: %w", name, err)
		}
	}
	if state.Device != "" {
		s.device = state.Device
	}
	return nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range b {
		sum += a[i] * b[i]
	}
	return sum
}

func axpy(dst []float64, a float64, x []float64) {
	for i := range x {
		dst[i] += a * x[i]
	}
}

func concat(a, b []float64) []float64 {
	out := make([]float64, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

var _ core.Learner = (*SAC)(nil)
