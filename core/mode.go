package core

// Mode selects the learner behavior scope applied while acting. ModeEval and
// ModeTrain place the learner in the corresponding behavior before acting and
// restore the prior behavior afterwards; ModeNone acts without switching.
type Mode string

const (
	ModeNone  Mode = "none"
	ModeTrain Mode = "train"
	ModeEval  Mode = "eval"
)

// RunMode is the top-level run mode: a training run or an evaluation-only
// run. Evaluation-only resumes skip replay archive reconstruction since no
// further learning updates will consume it.
type RunMode string

const (
	RunModeTrain RunMode = "train"
	RunModeEval  RunMode = "eval"
)
