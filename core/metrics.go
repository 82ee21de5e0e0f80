package core

// MetricsLogger is the per-agent training diagnostics collaborator. Values
// logged between dumps are averaged; Dump flushes them at the given step.
type MetricsLogger interface {
	Log(key string, value float64, step int)

	// Dump flushes accumulated values. save=false discards them without
	// persisting, which the training loop uses during warm-up.
	Dump(step int, save bool)
}

// Recorder captures evaluation episodes. Init is called at episode start
// (enabled for the first evaluation episode only), Record after every step,
// Save once the episode finishes.
type Recorder interface {
	Init(enabled bool)
	Record(env Environment)
	Save(name string) error
}
