package upgrade

import (
	"github.com/autopeer-io/installer/internal/pkg/metrics"
	"github.com/autopeer-io/installer/pkg/log"
)

const (
	OpUpgrade = "upgrade"
	OpResume  = "resumed upgrade"
)

// Failure is returned when the engine reports an error. The detail stays
// available through Unwrap; across the C boundary only Status survives.
type Failure struct {
	Op  string
	Err error
}

func (f *Failure) Error() string { return f.Op + " failed: " + f.Err.Error() }

func (f *Failure) Unwrap() error { return f.Err }

// Status collapses an Upgrade or ResumeUpgrade result into the boundary
// status code: 0 on success, -1 otherwise.
func Status(err error) int {
	if err == nil {
		return 0
	}
	return -1
}

// Invoker drives an Engine and forwards its events as envelopes.
type Invoker struct {
	logger log.Logger
}

// NewInvoker returns an Invoker. A nil logger means the global one.
func NewInvoker(logger log.Logger) *Invoker {
	if logger == nil {
		logger = log.Std()
	}
	return &Invoker{logger: logger}
}

// Upgrade runs a one-shot upgrade. Each engine event is converted and
// delivered to sink before the engine moves on. A nil engine is a
// programming error and panics.
func (i *Invoker) Upgrade(engine Engine, option *RecoveryOption, sink EventSink) error {
	if engine == nil {
		panic("upgrade: engine must not be nil")
	}

	i.logger.Debug("starting upgrade")
	err := engine.Upgrade(option, i.forward(sink))
	return i.finish(OpUpgrade, "upgrade", err)
}

// ResumeUpgrade continues an interrupted upgrade. Besides the event stream,
// chooser is invoked synchronously whenever the engine asks for a repair
// target. A nil engine panics before any callback runs.
func (i *Invoker) ResumeUpgrade(engine Engine, sink EventSink, chooser RepairChooser) error {
	if engine == nil {
		panic("resume upgrade: engine must not be nil")
	}

	repair := func(string) {}
	if chooser != nil {
		repair = chooser.ChooseRepair
	}

	i.logger.Debug("resuming upgrade")
	err := engine.Resume(i.forward(sink), repair)
	return i.finish(OpResume, "resume", err)
}

func (i *Invoker) forward(sink EventSink) func(Event) {
	return func(ev Event) {
		env := ToEnvelope(ev)
		metrics.UpgradeEventsTotal.WithLabelValues(env.Tag.String()).Inc()
		if sink != nil {
			sink.OnEvent(env)
		}
	}
}

func (i *Invoker) finish(op, label string, err error) error {
	if err == nil {
		metrics.UpgradesTotal.WithLabelValues(label, "success").Inc()
		return nil
	}

	metrics.UpgradesTotal.WithLabelValues(label, "failure").Inc()
	i.logger.Error(err, op+" failed")
	return &Failure{Op: op, Err: err}
}
