// Package apt provides an upgrade.Engine that drives apt-get and dpkg on a
// mounted system root and reports their output as upgrade events.
//
// The engine performs at most one repair per call: an upgrade pass that
// fails is followed by `dpkg --configure -a` and `apt-get install -f`, then a
// single further upgrade pass. Locating and mounting the root is the
// caller's business.
package apt

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/looplab/fsm"
	utilexec "k8s.io/utils/exec"

	fsmutil "github.com/autopeer-io/installer/internal/pkg/util/fsm"
	"github.com/autopeer-io/installer/internal/upgrade"
	"github.com/autopeer-io/installer/pkg/log"
)

const (
	PhaseIdle      = "idle"
	PhaseUpgrading = "upgrading"
	PhaseRepairing = "repairing"
	PhaseSucceeded = "succeeded"
	PhaseFailed    = "failed"

	eventUpgrade = "upgrade"
	eventRepair  = "repair"
	eventSucceed = "succeed"
	eventFail    = "fail"
)

// maxLineBytes bounds a single line of apt or dpkg output. Longer lines fail
// the command after the rest of its output has been drained.
const maxLineBytes = 1 << 20

var errRepairExhausted = errors.New("package state is still broken after repair")

var upgradeArgs = []string{
	"full-upgrade", "-y",
	"--allow-downgrades",
	"-o", "Dpkg::Options::=--force-confdef",
	"-o", "Dpkg::Options::=--force-confold",
	"-o", "Dpkg::Progress=1",
}

// Engine upgrades the system mounted at root. It is not safe for
// concurrent use; one upgrade call owns it at a time.
type Engine struct {
	root   string
	exec   utilexec.Interface
	logger log.Logger

	phase string
}

var _ upgrade.Engine = (*Engine)(nil)

// Option customizes an Engine.
type Option func(*Engine)

// WithExec replaces the command runner.
func WithExec(e utilexec.Interface) Option {
	return func(engine *Engine) { engine.exec = e }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(engine *Engine) { engine.logger = l }
}

// New returns an Engine for the system at root. Commands are wrapped in
// chroot unless root is "/" or empty.
func New(root string, opts ...Option) *Engine {
	e := &Engine{
		root:   root,
		exec:   utilexec.New(),
		logger: log.Std(),
		phase:  PhaseIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithName("apt").WithValues("root", e.target())
	return e
}

// Root returns the target root.
func (e *Engine) Root() string { return e.target() }

// Phase returns the phase the last call ended in.
func (e *Engine) Phase() string { return e.phase }

func (e *Engine) target() string {
	if e.root == "" {
		return "/"
	}
	return e.root
}

// Upgrade runs one upgrade pass, repairing and retrying once on failure.
func (e *Engine) Upgrade(option *upgrade.RecoveryOption, emit func(upgrade.Event)) error {
	if option != nil {
		e.logger.Debug("upgrading from recovery", "mode", option.Mode, "root-uuid", option.RootUUID)
	}

	s := e.newSession(emit)
	defer func() { e.phase = s.machine.Current() }()

	ctx := log.IntoContext(context.Background(), e.logger)
	err := s.upgradePass(ctx)
	if err == nil {
		return fsmutil.Fire(ctx, s.machine, eventSucceed)
	}

	e.logger.Warn("upgrade pass failed, attempting repair", "error", err)
	if err := s.repair(ctx); err != nil {
		return err
	}
	if err := s.upgradePass(ctx); err != nil {
		return errors.Join(errRepairExhausted, err)
	}
	return fsmutil.Fire(ctx, s.machine, eventSucceed)
}

// Resume continues an interrupted upgrade: the caller is shown the repair
// target, the package state is repaired, and one upgrade pass runs.
func (e *Engine) Resume(emit func(upgrade.Event), repair func(target string)) error {
	s := e.newSession(emit)
	defer func() { e.phase = s.machine.Current() }()

	ctx := log.IntoContext(context.Background(), e.logger)
	emit(upgrade.ResumingUpgrade{})
	repair(e.target())

	if err := s.repair(ctx); err != nil {
		return err
	}
	if err := s.upgradePass(ctx); err != nil {
		return err
	}
	return fsmutil.Fire(ctx, s.machine, eventSucceed)
}

// session is the state of a single Upgrade or Resume call.
type session struct {
	engine  *Engine
	emit    func(upgrade.Event)
	machine *fsm.FSM
	repairs int
}

func (e *Engine) newSession(emit func(upgrade.Event)) *session {
	s := &session{engine: e, emit: emit}

	events := fsm.Events{
		{Name: eventUpgrade, Src: []string{PhaseIdle, PhaseRepairing}, Dst: PhaseUpgrading},
		{Name: eventRepair, Src: []string{PhaseIdle, PhaseUpgrading}, Dst: PhaseRepairing},
		{Name: eventSucceed, Src: []string{PhaseUpgrading}, Dst: PhaseSucceeded},
		{Name: eventFail, Src: []string{PhaseUpgrading, PhaseRepairing}, Dst: PhaseFailed},
	}

	callbacks := fsm.Callbacks{
		"before_" + eventRepair: fsmutil.WrapEvent(s.guardSingleRepair),
		"enter_state": func(ctx context.Context, ev *fsm.Event) {
			log.FromContext(ctx).V(1).Info("upgrade phase changed", "from", ev.Src, "to", ev.Dst)
		},
	}

	s.machine = fsm.NewFSM(PhaseIdle, events, callbacks)
	return s
}

func (s *session) guardSingleRepair(ctx context.Context, ev *fsm.Event) error {
	if s.repairs > 0 {
		log.FromContext(ctx).Info("refusing a second repair", "repairs", s.repairs)
		ev.Cancel(errRepairExhausted)
		return nil
	}
	s.repairs++
	return nil
}

func (s *session) upgradePass(ctx context.Context) error {
	if err := fsmutil.Fire(ctx, s.machine, eventUpgrade); err != nil {
		return err
	}
	s.emit(upgrade.AttemptingUpgrade{})

	if err := s.run(fromApt, "apt-get", upgradeArgs...); err != nil {
		return s.fail(ctx, err)
	}
	return nil
}

func (s *session) repair(ctx context.Context) error {
	if err := fsmutil.Fire(ctx, s.machine, eventRepair); err != nil {
		return err
	}
	s.emit(upgrade.AttemptingRepair{})

	if err := s.run(fromDpkg, "dpkg", "--configure", "-a"); err != nil {
		return s.fail(ctx, err)
	}
	if err := s.run(fromApt, "apt-get", "install", "-f", "-y"); err != nil {
		return s.fail(ctx, err)
	}
	return nil
}

// fail moves the machine to failed unless the caller still intends to
// repair. The first failed upgrade pass of Upgrade is recoverable, so it
// stays in upgrading and the following repair transition takes over.
func (s *session) fail(ctx context.Context, cause error) error {
	if s.machine.Current() == PhaseUpgrading && s.repairs == 0 {
		return cause
	}
	if err := fsmutil.Fire(ctx, s.machine, eventFail); err != nil {
		s.engine.logger.Debug("could not record failed phase", "error", err)
	}
	return cause
}

// run executes a command and emits its output line by line. Standard error
// is buffered and emitted once the command exits so that no extra reader is
// needed while stdout is consumed on this goroutine.
func (s *session) run(src source, name string, args ...string) error {
	argv := s.engine.argv(name, args...)

	cmd := s.engine.exec.Command(argv[0], argv[1:]...)
	cmd.SetEnv(append(os.Environ(), "DEBIAN_FRONTEND=noninteractive", "LC_ALL=C"))

	var stderr bytes.Buffer
	cmd.SetStderr(&stderr)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s: stdout pipe: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		s.emit(classifyStdout(scanner.Text(), src))
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// The child blocks on a full pipe until someone reads it.
		_, _ = io.Copy(io.Discard, stdout)
	}
	waitErr := cmd.Wait()

	for _, line := range strings.Split(stderr.String(), "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			s.emit(classifyStderr(line, src))
		}
	}

	if waitErr != nil {
		return fmt.Errorf("%s: %w", strings.Join(argv, " "), waitErr)
	}
	if scanErr != nil {
		return fmt.Errorf("read %s output: %w", name, scanErr)
	}
	return nil
}

func (e *Engine) argv(name string, args ...string) []string {
	argv := make([]string, 0, len(args)+3)
	if t := e.target(); t != "/" {
		argv = append(argv, "chroot", t)
	}
	argv = append(argv, name)
	return append(argv, args...)
}
