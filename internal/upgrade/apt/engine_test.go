package apt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	utilexec "k8s.io/utils/exec"
	testingexec "k8s.io/utils/exec/testing"

	"github.com/autopeer-io/installer/internal/upgrade"
	"github.com/autopeer-io/installer/pkg/log"
)

// script is the canned behaviour of one fake command.
type script struct {
	stdout string
	stderr string
	exit   int
}

// stderrOnEOF streams stdout and writes the scripted stderr to whatever the
// engine registered with SetStderr once stdout is drained.
type stderrOnEOF struct {
	io.Reader
	cmd    *testingexec.FakeCmd
	stderr string
	done   bool
}

func (r *stderrOnEOF) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if err == io.EOF && !r.done {
		r.done = true
		if r.cmd.Stderr != nil && r.stderr != "" {
			_, _ = io.WriteString(r.cmd.Stderr, r.stderr)
		}
	}
	return n, err
}

func (r *stderrOnEOF) Close() error { return nil }

type harness struct {
	exec   *testingexec.FakeExec
	cmds   []*testingexec.FakeCmd
	events []upgrade.Event
	order  []string
}

func newHarness(scripts ...script) *harness {
	h := &harness{exec: &testingexec.FakeExec{}}
	for _, s := range scripts {
		s := s
		fcmd := &testingexec.FakeCmd{}
		fcmd.StdoutPipeResponse = testingexec.FakeStdIOPipeResponse{
			ReadCloser: &stderrOnEOF{Reader: strings.NewReader(s.stdout), cmd: fcmd, stderr: s.stderr},
		}
		if s.exit != 0 {
			fcmd.WaitResponse = &utilexec.CodeExitError{Err: errors.New("exit status"), Code: s.exit}
		}
		h.cmds = append(h.cmds, fcmd)
		h.exec.CommandScript = append(h.exec.CommandScript, func(cmd string, args ...string) utilexec.Cmd {
			h.order = append(h.order, strings.Join(append([]string{cmd}, args...), " "))
			return testingexec.InitFakeCmd(fcmd, cmd, args...)
		})
	}
	return h
}

func (h *harness) emit(ev upgrade.Event) { h.events = append(h.events, ev) }

func (h *harness) engine(root string) *Engine {
	return New(root, WithExec(h.exec), WithLogger(log.NewNopLogger()))
}

func TestUpgradeSucceedsFirstPass(t *testing.T) {
	h := newHarness(script{stdout: "Reading package lists...\n" +
		"Unpacking foo (1.1) over (1.0) ...\n" +
		"Progress: [ 50%]\n" +
		"Setting up foo (1.1) ...\n"})
	engine := h.engine("/target")

	require.NoError(t, engine.Upgrade(&upgrade.RecoveryOption{Mode: "upgrade"}, h.emit))

	assert.Equal(t, []upgrade.Event{
		upgrade.AttemptingUpgrade{},
		upgrade.UpgradeInfo{Message: "Reading package lists..."},
		upgrade.PackageUnpacking{Package: "foo", Version: "1.1", Over: "1.0"},
		upgrade.PackageProgress{Percent: 50},
		upgrade.PackageSettingUp{Package: "foo"},
	}, h.events)
	assert.Equal(t, PhaseSucceeded, engine.Phase())
	assert.Equal(t, 1, h.exec.CommandCalls)
	assert.Equal(t, []string{"chroot", "/target", "apt-get", "full-upgrade"}, h.cmds[0].Argv[:4])
	assert.Contains(t, h.cmds[0].Env, "DEBIAN_FRONTEND=noninteractive")
}

func TestUpgradeRepairsOnceThenRetries(t *testing.T) {
	h := newHarness(
		script{stderr: "E: dpkg was interrupted\n", exit: 100},
		script{stdout: "Setting up bar (2.0) ...\n"},
		script{stdout: "0 upgraded, 0 newly installed\n"},
		script{stdout: "Progress: [100%]\n"},
	)
	engine := h.engine("/")

	require.NoError(t, engine.Upgrade(nil, h.emit))

	assert.Equal(t, []upgrade.Event{
		upgrade.AttemptingUpgrade{},
		upgrade.UpgradeErr{Message: "E: dpkg was interrupted"},
		upgrade.AttemptingRepair{},
		upgrade.PackageSettingUp{Package: "bar"},
		upgrade.UpgradeInfo{Message: "0 upgraded, 0 newly installed"},
		upgrade.AttemptingUpgrade{},
		upgrade.PackageProgress{Percent: 100},
	}, h.events)
	assert.Equal(t, PhaseSucceeded, engine.Phase())
	require.Len(t, h.order, 4)
	assert.True(t, strings.HasPrefix(h.order[0], "apt-get full-upgrade"))
	assert.Equal(t, "dpkg --configure -a", h.order[1])
	assert.Equal(t, "apt-get install -f -y", h.order[2])
	assert.True(t, strings.HasPrefix(h.order[3], "apt-get full-upgrade"))
}

func TestUpgradeFailsAfterSingleRepair(t *testing.T) {
	h := newHarness(
		script{exit: 100},
		script{},
		script{},
		script{exit: 100},
	)
	engine := h.engine("/target")

	err := engine.Upgrade(nil, h.emit)
	require.Error(t, err)
	assert.ErrorIs(t, err, errRepairExhausted)

	var exitErr utilexec.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 100, exitErr.ExitStatus())
	assert.Equal(t, PhaseFailed, engine.Phase())
	assert.Equal(t, 4, h.exec.CommandCalls)
}

func TestUpgradeRepairFailureStops(t *testing.T) {
	h := newHarness(
		script{exit: 100},
		script{stderr: "dpkg: error processing package baz\n", exit: 1},
	)
	engine := h.engine("/target")

	err := engine.Upgrade(nil, h.emit)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dpkg --configure -a")
	assert.Equal(t, PhaseFailed, engine.Phase())
	assert.Equal(t, upgrade.DpkgErr{Message: "dpkg: error processing package baz"}, h.events[len(h.events)-1])
	assert.Equal(t, 2, h.exec.CommandCalls)
}

func TestResumeAsksForRepairTargetFirst(t *testing.T) {
	h := newHarness(script{}, script{}, script{})
	engine := h.engine("")

	err := engine.Resume(h.emit, func(target string) {
		h.order = append(h.order, "repair:"+target)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"repair:/",
		"dpkg --configure -a",
		"apt-get install -f -y",
	}, h.order[:3])
	assert.True(t, strings.HasPrefix(h.order[3], "apt-get full-upgrade"))
	assert.Equal(t, []upgrade.Event{
		upgrade.ResumingUpgrade{},
		upgrade.AttemptingRepair{},
		upgrade.AttemptingUpgrade{},
	}, h.events)
	assert.Equal(t, PhaseSucceeded, engine.Phase())
	assert.Equal(t, "/", engine.Root())
}

func TestResumeDoesNotRepairTwice(t *testing.T) {
	h := newHarness(script{}, script{}, script{exit: 100})
	engine := h.engine("/target")

	err := engine.Resume(h.emit, func(string) {})
	require.Error(t, err)
	assert.Equal(t, PhaseFailed, engine.Phase())
	assert.Equal(t, 3, h.exec.CommandCalls)
}

func TestArgv(t *testing.T) {
	assert.Equal(t, []string{"dpkg", "--configure", "-a"}, New("/").argv("dpkg", "--configure", "-a"))
	assert.Equal(t, []string{"chroot", "/mnt", "dpkg", "-l"}, New("/mnt").argv("dpkg", "-l"))
}

func TestUpgradeEmitsLongLines(t *testing.T) {
	long := strings.Repeat("x", 100_000)
	h := newHarness(script{stdout: long + "\nSetting up foo (1.1) ...\n"})

	require.NoError(t, h.engine("/").Upgrade(nil, h.emit))

	assert.Equal(t, []upgrade.Event{
		upgrade.AttemptingUpgrade{},
		upgrade.UpgradeInfo{Message: long},
		upgrade.PackageSettingUp{Package: "foo"},
	}, h.events)
}

func TestUpgradeFailsOnOversizedLine(t *testing.T) {
	huge := strings.Repeat("x", maxLineBytes+1) + "\nSetting up foo (1.1) ...\n"
	h := newHarness(
		script{stdout: huge, stderr: "E: oversized\n"},
		script{},
		script{},
		script{stdout: huge},
	)
	engine := h.engine("/")

	err := engine.Upgrade(nil, h.emit)
	require.Error(t, err)
	assert.ErrorIs(t, err, bufio.ErrTooLong)
	assert.ErrorIs(t, err, errRepairExhausted)
	assert.Contains(t, err.Error(), "read apt-get output")
	assert.Equal(t, PhaseFailed, engine.Phase())
	// The rest of stdout was drained, so stderr still arrives.
	assert.Contains(t, h.events, upgrade.UpgradeErr{Message: "E: oversized"})
	assert.NotContains(t, h.events, upgrade.PackageSettingUp{Package: "foo"})
}

// fakeAptGet installs an apt-get shell script on PATH that prints one line
// of lineBytes bytes followed by count "Setting up" lines.
func fakeAptGet(t *testing.T, lineBytes, count int) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}

	dir := t.TempDir()
	body := fmt.Sprintf(`#!/bin/sh
head -c %d /dev/zero | tr '\000' x
echo
i=0
while [ $i -lt %d ]; do
	echo "Setting up pkg$i (1.0) ..."
	i=$((i+1))
done
`, lineBytes, count)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "apt-get"), []byte(body), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestUpgradeLongLineFromRealProcess(t *testing.T) {
	fakeAptGet(t, 100_000, 3000)

	var events []upgrade.Event
	done := make(chan error, 1)
	go func() {
		done <- New("/", WithLogger(log.NewNopLogger())).Upgrade(nil, func(ev upgrade.Event) {
			events = append(events, ev)
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(30 * time.Second):
		t.Fatal("upgrade did not return after a long output line")
	}

	require.Len(t, events, 3002)
	assert.Equal(t, upgrade.UpgradeInfo{Message: strings.Repeat("x", 100_000)}, events[1])
	assert.Equal(t, upgrade.PackageSettingUp{Package: "pkg2999"}, events[3001])
}

func TestPhaseChangesAreLoggedThroughContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newHarness(script{})
	engine := New("/target", WithExec(h.exec), WithLogger(log.NewFromZap(zap.New(core))))

	require.NoError(t, engine.Upgrade(nil, h.emit))

	changes := logs.FilterMessage("upgrade phase changed").All()
	require.Len(t, changes, 2)
	assert.Equal(t, "apt", changes[0].LoggerName)
	assert.Equal(t, zapcore.DebugLevel, changes[0].Level)
	assert.Equal(t, "/target", changes[0].ContextMap()["root"])
	assert.Equal(t, PhaseSucceeded, changes[1].ContextMap()["to"])
}
