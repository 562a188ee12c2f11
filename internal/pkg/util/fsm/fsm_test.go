package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMachine(guard func(context.Context, *fsm.Event) error) *fsm.FSM {
	return fsm.NewFSM("idle",
		fsm.Events{
			{Name: "start", Src: []string{"idle"}, Dst: "running"},
			{Name: "stay", Src: []string{"idle"}, Dst: "idle"},
		},
		fsm.Callbacks{"before_start": WrapEvent(guard)},
	)
}

func TestFireIgnoresSelfTransition(t *testing.T) {
	machine := newMachine(func(context.Context, *fsm.Event) error { return nil })

	require.NoError(t, Fire(context.Background(), machine, "stay"))
	assert.Equal(t, "idle", machine.Current())
}

func TestFireTransitions(t *testing.T) {
	machine := newMachine(func(context.Context, *fsm.Event) error { return nil })

	require.NoError(t, Fire(context.Background(), machine, "start"))
	assert.Equal(t, "running", machine.Current())
}

func TestFireReturnsCancellation(t *testing.T) {
	cause := errors.New("not now")
	machine := newMachine(func(_ context.Context, e *fsm.Event) error {
		e.Cancel(cause)
		return nil
	})

	err := Fire(context.Background(), machine, "start")
	var canceled fsm.CanceledError
	require.True(t, errors.As(err, &canceled))
	assert.Equal(t, cause, canceled.Err)
	assert.Equal(t, "idle", machine.Current())
}

func TestFireRejectsInvalidEvent(t *testing.T) {
	machine := newMachine(func(context.Context, *fsm.Event) error { return nil })
	require.NoError(t, Fire(context.Background(), machine, "start"))

	err := Fire(context.Background(), machine, "start")
	var invalid fsm.InvalidEventError
	assert.True(t, errors.As(err, &invalid))
}
