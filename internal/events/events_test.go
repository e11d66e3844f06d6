package events

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingSink struct {
	attempts, runs int
	err            error
}

func (c *countingSink) AttemptFinished(context.Context, AttemptFinished) error {
	c.attempts++
	return c.err
}

func (c *countingSink) RunFinished(context.Context, RunFinished) error {
	c.runs++
	return c.err
}

func TestFanoutDeliversToAllSinksDespiteFailures(t *testing.T) {
	failing := &countingSink{err: stdErrors.New("down")}
	ok := &countingSink{}
	f := Fanout{failing, ok}

	require.NoError(t, f.AttemptFinished(t.Context(), AttemptFinished{Key: "alice.todo"}))
	require.NoError(t, f.RunFinished(t.Context(), RunFinished{RunID: "r1"}))
	require.Equal(t, 1, failing.attempts)
	require.Equal(t, 1, ok.attempts)
	require.Equal(t, 1, ok.runs)
}
