package execx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	e := New(0, nil)

	res, err := e.Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2; exit 3")
	require.NoError(t, err, "non-zero exit must not be an error at this level")
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRunMissingExecutable(t *testing.T) {
	e := New(0, nil)

	_, err := e.Run(context.Background(), "simyard-no-such-tool")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "simyard-no-such-tool", notFound.Name)
}

func TestOutputTrimsStdout(t *testing.T) {
	e := New(0, nil)

	out, err := e.Output(context.Background(), "sh", "-c", "printf '  hello \\n'")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestOutputNonZeroExit(t *testing.T) {
	e := New(0, nil)

	_, err := e.Output(context.Background(), "sh", "-c", "echo broken 1>&2; exit 1")
	var exit *ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.Code)
	assert.Equal(t, "broken", exit.Stderr)
	assert.Contains(t, exit.Error(), "broken")
}

func TestRunKillsAfterTimeout(t *testing.T) {
	e := New(100*time.Millisecond, nil)

	start := time.Now()
	_, err := e.Run(context.Background(), "sleep", "5")
	elapsed := time.Since(start)

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "sleep", timeout.Name)
	assert.Less(t, elapsed, 2*time.Second, "the child must be killed, not waited for")
}

func TestRunHonorsCallerDeadline(t *testing.T) {
	e := New(time.Minute, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := e.Run(ctx, "sleep", "5")
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
}

func TestRunCancellationIsNotATimeout(t *testing.T) {
	e := New(time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := e.Run(ctx, "sleep", "5")
	require.ErrorIs(t, err, context.Canceled)
	var timeout *TimeoutError
	assert.False(t, errors.As(err, &timeout))
}

func TestSpawnReturnsImmediately(t *testing.T) {
	e := New(0, nil)
	marker := filepath.Join(t.TempDir(), "spawned")

	start := time.Now()
	err := e.Spawn("sh", "-c", "sleep 0.2; echo done > "+marker)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "spawn must not wait for the child")

	require.Eventually(t, func() bool {
		_, statErr := os.Stat(marker)
		return statErr == nil
	}, 5*time.Second, 50*time.Millisecond, "detached child should still run to completion")
}

func TestSpawnMissingExecutable(t *testing.T) {
	e := New(0, nil)

	err := e.Spawn("simyard-no-such-tool")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}
