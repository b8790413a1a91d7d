package execx

import (
	"context"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSRunner(t *testing.T) {
	runner := NewOSRunner()

	t.Run("CapturesStdout", func(t *testing.T) {
		res, err := runner.Run(context.Background(), []string{"echo", "hello"}, "")
		require.NoError(t, err)
		assert.Equal(t, "hello", strings.TrimSpace(res.Stdout))
		assert.Zero(t, res.ExitCode)
	})

	t.Run("RunsInDirectory", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("pwd is not available on windows")
		}
		dir := t.TempDir()
		res, err := runner.Run(context.Background(), []string{"pwd"}, dir)
		require.NoError(t, err)
		assert.Contains(t, strings.TrimSpace(res.Stdout), dir)
	})

	t.Run("EmptyCommand", func(t *testing.T) {
		_, err := runner.Run(context.Background(), nil, "")
		assert.ErrorIs(t, err, os.ErrInvalid)
	})

	t.Run("NonZeroExit", func(t *testing.T) {
		cmd := []string{"false"}
		if runtime.GOOS == "windows" {
			cmd = []string{"cmd", "/c", "exit 1"}
		}
		res, err := runner.Run(context.Background(), cmd, "")
		var cmdErr *CommandError
		require.ErrorAs(t, err, &cmdErr)
		assert.Equal(t, 1, cmdErr.ExitCode)
		assert.Equal(t, 1, res.ExitCode)
	})

	t.Run("StderrCapturedInError", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("sh is not available on windows")
		}
		_, err := runner.Run(context.Background(), []string{"sh", "-c", "echo broken >&2; exit 3"}, "")
		var cmdErr *CommandError
		require.ErrorAs(t, err, &cmdErr)
		assert.Equal(t, 3, cmdErr.ExitCode)
		assert.Equal(t, "broken", cmdErr.Stderr)
	})

	t.Run("MissingBinary", func(t *testing.T) {
		_, err := runner.Run(context.Background(), []string{"definitely-not-a-real-binary-odt"}, "")
		var cmdErr *CommandError
		require.ErrorAs(t, err, &cmdErr)
	})
}
