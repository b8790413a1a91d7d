// Package execx runs external commands with captured output.
//
// odt-env shells out to two external tools (git and uv); both are invoked
// through the Runner interface so the callers can be tested against a fake
// without spawning processes.
package execx

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/odt-devops/odt-env/internal/logx"
)

// Result represents the outcome of a command execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external commands. Implementations must be safe for
// sequential reuse; odt-env never runs commands concurrently.
type Runner interface {
	Run(ctx context.Context, command []string, dir string) (*Result, error)
}

// OSRunner implements Runner using os/exec for real system commands.
type OSRunner struct {
	log zerolog.Logger
}

// NewOSRunner creates a Runner that spawns real processes.
func NewOSRunner() *OSRunner {
	return &OSRunner{log: logx.WithComponent("exec")}
}

// Run executes a command and returns its buffered output. A non-zero exit
// status is reported as a *CommandError; the Result is still populated so
// callers can inspect partial output.
func (r *OSRunner) Run(ctx context.Context, command []string, dir string) (*Result, error) {
	if len(command) == 0 {
		return nil, os.ErrInvalid
	}

	r.log.Debug().Str("dir", dir).Msg(strings.Join(command, " "))

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = dir
	cmd.Stdin = nil

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		res.ExitCode = exitCode(err)
		return res, &CommandError{
			Cmd:      command[0],
			Args:     command[1:],
			Dir:      dir,
			ExitCode: res.ExitCode,
			Stderr:   strings.TrimSpace(res.Stderr),
			Cause:    err,
		}
	}
	return res, nil
}

func exitCode(err error) int {
	type exitCoder interface {
		ExitCode() int
	}
	if ec, ok := err.(exitCoder); ok {
		return ec.ExitCode()
	}
	return -1
}
