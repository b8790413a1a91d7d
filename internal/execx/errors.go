package execx

import "fmt"

// CommandError is returned when an external command cannot be started or
// exits unsuccessfully.
type CommandError struct {
	Cmd      string
	Args     []string
	Dir      string
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *CommandError) Error() string {
	if e.Cause != nil && e.ExitCode == 0 {
		return fmt.Sprintf("command %s failed to start: %v", e.Cmd, e.Cause)
	}
	return fmt.Sprintf("command %s exited with code %d: %s", e.Cmd, e.ExitCode, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Cause }
