package gitsync

import "fmt"

// DirtyWorkTreeError is returned when a repository scheduled for syncing
// contains uncommitted modifications or untracked files. The run aborts
// before mutating that repository.
type DirtyWorkTreeError struct {
	Dir string
}

func (e *DirtyWorkTreeError) Error() string {
	return fmt.Sprintf(
		"local changes detected in repository %s: commit and push your local changes (or clean the working tree) before syncing",
		e.Dir,
	)
}

// OperationError is returned when an external version-control operation
// fails.
type OperationError struct {
	Op    string
	Repo  string
	Dir   string
	Cause error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("git %s failed for repository %s at %s: %v", e.Op, e.Repo, e.Dir, e.Cause)
}

func (e *OperationError) Unwrap() error { return e.Cause }
