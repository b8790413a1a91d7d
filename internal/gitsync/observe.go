package gitsync

import (
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
)

// State is the observed on-disk condition of one repository directory.
type State int

const (
	// StateAbsent means no repository exists at the directory.
	StateAbsent State = iota
	// StateFull means a repository with complete history exists.
	StateFull
	// StateShallow means a depth-limited repository exists.
	StateShallow
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateFull:
		return "full"
	case StateShallow:
		return "shallow"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Observer inspects repository state without mutating it.
type Observer interface {
	// State reports whether a repository exists at dir and whether its
	// history is shallow.
	State(dir string) (State, error)
	// Dirty reports whether the working tree has uncommitted
	// modifications or untracked files.
	Dirty(dir string) (bool, error)
}

// GoGitObserver implements Observer using go-git, so state inspection
// needs no external process.
type GoGitObserver struct{}

// NewObserver creates the go-git backed Observer.
func NewObserver() *GoGitObserver {
	return &GoGitObserver{}
}

func (o *GoGitObserver) State(dir string) (State, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return StateAbsent, nil
		}
		return StateAbsent, err
	}
	shallow, err := repo.Storer.Shallow()
	if err != nil {
		return StateAbsent, err
	}
	if len(shallow) > 0 {
		return StateShallow, nil
	}
	return StateFull, nil
}

func (o *GoGitObserver) Dirty(dir string) (bool, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return false, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return false, err
	}
	status, err := worktree.Status()
	if err != nil {
		return false, err
	}
	return !status.IsClean(), nil
}
