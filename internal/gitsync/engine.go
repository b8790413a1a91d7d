package gitsync

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/odt-devops/odt-env/internal/logx"
)

// shallowDepth is the history depth used for shallow checkouts.
const shallowDepth = 1

// Target declares the desired state of one repository.
type Target struct {
	Name    string
	URL     string
	Branch  string
	Dir     string
	Shallow bool
}

func (t Target) desiredState() State {
	if t.Shallow {
		return StateShallow
	}
	return StateFull
}

// Engine converges repositories to their targets, one at a time. It never
// discards local work: a dirty working tree aborts the run before that
// repository is touched.
type Engine struct {
	git      Git
	observer Observer
	log      zerolog.Logger
}

// NewEngine creates an Engine from its two capabilities.
func NewEngine(git Git, observer Observer) *Engine {
	return &Engine{git: git, observer: observer, log: logx.WithComponent("gitsync")}
}

// SyncAll converges targets sequentially in the given order. The first
// failure aborts the run immediately; repositories already converged stay
// as they were left.
func (e *Engine) SyncAll(ctx context.Context, targets []Target) error {
	for _, t := range targets {
		if err := e.Sync(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// Sync converges one repository according to the transition table:
//
//	absent  -> full:     clone with complete history, all refs
//	absent  -> shallow:  clone at depth 1, single branch
//	full    -> full:     fetch all refs and tags, hard-reset to origin tip
//	shallow -> shallow:  fetch target branch at depth 1, hard-reset
//	shallow -> full:     widen refspec, unshallow, then full sync
//	full    -> shallow:  no history is discarded; synced as a normal full
//	                     fetch (documented limitation)
func (e *Engine) Sync(ctx context.Context, t Target) error {
	observed, err := e.observer.State(t.Dir)
	if err != nil {
		return &OperationError{Op: "inspect", Repo: t.Name, Dir: t.Dir, Cause: err}
	}

	desired := t.desiredState()
	e.log.Info().
		Str("repo", t.Name).
		Str("branch", t.Branch).
		Stringer("observed", observed).
		Stringer("desired", desired).
		Msg("syncing repository")

	if observed == StateAbsent {
		return e.clone(ctx, t)
	}

	// Guard: never mutate over uncommitted local work.
	dirty, err := e.observer.Dirty(t.Dir)
	if err != nil {
		return &OperationError{Op: "status", Repo: t.Name, Dir: t.Dir, Cause: err}
	}
	if dirty {
		return &DirtyWorkTreeError{Dir: t.Dir}
	}

	if desired == StateShallow {
		// Covers shallow->shallow and the full->shallow non-conversion:
		// existing full history is kept, only the fetch is narrow.
		if err := e.git.FetchBranch(ctx, t.Dir, t.Branch, shallowDepth); err != nil {
			return &OperationError{Op: "fetch", Repo: t.Name, Dir: t.Dir, Cause: err}
		}
	} else {
		if err := e.git.WidenFetchRefspec(ctx, t.Dir); err != nil {
			return &OperationError{Op: "widen-refspec", Repo: t.Name, Dir: t.Dir, Cause: err}
		}
		if observed == StateShallow {
			if err := e.git.Unshallow(ctx, t.Dir); err != nil {
				return &OperationError{Op: "unshallow", Repo: t.Name, Dir: t.Dir, Cause: err}
			}
		}
		if err := e.git.FetchAll(ctx, t.Dir); err != nil {
			return &OperationError{Op: "fetch", Repo: t.Name, Dir: t.Dir, Cause: err}
		}
	}

	if err := e.git.HardReset(ctx, t.Dir, t.Branch); err != nil {
		return &OperationError{Op: "reset", Repo: t.Name, Dir: t.Dir, Cause: err}
	}
	return nil
}

func (e *Engine) clone(ctx context.Context, t Target) error {
	depth := 0
	if t.Shallow {
		depth = shallowDepth
	}
	if err := e.git.Clone(ctx, t.URL, t.Dir, t.Branch, depth); err != nil {
		return &OperationError{Op: "clone", Repo: t.Name, Dir: t.Dir, Cause: err}
	}
	return nil
}
