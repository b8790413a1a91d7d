package gitsync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func commitFile(t *testing.T, dir string, repo *git.Repository, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("content\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestObserverState(t *testing.T) {
	obs := NewObserver()

	t.Run("Absent", func(t *testing.T) {
		state, err := obs.State(filepath.Join(t.TempDir(), "nothing"))
		require.NoError(t, err)
		assert.Equal(t, StateAbsent, state)
	})

	t.Run("PlainDirectoryIsAbsent", func(t *testing.T) {
		state, err := obs.State(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, StateAbsent, state)
	})

	t.Run("Full", func(t *testing.T) {
		dir, repo := initRepo(t)
		commitFile(t, dir, repo, "a.txt")
		state, err := obs.State(dir)
		require.NoError(t, err)
		assert.Equal(t, StateFull, state)
	})
}

func TestObserverDirty(t *testing.T) {
	obs := NewObserver()

	dir, repo := initRepo(t)
	commitFile(t, dir, repo, "a.txt")

	dirty, err := obs.Dirty(dir)
	require.NoError(t, err)
	assert.False(t, dirty)

	t.Run("UntrackedFile", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x\n"), 0o644))
		dirty, err := obs.Dirty(dir)
		require.NoError(t, err)
		assert.True(t, dirty)
	})

	t.Run("ModifiedFile", func(t *testing.T) {
		dir, repo := initRepo(t)
		commitFile(t, dir, repo, "a.txt")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("changed\n"), 0o644))
		dirty, err := obs.Dirty(dir)
		require.NoError(t, err)
		assert.True(t, dirty)
	})
}
