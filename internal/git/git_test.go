package git

import (
	stdErrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
)

var testAuthor = Author{Name: "tester", Email: "t@example.com"}

// newRemote creates a bare repository seeded with one commit and returns its path.
func newRemote(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	barePath := filepath.Join(tmp, "remote.git")
	_, err := git.PlainInit(barePath, true)
	require.NoError(t, err)

	seedPath := filepath.Join(tmp, "seed")
	seed, err := git.PlainInit(seedPath, false)
	require.NoError(t, err)
	_, err = seed.CreateRemote(&ggitcfg.RemoteConfig{Name: "origin", URLs: []string{barePath}})
	require.NoError(t, err)

	addFileAndCommit(t, seed, seedPath, "data.md", "# ledger\n", "bootstrap")
	require.NoError(t, seed.Push(&git.PushOptions{RemoteName: "origin"}))
	return barePath
}

func addFileAndCommit(t *testing.T, repo *git.Repository, repoPath, filename, content, msg string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(repoPath, filename), []byte(content), 0o600))
	_, err = wt.Add(filename)
	require.NoError(t, err)
	_, err = wt.Commit(msg, &git.CommitOptions{Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()}})
	require.NoError(t, err)
}

func writeAndCommit(t *testing.T, c *Client, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	_, err := c.Commit(dir, "add "+name, testAuthor, name)
	require.NoError(t, err)
}

func TestCloneCommitPush(t *testing.T) {
	remote := newRemote(t)
	c := NewClient()

	work := filepath.Join(t.TempDir(), "work")
	head, err := c.CloneFull(t.Context(), remote, work)
	require.NoError(t, err)
	require.Len(t, head, 40)
	require.True(t, IsRepository(work))
	require.FileExists(t, filepath.Join(work, "data.md"))

	writeAndCommit(t, c, work, "alice.app", "true\n")
	require.NoError(t, c.Push(t.Context(), work, "origin"))
	// Nothing new to push is not an error.
	require.NoError(t, c.Push(t.Context(), work, "origin"))

	verify := filepath.Join(t.TempDir(), "verify")
	_, err = c.Clone(t.Context(), remote, verify)
	require.NoError(t, err)
	content, err := os.ReadFile(filepath.Join(verify, "alice.app"))
	require.NoError(t, err)
	require.Equal(t, "true\n", string(content))

	branch, err := HeadBranch(work)
	require.NoError(t, err)
	require.Equal(t, "master", branch)
}

func TestDiscardDropsStagedPath(t *testing.T) {
	remote := newRemote(t)
	c := NewClient()
	work := filepath.Join(t.TempDir(), "work")
	_, err := c.CloneFull(t.Context(), remote, work)
	require.NoError(t, err)

	repo, err := git.PlainOpen(work)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(work, "bob.chat"), []byte("false\n"), 0o600))
	_, err = wt.Add("bob.chat")
	require.NoError(t, err)

	require.NoError(t, c.Discard(work, "bob.chat"))
	require.NoFileExists(t, filepath.Join(work, "bob.chat"))
	status, err := wt.Status()
	require.NoError(t, err)
	require.True(t, status.IsClean())

	// The next commit must not carry the discarded path.
	writeAndCommit(t, c, work, "alice.app", "true\n")
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	tree, err := commit.Tree()
	require.NoError(t, err)
	_, err = tree.File("bob.chat")
	require.Error(t, err)
}

func TestCloneMissingRemoteIsClassified(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	_, err := NewClient().Clone(t.Context(), filepath.Join(t.TempDir(), "nope.git"), dir)
	require.Error(t, err)
	require.True(t, errors.IsClassified(err))
}

func TestPushRejectedThenPullRebase(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	remote := newRemote(t)
	c := NewClient()

	a := filepath.Join(t.TempDir(), "a")
	b := filepath.Join(t.TempDir(), "b")
	_, err := c.CloneFull(t.Context(), remote, a)
	require.NoError(t, err)
	_, err = c.CloneFull(t.Context(), remote, b)
	require.NoError(t, err)

	writeAndCommit(t, c, a, "alice.one", "true\n")
	require.NoError(t, c.Push(t.Context(), a, "origin"))

	writeAndCommit(t, c, b, "bob.two", "false\n")
	err = c.Push(t.Context(), b, "origin")
	require.Error(t, err)
	require.True(t, IsPushRejected(err), "expected rejection, got %v", err)

	require.NoError(t, c.PullRebase(t.Context(), b, "origin", "master", testAuthor))
	require.FileExists(t, filepath.Join(b, "alice.one"))
	require.NoError(t, c.Push(t.Context(), b, "origin"))

	verify := filepath.Join(t.TempDir(), "verify")
	_, err = c.CloneFull(t.Context(), remote, verify)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(verify, "alice.one"))
	require.FileExists(t, filepath.Join(verify, "bob.two"))
}

func TestPullRebaseFailureIsClassified(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	err := NewClient().PullRebase(t.Context(), t.TempDir(), "origin", "master", testAuthor)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryGit))
}

func TestClassifyGitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category errors.ErrorCategory
		retry    bool
	}{
		{"auth", stdErrors.New("authentication required"), errors.CategoryAuth, false},
		{"not found", stdErrors.New("repository not found"), errors.CategoryNotFound, false},
		{"timeout", stdErrors.New("dial tcp: i/o timeout"), errors.CategoryNetwork, true},
		{"rejected", stdErrors.New("non-fast-forward update: refs/heads/master"), errors.CategoryGit, true},
		{"other", stdErrors.New("object corrupt"), errors.CategoryGit, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyGitError(tt.err, "push", "https://example.com/r.git")
			ce, ok := errors.AsClassified(got)
			require.True(t, ok)
			require.Equal(t, tt.category, ce.Category())
			require.Equal(t, tt.retry, ce.CanRetry())
			require.ErrorIs(t, got, tt.err)
		})
	}

	require.Nil(t, ClassifyGitError(nil, "push", ""))
	require.True(t, IsPushRejected(ClassifyGitError(stdErrors.New("! [rejected] master -> master (fetch first)"), "push", "")))
}

func TestTokenAuthOnlyForHTTP(t *testing.T) {
	require.Nil(t, tokenAuth("", "https://github.com/a/b.git"))
	require.Nil(t, tokenAuth("s3cret", "git@github.com:a/b.git"))
	require.Nil(t, tokenAuth("s3cret", "/srv/ledger.git"))
	require.NotNil(t, tokenAuth("s3cret", "https://github.com/a/b.git"))
}
