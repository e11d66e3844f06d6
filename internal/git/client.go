package git

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
)

// Author identifies who commits ledger entries.
type Author struct {
	Name  string
	Email string
}

func (a Author) signature() *object.Signature {
	return &object.Signature{Name: a.Name, Email: a.Email, When: time.Now()}
}

// Client performs git operations. The zero value is usable: anonymous, full-depth clones.
type Client struct {
	token        string
	shallowDepth int
	gitBin       string
}

// NewClient creates a new Git client.
func NewClient() *Client { return &Client{gitBin: "git"} }

// WithToken attaches a token used for HTTP(S) remotes (fluent helper).
func (c *Client) WithToken(token string) *Client { c.token = token; return c }

// WithShallowDepth limits clone history; 0 clones full history.
func (c *Client) WithShallowDepth(depth int) *Client { c.shallowDepth = depth; return c }

// Clone clones url into dir, which must be absent or empty, and returns the checked out commit.
func (c *Client) Clone(ctx context.Context, url, dir string) (string, error) {
	return c.clone(ctx, url, dir, c.shallowDepth)
}

// CloneFull clones url into dir with complete history, as needed for rebasing.
func (c *Client) CloneFull(ctx context.Context, url, dir string) (string, error) {
	return c.clone(ctx, url, dir, 0)
}

func (c *Client) clone(ctx context.Context, url, dir string, depth int) (string, error) {
	slog.Debug("Cloning repository", logfields.URL(url), logfields.Path(dir), slog.Int("depth", depth))
	opts := &git.CloneOptions{URL: url, Depth: depth, Auth: tokenAuth(c.token, url)}
	if depth > 0 {
		opts.SingleBranch = true
	}
	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return "", ClassifyGitError(err, "clone", url)
	}
	ref, err := repo.Head()
	if err != nil {
		// Empty remote: clone succeeds without a HEAD commit.
		slog.Info("Repository cloned (empty)", logfields.URL(url), logfields.Path(dir))
		return "", nil
	}
	hash := ref.Hash().String()
	slog.Info("Repository cloned successfully", logfields.URL(url), logfields.Path(dir), slog.String("commit", hash[:8]))
	return hash, nil
}

// IsRepository reports whether dir holds a git working tree.
func IsRepository(dir string) bool {
	fi, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && fi.IsDir()
}

// Commit stages paths (relative to dir) and commits them with message.
func (c *Client) Commit(dir, message string, author Author, paths ...string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", ClassifyGitError(err, "open", dir)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", ClassifyGitError(err, "worktree", dir)
	}
	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			return "", ClassifyGitError(fmt.Errorf("add %s: %w", p, err), "add", dir)
		}
	}
	sig := author.signature()
	hash, err := wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return "", ClassifyGitError(err, "commit", dir)
	}
	return hash.String(), nil
}

// Discard drops uncommitted paths (relative to dir) from the index and the working tree.
// It is meant for paths that are not in HEAD; a tracked path would be staged for deletion.
func (c *Client) Discard(dir string, paths ...string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return ClassifyGitError(err, "open", dir)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return ClassifyGitError(err, "worktree", dir)
	}
	for _, p := range paths {
		if _, err := wt.Remove(p); err != nil {
			return ClassifyGitError(fmt.Errorf("remove %s: %w", p, err), "remove", dir)
		}
	}
	return nil
}

// Push publishes the current branch of dir to remote. An up-to-date remote is not an error.
// Non-fast-forward rejections satisfy IsPushRejected.
func (c *Client) Push(ctx context.Context, dir, remote string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return ClassifyGitError(err, "open", dir)
	}
	head, err := repo.Head()
	if err != nil {
		return ClassifyGitError(err, "head", dir)
	}
	branch := head.Name()
	if !branch.IsBranch() {
		return GitError("cannot push detached HEAD").WithContext("path", dir).Build()
	}
	spec := fmt.Sprintf("%s:%s", branch, plumbing.NewBranchReferenceName(branch.Short()))
	url := remoteURL(repo, remote)
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(spec)},
		Auth:       tokenAuth(c.token, url),
	})
	if err == nil || stdErrors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return ClassifyGitError(err, "push", url)
}

// HeadBranch returns the short name of the branch checked out in dir.
func HeadBranch(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", ClassifyGitError(err, "open", dir)
	}
	head, err := repo.Head()
	if err != nil {
		return "", ClassifyGitError(err, "head", dir)
	}
	return head.Name().Short(), nil
}

func remoteURL(repo *git.Repository, name string) string {
	r, err := repo.Remote(name)
	if err != nil || len(r.Config().URLs) == 0 {
		return name
	}
	return r.Config().URLs[0]
}
