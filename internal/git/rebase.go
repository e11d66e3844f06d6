package git

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
)

// PullRebase runs `git pull --rebase <remote> <branch>` in dir. Local commits are
// replayed on top of the remote branch. The committer identity is taken from author
// so the rebase works on hosts without a global git identity.
func (c *Client) PullRebase(ctx context.Context, dir, remote, branch string, author Author) error {
	args := []string{
		"-C", dir,
		"-c", "user.name=" + author.Name,
		"-c", "user.email=" + author.Email,
		"pull", "--rebase", "--quiet", remote,
	}
	if branch != "" {
		args = append(args, branch)
	}
	bin := c.gitBin
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	slog.Debug("Rebasing onto remote", logfields.Path(dir), slog.String("remote", remote), slog.String("branch", branch))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		// Leave the tree usable for the next attempt.
		abort := exec.CommandContext(ctx, bin, "-C", dir, "rebase", "--abort")
		_ = abort.Run()
		return GitError("git pull --rebase failed").
			WithCause(fmt.Errorf("%w: %s", err, msg)).
			WithContext("op", "pull-rebase").
			WithContext("path", dir).
			Retryable().
			Build()
	}
	return nil
}
