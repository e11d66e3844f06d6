package git

import (
	stdErrors "errors"
	"strings"

	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
)

// ErrPushRejected reports that the remote refused a push because it is not a fast-forward.
var ErrPushRejected = stdErrors.New("push rejected: remote has diverged")

// GitError simplifies creating a git-scoped ClassifiedError. Retry strategy is left to the caller.
func GitError(message string) *errors.ErrorBuilder {
	return errors.NewError(errors.CategoryGit, message)
}

// ClassifyGitError translates go-git or command-line git errors into ClassifiedErrors.
func ClassifyGitError(err error, op string, url string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	l := strings.ToLower(err.Error())
	builder := GitError("git "+op+" failed").
		WithCause(err).
		WithContext("op", op).
		WithContext("url", url)

	switch {
	case isRejection(err):
		builder.WithCause(stdErrors.Join(ErrPushRejected, err)).WithContext("diverged", true).Retryable()
	case strings.Contains(l, "authentication") || strings.Contains(l, "not authorized") || strings.Contains(l, "could not read username") || strings.Contains(l, "invalid credentials"):
		builder.WithCategory(errors.CategoryAuth).UserAction()
	case strings.Contains(l, "repository not found") || strings.Contains(l, "not found") || strings.Contains(l, "does not exist"):
		builder.WithCategory(errors.CategoryNotFound)
	case strings.Contains(l, "rate limit") || strings.Contains(l, "too many requests"):
		builder.WithCategory(errors.CategoryNetwork).RateLimit()
	case strings.Contains(l, "remote hung up") || strings.Contains(l, "connection reset") || strings.Contains(l, "timeout") || strings.Contains(l, "no route to host"):
		builder.WithCategory(errors.CategoryNetwork).Retryable()
	case strings.Contains(l, "unsupported protocol") || strings.Contains(l, "protocol not supported"):
		builder.WithCategory(errors.CategoryConfig)
	}
	return builder.Build()
}

// IsPushRejected reports whether err is a non-fast-forward push rejection.
func IsPushRejected(err error) bool {
	return stdErrors.Is(err, ErrPushRejected)
}

func isRejection(err error) bool {
	if stdErrors.Is(err, ErrPushRejected) {
		return true
	}
	l := strings.ToLower(err.Error())
	return strings.Contains(l, "non-fast-forward") ||
		strings.Contains(l, "fetch first") ||
		strings.Contains(l, "some refs were not updated") ||
		strings.Contains(l, "[rejected]")
}
