// Package candidate models a discovered GitHub project and its ledger key.
package candidate

import (
	stderrors "errors"
	"net/url"
	"strings"

	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
)

// Host is the only code-hosting platform candidates may come from.
const Host = "github.com"

// ErrInvalidCandidate is the cause of every validation failure in this package.
var ErrInvalidCandidate = stderrors.New("invalid candidate")

// Candidate identifies one project as owner/name.
type Candidate struct {
	Owner string
	Name  string
}

// FromURL validates a canonical project URL (https://github.com/owner/name) and
// returns the candidate. The path must hold exactly two segments.
func FromURL(raw string) (Candidate, error) {
	u, err := parseGitHubURL(raw)
	if err != nil {
		return Candidate{}, err
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) != 2 {
		return Candidate{}, invalid(raw, "expected exactly owner/name after the host")
	}
	return build(raw, segments[0], segments[1])
}

// FromLink accepts any link into a project (for example a search hit pointing at
// /owner/name/blob/<sha>/.meteor/release) and reduces it to the project root.
func FromLink(raw string) (Candidate, error) {
	u, err := parseGitHubURL(raw)
	if err != nil {
		return Candidate{}, err
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return Candidate{}, invalid(raw, "link does not point into a project")
	}
	return build(raw, segments[0], segments[1])
}

// FromKey reverses Key. GitHub owners cannot contain dots, so the first dot
// separates owner from name.
func FromKey(key string) (Candidate, error) {
	owner, name, ok := strings.Cut(key, ".")
	if !ok {
		return Candidate{}, invalid(key, "key has no separator")
	}
	return build(key, owner, name)
}

// DirName is FromURL followed by Key.
func DirName(githubURL string) (string, error) {
	c, err := FromURL(githubURL)
	if err != nil {
		return "", err
	}
	return c.Key(), nil
}

// Key is the flat, filesystem-safe ledger key: owner.name.
func (c Candidate) Key() string { return c.Owner + "." + c.Name }

// URL is the canonical project URL.
func (c Candidate) URL() string { return "https://" + Host + "/" + c.Owner + "/" + c.Name }

// CloneURL is the URL handed to git clone.
func (c Candidate) CloneURL() string { return c.URL() + ".git" }

func (c Candidate) String() string { return c.Owner + "/" + c.Name }

func parseGitHubURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.WrapError(stderrors.Join(ErrInvalidCandidate, err), errors.CategoryValidation, "unparseable candidate url").
			WithContext("url", raw).Build()
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, invalid(raw, "scheme must be http or https")
	}
	if !strings.EqualFold(u.Host, Host) && !strings.EqualFold(u.Host, "www."+Host) {
		return nil, invalid(raw, "host must be "+Host)
	}
	return u, nil
}

func build(raw, owner, name string) (Candidate, error) {
	name = strings.TrimSuffix(name, ".git")
	if owner == "" || name == "" {
		return Candidate{}, invalid(raw, "owner and name must be non-empty")
	}
	if strings.Contains(owner, ".") {
		return Candidate{}, invalid(raw, "owner cannot contain a dot")
	}
	for _, s := range []string{owner, name} {
		if s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
			return Candidate{}, invalid(raw, "segment is not filesystem safe")
		}
	}
	return Candidate{Owner: owner, Name: name}, nil
}

func invalid(raw, reason string) error {
	return errors.WrapError(ErrInvalidCandidate, errors.CategoryValidation, reason).
		WithContext("url", raw).Build()
}
