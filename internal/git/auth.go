package git

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// tokenAuth returns HTTP basic auth carrying a GitHub token for HTTP(S) remotes.
// Other transports (ssh, file) and an empty token get nil.
func tokenAuth(token, url string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return nil
	}
	return &http.BasicAuth{Username: "token", Password: token}
}
