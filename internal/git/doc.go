// Package git wraps the git operations the pipeline needs: cloning candidate
// projects, and keeping the ledger working tree in step with its remote
// (commit, push, pull --rebase).
//
// Clone, commit and push use go-git. Rebasing is not implemented by go-git, so
// PullRebase shells out to the git binary.
package git
