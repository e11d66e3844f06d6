// Package ledger is the durable record of packaging attempts.
//
// The ledger is a git working tree holding one file per attempted candidate,
// named by the candidate key and containing "true" or "false". A file's presence
// means the candidate was attempted; its content is the outcome. Entries are
// written once, committed and pushed before Record returns, and never removed.
//
// Several workers may share the same remote. Pushes that lose the race are
// rebased onto the remote and retried under a retry.Policy. An optional Claimer
// (Redis SET NX) keeps two workers from attempting the same key at once.
package ledger
