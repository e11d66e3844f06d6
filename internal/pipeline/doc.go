// Package pipeline is the orchestrator of a run:
//
//	Start -> EnsureLedgerStore -> DiscoverLoop -> (SkipCheck -> Process -> ContinueOrStop) -> Done
//
// Candidates already in the ledger are skipped. Every other candidate is handed to
// the packaging worker; whatever the worker returns (or panics with) is logged,
// counted and reported to the event sinks, and the loop moves on. Only ledger
// setup failures and discovery failures end a run early.
package pipeline
