// Package errors provides the classified error primitives used across the pipeline.
//
// Every failure that crosses a component boundary is a ClassifiedError carrying a
// category (discovery, ledger, packaging, ...), a severity and a retry strategy.
// The orchestrator uses the category to tell run-fatal failures from per-attempt
// failures, and the CLI adapter maps categories to process exit codes.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryPackaging, "packaging tool failed").
//		WithContext("candidate", key).
//		WithContext("build_root", root).
//		Build()
package errors
