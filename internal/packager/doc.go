// Package packager turns one candidate into a Sandstorm package.
//
// Worker.Process allocates a working copy, clones the project, locates the
// build marker, runs the Builder and its teardown, records the outcome in the
// ledger exactly once, exports the artifact on success, and finally removes
// the working copy unless retention is on.
package packager
