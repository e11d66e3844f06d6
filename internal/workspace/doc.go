// Package workspace allocates working copies for packaging attempts.
//
// Each attempt gets a fresh directory named <tag>-<key>-<random> under the
// configured root (the system temp dir by default). The directory is removed
// when the attempt finishes unless the manager was created with retention
// enabled, in which case it is kept for inspection.
package workspace
