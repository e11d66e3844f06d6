// Package daemon repeats pipeline runs on a schedule and reloads configuration
// when the config file changes. Runs never overlap.
package daemon
