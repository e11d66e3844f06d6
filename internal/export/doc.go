// Package export publishes packaged artifacts.
//
// A successful attempt's artifact is moved into the export directory as
// <candidate-key><ext>. The directory index is then regenerated (an external
// script, or a goldmark-rendered listing) and, when configured, the directory is
// mirrored one way to rsync or S3-compatible storage.
package export
