package packager

import (
	stdErrors "errors"

	"github.com/paulproteus/for-each-meteor-app/internal/export"
)

// Attempt failure conditions. Returned errors are ClassifiedErrors whose cause
// chain contains one of these, so callers can use errors.Is.
var (
	ErrCloneFailed         = stdErrors.New("clone failed")
	ErrNoBuildEntryFound   = stdErrors.New("no build entry found")
	ErrPackagingToolFailed = stdErrors.New("packaging tool failed")
	ErrTeardownFailed      = stdErrors.New("sandbox teardown failed")
	// ErrArtifactMissing means the tool reported success but produced nothing.
	ErrArtifactMissing = stdErrors.New("artifact missing after successful build")
	ErrExportFailed    = export.ErrExportFailed
)
