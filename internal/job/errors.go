package job

import "errors"

// Error kinds. Every error returned by Run wraps exactly the kinds that
// apply, so callers can branch with errors.Is.
var (
	// ErrConfiguration means the job parameters were missing or invalid.
	// It is raised before any clone, archive or upload is attempted.
	ErrConfiguration = errors.New("configuration error")
	ErrFetch         = errors.New("fetch failed")
	ErrArchive       = errors.New("archive failed")
	ErrUpload        = errors.New("upload failed")
	// ErrRecordStore means the terminal record update could not be written,
	// so the job cannot report its own outcome.
	ErrRecordStore = errors.New("record store error")
)
