package chat

import "errors"

// Sentinel errors for turn handling. The HTTP layer maps these to status
// codes with errors.Is.
var (
	// ErrValidation indicates bad caller input, e.g. an empty session id
	// or a disallowed upload extension.
	ErrValidation = errors.New("invalid request")

	// ErrUnsupportedFileType indicates an upload whose format the service
	// cannot extract text from yet.
	ErrUnsupportedFileType = errors.New("unsupported file type")
)
