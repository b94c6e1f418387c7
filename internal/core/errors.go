package core

import "errors"

// Error kinds. Callers wrap these with fmt.Errorf("...: %w") and classify with errors.Is.
var (
	// ErrValidation indicates a bad or missing request field.
	ErrValidation = errors.New("validation error")
	// ErrAuth indicates a missing or invalid bearer token.
	ErrAuth = errors.New("authentication error")
	// ErrConfiguration indicates startup misconfiguration; the process must not start.
	ErrConfiguration = errors.New("configuration error")
	// ErrSynthesis indicates the synthesis collaborator failed.
	ErrSynthesis = errors.New("synthesis error")
	// ErrUpload indicates the storage collaborator failed.
	ErrUpload = errors.New("upload error")
)
