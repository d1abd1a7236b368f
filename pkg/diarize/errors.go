package diarize

import "errors"

var (
	// ErrInvalidInput covers malformed audio, non-monotone activity
	// events, or a recording_start missing when the word-level path
	// would need it.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProviderUnavailable covers STT or summariser network/5xx errors.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderContract covers a provider response missing required
	// fields.
	ErrProviderContract = errors.New("provider response missing required fields")

	// ErrCancelled covers caller-initiated cancellation or a deadline
	// exceeded.
	ErrCancelled = errors.New("operation cancelled")

	// ErrInternal covers an invariant violation detected during
	// assembly. Should never reach production; always logged.
	ErrInternal = errors.New("internal invariant violation")
)
