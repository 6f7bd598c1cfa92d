package domain

import "errors"

var (
	// ErrUnknownEngine is returned when the requested analytical backend is
	// not registered. It fails the audit before any query runs.
	ErrUnknownEngine = errors.New("unknown engine")

	// ErrFixUnsupported is returned when a fix is requested on an engine
	// without implemented repair logic.
	ErrFixUnsupported = errors.New("fix is not implemented for this engine")
)
