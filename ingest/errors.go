package ingest

import "errors"

var (
	// ErrMalformedInput is returned when the buffer is not well-formed
	// delimited text (e.g. an unterminated quote). The whole call fails;
	// no partial parse is returned.
	ErrMalformedInput = errors.New("malformed delimited input")

	// ErrPoolStopped is returned by Submit when the pool has not been
	// started or has been stopped.
	ErrPoolStopped = errors.New("parser pool is not running")
)
