package bitdepth

import "errors"

var (
	// ErrConfiguration is returned when track metadata cannot be processed.
	ErrConfiguration = errors.New("invalid track configuration")

	// ErrStream is returned when decoding fails mid-stream.
	ErrStream = errors.New("stream failure")

	// ErrSink is returned when a noise output cannot be opened, written or closed.
	ErrSink = errors.New("sink failure")

	// ErrFinalized is returned when a consumer is used after Finalize.
	ErrFinalized = errors.New("consumer already finalized")
)
