package event

import "errors"

var (
	// ErrNoDecoder is reported when a listener has no decoder.
	ErrNoDecoder = errors.New("event: listener has no decoder")

	// ErrDecoderPanic is reported when a decoder panics.
	ErrDecoderPanic = errors.New("event: decoder panicked")
)
