package sensor

import "errors"

var (
	// ErrBufferSize is returned when an image buffer does not hold exactly
	// width*height*4 bytes.
	ErrBufferSize = errors.New("sensor: image buffer size mismatch")

	// ErrNilPayload is returned for a nil measurement.
	ErrNilPayload = errors.New("sensor: nil payload")

	// ErrUnexpectedPayload is returned when a producer receives another
	// sensor's measurement.
	ErrUnexpectedPayload = errors.New("sensor: unexpected payload type")

	// ErrPanic wraps a panic recovered inside a producer.
	ErrPanic = errors.New("sensor: producer panicked")
)
