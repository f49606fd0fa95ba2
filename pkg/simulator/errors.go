package simulator

import "errors"

var (
	// ErrVersionMismatch is returned when client and server versions differ.
	ErrVersionMismatch = errors.New("simulator: client and server versions differ")

	// ErrTimeout is returned when the server does not answer in time.
	ErrTimeout = errors.New("simulator: timeout")

	// ErrSpawnFailed is returned when an actor cannot be placed.
	ErrSpawnFailed = errors.New("simulator: spawn failed")

	// ErrUnknownBlueprint is returned for a blueprint id the library lacks.
	ErrUnknownBlueprint = errors.New("simulator: unknown blueprint")

	// ErrClosed is returned by operations on a closed world.
	ErrClosed = errors.New("simulator: world closed")
)
