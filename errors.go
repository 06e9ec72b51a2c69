package nokk

import (
	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrBusFrozen is returned by Bus.On after the first event has been
	// emitted. Listener registration is only valid during setup.
	ErrBusFrozen = goerr.New("bus registry is frozen")

	// ErrNilListener is returned by Bus.On when the listener function is nil.
	ErrNilListener = goerr.New("listener function is nil")

	// ErrInvalidCapacity is returned by Bus.On for a negative capacity other
	// than Unbounded.
	ErrInvalidCapacity = goerr.New("invalid listener capacity")
)
