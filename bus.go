package nokk

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
)

// Unbounded declares a listener that receives the full event payload
// regardless of its length.
const Unbounded = -1

// ListenerFunc handles one dispatched event. args is the event payload,
// truncated to the listener's declared capacity. A returned error is
// reported through the bus logger and never reaches the emitter.
type ListenerFunc func(ctx context.Context, args []any) error

type listener struct {
	fn       ListenerFunc
	capacity int
}

// Bus dispatches lifecycle events to listeners in registration order.
// Registration is a setup phase operation: once the first event has been
// emitted the registry is immutable. Emit is safe for concurrent use after
// that point.
type Bus struct {
	mu        sync.Mutex
	listeners map[Kind][]listener
	frozen    atomic.Bool
	logger    *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger that receives listener failures and panics.
// The default logger discards all records.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBus creates an empty event bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		listeners: make(map[Kind][]listener),
		logger:    defaultLogger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers fn for events of the given kind. capacity is the maximum
// number of payload elements delivered to fn; pass Unbounded to receive
// every element. A payload shorter than capacity is delivered as is, never
// padded.
//
// On returns ErrBusFrozen once the bus has dispatched its first event.
func (b *Bus) On(kind Kind, capacity int, fn ListenerFunc) error {
	if fn == nil {
		return goerr.Wrap(ErrNilListener, "register listener", goerr.V("kind", kind))
	}
	if capacity < Unbounded {
		return goerr.Wrap(ErrInvalidCapacity, "register listener",
			goerr.V("kind", kind),
			goerr.V("capacity", capacity),
		)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen.Load() {
		return goerr.Wrap(ErrBusFrozen, "register listener", goerr.V("kind", kind))
	}
	b.listeners[kind] = append(b.listeners[kind], listener{fn: fn, capacity: capacity})
	return nil
}

// Emit dispatches args to every listener registered for kind, in
// registration order. The first call freezes the registry. Listener errors
// and panics are logged and swallowed; Emit never fails and an event with
// no listeners is dropped silently.
func (b *Bus) Emit(ctx context.Context, kind Kind, args ...any) {
	if !b.frozen.Load() {
		b.freeze()
	}

	entries := b.listeners[kind]
	if len(entries) == 0 {
		return
	}

	logger := b.logger
	if rc := RunContextOf(args); rc != nil {
		logger = logger.With("nokk.run_id", rc.ID())
	}
	ctx = ctxWithLogger(ctx, logger)

	for _, e := range entries {
		payload := args
		if e.capacity >= 0 && len(payload) > e.capacity {
			payload = payload[:e.capacity:e.capacity]
		}
		b.dispatch(ctx, logger, kind, e, payload)
	}
}

// freeze takes the registration lock once so that listener registrations
// made before the first Emit are visible to every subsequent dispatch.
func (b *Bus) freeze() {
	b.mu.Lock()
	b.frozen.Store(true)
	b.mu.Unlock()
}

func (b *Bus) dispatch(ctx context.Context, logger *slog.Logger, kind Kind, e listener, args []any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("listener panicked",
				"kind", kind,
				"panic", r,
			)
		}
	}()

	if err := e.fn(ctx, args); err != nil {
		logger.Warn("listener failed",
			"kind", kind,
			"error", err,
		)
	}
}
