// Package telemetry correlates lifecycle events of an agent run into an
// OpenTelemetry span tree. It subscribes a Correlator to a nokk.Bus and
// reconstructs the run hierarchy (run, agents, generations, tool calls) from
// the flat event stream, emitting spans through any OTel-compatible backend.
//
// Basic usage with an explicit TracerProvider:
//
//	bus := telemetry.Instrument(nokk.NewBus(), tp)
//
// Span attributes follow the Langfuse OTel conventions so traces are usable
// in Langfuse without a dedicated exporter, and degrade to plain OTel
// attributes everywhere else.
//
// Nothing in this package reports failure back into the run that triggered
// an event: installation and correlation problems surface only through the
// configured logger, because tracing must never break the system it
// observes.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"go.opentelemetry.io/otel/trace"

	nokk "github.com/nextlw/nokk-agents"
)

const (
	tracerName = "github.com/nextlw/nokk-agents/telemetry"

	// DefaultTraceName is the root span name when WithTraceName is not given.
	DefaultTraceName = "agents.run"

	// HandoffToolPrefix marks tools that transfer control between agents.
	// Their spans attach to the run root instead of the delegating agent.
	HandoffToolPrefix = "handoff_to_"
)

var (
	// ErrMalformedPayload is reported when an event payload does not match
	// the shape documented for its kind.
	ErrMalformedPayload = goerr.New("malformed event payload")
)

// DynamicAttributesFunc supplies per-run root span attributes. It is called
// once per run start; its entries override every other root attribute with
// the same key.
type DynamicAttributesFunc func(ctx context.Context, rc *nokk.RunContext) map[string]any

// Option configures a Correlator.
type Option func(*Correlator)

// WithTraceName overrides the root span name. The name also prefixes every
// child span, so distinct pipelines sharing one backend stay tellable apart.
func WithTraceName(name string) Option {
	return func(c *Correlator) {
		if name != "" {
			c.traceName = name
		}
	}
}

// WithStaticAttributes attaches attrs to the root span of every run.
func WithStaticAttributes(attrs map[string]any) Option {
	return func(c *Correlator) {
		for k, v := range attrs {
			c.static[k] = v
		}
	}
}

// WithTraceTags attaches the Langfuse trace tags to the root span of every
// run.
func WithTraceTags(tags ...string) Option {
	return func(c *Correlator) {
		if len(tags) > 0 {
			c.static["langfuse.trace.tags"] = tags
		}
	}
}

// WithDynamicAttributes sets the per-run attribute supplier.
func WithDynamicAttributes(fn DynamicAttributesFunc) Option {
	return func(c *Correlator) {
		c.dynamic = fn
	}
}

// WithLogger sets the logger for correlation diagnostics: missed lifecycle
// events, serialization fallbacks, discarded payloads. The default logger
// discards all records.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Correlator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

var (
	installMu sync.Mutex
	installed = make(map[*nokk.Bus]*Correlator)
)

// Instrument subscribes a span correlator to bus and returns the bus for
// chaining. It is idempotent per bus: repeated calls return the already
// instrumented bus and ignore tp and opts. A nil tp disables instrumentation
// for this call and logs a warning, so an application missing its tracing
// backend still runs, just untraced. Other setup failures are absorbed the
// same way.
//
// Instrument registers listeners and therefore must run during bus setup,
// before the first event is emitted. The engine must emit a run completion
// for every run it starts, aborted ones included, or that run's spans stay
// open for its lifetime.
func Instrument(bus *nokk.Bus, tp trace.TracerProvider, opts ...Option) *nokk.Bus {
	if bus == nil {
		return nil
	}

	installMu.Lock()
	defer installMu.Unlock()

	if _, ok := installed[bus]; ok {
		return bus
	}

	c := newCorrelator(opts...)
	if tp == nil {
		c.logger.Warn("no tracer provider, span correlation disabled")
		return bus
	}
	c.tracer = tp.Tracer(tracerName)

	if err := c.register(bus); err != nil {
		c.logger.Error("span correlator installation failed", "error", err)
		return bus
	}
	installed[bus] = c
	return bus
}

func newCorrelator(opts ...Option) *Correlator {
	c := &Correlator{
		traceName: DefaultTraceName,
		static:    make(map[string]any),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
