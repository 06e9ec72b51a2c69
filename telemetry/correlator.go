package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	nokk "github.com/nextlw/nokk-agents"
)

// Correlator rebuilds the span hierarchy of a run from its lifecycle events:
// a root span per run, one child span per agent activation, short generation
// spans under the active agent, and tool spans under the agent that invoked
// them. One Correlator serves every run on its bus; all per-run state lives
// in the run's RunContext, keyed privately.
type Correlator struct {
	tracer    trace.Tracer
	traceName string
	static    map[string]any
	dynamic   DynamicAttributesFunc
	logger    *slog.Logger
}

const stateKey = "nokk.telemetry.span_state"

// runState is the correlation state of one run, stored in its RunContext.
// The engine drives a run from a single goroutine, so access needs no
// locking.
type runState struct {
	rootCtx  context.Context
	rootSpan trace.Span

	agentName string
	agentCtx  context.Context
	agentSpan trace.Span

	toolName string
	toolSpan trace.Span

	// pendingInput is the most recent reasoning input, attached to the next
	// agent span when it opens.
	pendingInput string

	// lastOutput is the text of the most recent generation. It becomes the
	// output of the closing agent span and, at the end of the run, of the
	// trace itself.
	lastOutput string
}

func stateOf(rc *nokk.RunContext) *runState {
	v, ok := rc.Value(stateKey)
	if !ok {
		return nil
	}
	st, _ := v.(*runState)
	return st
}

func (c *Correlator) register(bus *nokk.Bus) error {
	regs := []struct {
		kind     nokk.Kind
		capacity int
		fn       nokk.ListenerFunc
	}{
		{nokk.KindRunStart, 3, c.onRunStart},
		{nokk.KindAgentThinking, 3, c.onAgentThinking},
		{nokk.KindChatCreated, 4, c.onChatCreated},
		{nokk.KindToolStart, 3, c.onToolStart},
		{nokk.KindToolComplete, 3, c.onToolComplete},
		{nokk.KindAgentHandoff, 4, c.onAgentHandoff},
		{nokk.KindAgentComplete, 4, c.onAgentComplete},
		{nokk.KindLLMCallComplete, 0, c.onLLMCallComplete},
		{nokk.KindRunComplete, 3, c.onRunComplete},
	}
	for _, r := range regs {
		if err := bus.On(r.kind, r.capacity, r.fn); err != nil {
			return goerr.Wrap(err, "install span correlator", goerr.V("kind", r.kind))
		}
	}
	return nil
}

func (c *Correlator) onRunStart(ctx context.Context, args []any) error {
	agentName, err := argString(args, 0)
	if err != nil {
		return err
	}
	input, err := argString(args, 1)
	if err != nil {
		return err
	}
	rc, err := argRunContext(args)
	if err != nil {
		return err
	}

	if st := stateOf(rc); st != nil {
		c.logger.Warn("missed run completion, closing stale run spans",
			"run_id", rc.ID(),
		)
		c.closeStale(st)
		rc.Delete(stateKey)
	}

	attrs := c.rootAttrs(ctx, rc, agentName, input)
	rootCtx, rootSpan := c.tracer.Start(ctx, c.traceName, trace.WithAttributes(attrs...))
	rc.Set(stateKey, &runState{rootCtx: rootCtx, rootSpan: rootSpan})
	return nil
}

func (c *Correlator) onAgentThinking(ctx context.Context, args []any) error {
	agentName, err := argString(args, 0)
	if err != nil {
		return err
	}
	input, err := argString(args, 1)
	if err != nil {
		return err
	}
	rc, err := argRunContext(args)
	if err != nil {
		return err
	}

	st := stateOf(rc)
	if st == nil {
		c.logger.Warn("agent thinking before run start, span dropped",
			"run_id", rc.ID(),
			"agent", agentName,
		)
		return nil
	}

	st.pendingInput = input

	if st.agentSpan != nil {
		if st.agentName == agentName {
			// Consecutive reasoning turns of the same agent share one span.
			return nil
		}
		c.logger.Warn("missed agent completion, closing stale agent span",
			"run_id", rc.ID(),
			"agent", st.agentName,
			"next", agentName,
		)
		c.endAgentSpan(st, st.lastOutput, nil)
	}

	attrs := []attribute.KeyValue{
		observationTypeAttr("agent"),
		agentNameAttr(agentName),
	}
	if st.pendingInput != "" {
		attrs = append(attrs, observationInputAttr(st.pendingInput))
	}
	agentCtx, agentSpan := c.tracer.Start(st.rootCtx,
		fmt.Sprintf("%s.agent.%s", c.traceName, agentName),
		trace.WithAttributes(attrs...),
	)
	st.agentCtx = agentCtx
	st.agentSpan = agentSpan
	st.agentName = agentName
	return nil
}

func (c *Correlator) onChatCreated(ctx context.Context, args []any) error {
	if len(args) == 0 || args[0] == nil {
		return goerr.Wrap(ErrMalformedPayload, "chat handle missing")
	}
	chat, ok := args[0].(nokk.Chat)
	if !ok {
		return goerr.Wrap(ErrMalformedPayload, "unexpected chat handle type",
			goerr.V("type", fmt.Sprintf("%T", args[0])),
		)
	}
	model, err := argString(args, 2)
	if err != nil {
		return err
	}
	rc, err := argRunContext(args)
	if err != nil {
		return err
	}

	// The conversation is read at message time, not now: the chat is handed
	// over before the model produces anything.
	chat.OnAssistantMessage(func(msg nokk.AssistantMessage) {
		st := stateOf(rc)
		if st == nil {
			c.logger.Debug("generation outside an active run, dropped",
				"run_id", rc.ID(),
				"model", model,
			)
			return
		}

		parent := st.rootCtx
		if st.agentCtx != nil {
			parent = st.agentCtx
		}

		attrs := []attribute.KeyValue{
			observationTypeAttr("generation"),
			inputTokensAttr(msg.Usage.InputTokens),
			outputTokensAttr(msg.Usage.OutputTokens),
		}
		if model != "" {
			attrs = append(attrs, modelNameAttr(model))
		}
		if in := c.serialize(chat.Messages()); in != "" {
			attrs = append(attrs, observationInputAttr(in))
		}
		if msg.Text != "" {
			attrs = append(attrs, observationOutputAttr(msg.Text))
		}

		_, span := c.tracer.Start(parent,
			fmt.Sprintf("%s.generation", c.traceName),
			trace.WithAttributes(attrs...),
		)
		span.End()

		if msg.Text != "" {
			st.lastOutput = msg.Text
		}
	})
	return nil
}

func (c *Correlator) onToolStart(ctx context.Context, args []any) error {
	toolName, err := argString(args, 0)
	if err != nil {
		return err
	}
	callArgs, err := argAny(args, 1)
	if err != nil {
		return err
	}
	rc, err := argRunContext(args)
	if err != nil {
		return err
	}

	st := stateOf(rc)
	if st == nil {
		c.logger.Warn("tool start before run start, span dropped",
			"run_id", rc.ID(),
			"tool", toolName,
		)
		return nil
	}

	if st.toolSpan != nil {
		c.logger.Warn("missed tool completion, closing stale tool span",
			"run_id", rc.ID(),
			"tool", st.toolName,
			"next", toolName,
		)
		st.toolSpan.End()
		st.toolSpan = nil
		st.toolName = ""
	}

	// Handoff tools transfer control between agents, so their spans attach
	// to the run root rather than the agent that is about to yield.
	parent := st.rootCtx
	if st.agentCtx != nil && !strings.HasPrefix(toolName, HandoffToolPrefix) {
		parent = st.agentCtx
	}

	attrs := []attribute.KeyValue{
		observationTypeAttr("tool"),
		toolNameAttr(toolName),
	}
	if in := c.serialize(callArgs); in != "" {
		attrs = append(attrs, observationInputAttr(in))
	}

	_, span := c.tracer.Start(parent,
		fmt.Sprintf("%s.tool.%s", c.traceName, toolName),
		trace.WithAttributes(attrs...),
	)
	st.toolSpan = span
	st.toolName = toolName
	return nil
}

func (c *Correlator) onToolComplete(ctx context.Context, args []any) error {
	toolName, err := argString(args, 0)
	if err != nil {
		return err
	}
	result, err := argAny(args, 1)
	if err != nil {
		return err
	}
	rc, err := argRunContext(args)
	if err != nil {
		return err
	}

	st := stateOf(rc)
	if st == nil {
		c.logger.Warn("tool completion before run start, dropped",
			"run_id", rc.ID(),
			"tool", toolName,
		)
		return nil
	}
	if st.toolSpan == nil {
		c.logger.Warn("tool completion without tool start, dropped",
			"run_id", rc.ID(),
			"tool", toolName,
		)
		return nil
	}
	if st.toolName != toolName {
		c.logger.Warn("tool completion name mismatch",
			"run_id", rc.ID(),
			"open", st.toolName,
			"completed", toolName,
		)
	}

	if out := c.serialize(result); out != "" {
		st.toolSpan.SetAttributes(observationOutputAttr(out))
	}
	st.toolSpan.End()
	st.toolSpan = nil
	st.toolName = ""
	return nil
}

func (c *Correlator) onAgentHandoff(ctx context.Context, args []any) error {
	fromAgent, err := argString(args, 0)
	if err != nil {
		return err
	}
	toAgent, err := argString(args, 1)
	if err != nil {
		return err
	}
	reason, err := argString(args, 2)
	if err != nil {
		return err
	}
	rc, err := argRunContext(args)
	if err != nil {
		return err
	}

	st := stateOf(rc)
	if st == nil {
		c.logger.Warn("handoff before run start, dropped",
			"run_id", rc.ID(),
			"from", fromAgent,
			"to", toAgent,
		)
		return nil
	}

	attrs := []attribute.KeyValue{
		handoffFromAttr(fromAgent),
		handoffToAttr(toAgent),
	}
	if reason != "" {
		attrs = append(attrs, handoffReasonAttr(reason))
	}
	st.rootSpan.AddEvent(fmt.Sprintf("%s.handoff", c.traceName),
		trace.WithAttributes(attrs...),
	)
	return nil
}

func (c *Correlator) onAgentComplete(ctx context.Context, args []any) error {
	agentName, err := argString(args, 0)
	if err != nil {
		return err
	}
	result, err := argAny(args, 1)
	if err != nil {
		return err
	}
	agentErr, err := argError(args, 2)
	if err != nil {
		return err
	}
	rc, err := argRunContext(args)
	if err != nil {
		return err
	}

	st := stateOf(rc)
	if st == nil {
		c.logger.Warn("agent completion before run start, dropped",
			"run_id", rc.ID(),
			"agent", agentName,
		)
		return nil
	}
	if st.agentSpan == nil {
		c.logger.Warn("agent completion without reasoning span, dropped",
			"run_id", rc.ID(),
			"agent", agentName,
		)
		return nil
	}
	if st.agentName != agentName {
		c.logger.Warn("agent completion name mismatch",
			"run_id", rc.ID(),
			"open", st.agentName,
			"completed", agentName,
		)
	}

	output := st.lastOutput
	if output == "" {
		output = c.serialize(result)
	}
	c.endAgentSpan(st, output, agentErr)
	return nil
}

// onLLMCallComplete is registered with zero capacity: generation data
// arrives through the chat subscription instead, so the payload is not
// needed here.
func (c *Correlator) onLLMCallComplete(ctx context.Context, args []any) error {
	return nil
}

func (c *Correlator) onRunComplete(ctx context.Context, args []any) error {
	result, err := argAny(args, 1)
	if err != nil {
		return err
	}
	rc, err := argRunContext(args)
	if err != nil {
		return err
	}

	st := stateOf(rc)
	if st == nil {
		c.logger.Warn("run completion without run start, dropped",
			"run_id", rc.ID(),
		)
		return nil
	}

	if st.toolSpan != nil {
		c.logger.Warn("missed tool completion, closing stale tool span",
			"run_id", rc.ID(),
			"tool", st.toolName,
		)
		st.toolSpan.End()
		st.toolSpan = nil
		st.toolName = ""
	}
	c.endAgentSpan(st, st.lastOutput, nil)

	output, runErr := c.resultInfo(result, st)
	if output != "" {
		st.rootSpan.SetAttributes(traceOutputAttr(output))
	}
	if runErr != nil {
		st.rootSpan.RecordError(runErr)
		st.rootSpan.SetStatus(codes.Error, runErr.Error())
	}
	st.rootSpan.End()
	rc.Delete(stateKey)
	return nil
}

// endAgentSpan closes the open agent span, if any, attaching output and
// error state, and clears the agent slot.
func (c *Correlator) endAgentSpan(st *runState, output string, err error) {
	if st.agentSpan == nil {
		return
	}
	if output != "" {
		st.agentSpan.SetAttributes(observationOutputAttr(output))
	}
	if err != nil {
		st.agentSpan.RecordError(err)
		st.agentSpan.SetStatus(codes.Error, err.Error())
	}
	st.agentSpan.End()
	st.agentSpan = nil
	st.agentCtx = nil
	st.agentName = ""
}

// closeStale flushes every span of a run whose completion event never
// arrived, innermost first.
func (c *Correlator) closeStale(st *runState) {
	if st.toolSpan != nil {
		st.toolSpan.End()
		st.toolSpan = nil
		st.toolName = ""
	}
	c.endAgentSpan(st, st.lastOutput, nil)
	if st.lastOutput != "" {
		st.rootSpan.SetAttributes(traceOutputAttr(st.lastOutput))
	}
	st.rootSpan.End()
}

// resultInfo extracts the trace output and terminal error from the run
// completion payload, falling back to the last generation text.
func (c *Correlator) resultInfo(v any, st *runState) (string, error) {
	var output string
	var err error
	switch r := v.(type) {
	case nokk.Result:
		output, err = r.Output, r.Err
	case *nokk.Result:
		if r != nil {
			output, err = r.Output, r.Err
		}
	case error:
		err = r
	default:
		output = c.serialize(v)
	}
	if output == "" {
		output = st.lastOutput
	}
	return output, err
}

func argString(args []any, idx int) (string, error) {
	if idx >= len(args) {
		return "", goerr.Wrap(ErrMalformedPayload, "payload element missing",
			goerr.V("index", idx),
		)
	}
	s, ok := args[idx].(string)
	if !ok {
		return "", goerr.Wrap(ErrMalformedPayload, "unexpected payload type",
			goerr.V("index", idx),
			goerr.V("type", fmt.Sprintf("%T", args[idx])),
		)
	}
	return s, nil
}

func argAny(args []any, idx int) (any, error) {
	if idx >= len(args) {
		return nil, goerr.Wrap(ErrMalformedPayload, "payload element missing",
			goerr.V("index", idx),
		)
	}
	return args[idx], nil
}

func argError(args []any, idx int) (error, error) {
	if idx >= len(args) {
		return nil, goerr.Wrap(ErrMalformedPayload, "payload element missing",
			goerr.V("index", idx),
		)
	}
	if args[idx] == nil {
		return nil, nil
	}
	e, ok := args[idx].(error)
	if !ok {
		return nil, goerr.Wrap(ErrMalformedPayload, "unexpected payload type",
			goerr.V("index", idx),
			goerr.V("type", fmt.Sprintf("%T", args[idx])),
		)
	}
	return e, nil
}

func argRunContext(args []any) (*nokk.RunContext, error) {
	rc := nokk.RunContextOf(args)
	if rc == nil {
		return nil, goerr.Wrap(ErrMalformedPayload, "run context missing")
	}
	return rc, nil
}
