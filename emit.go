package nokk

import (
	"context"
)

// Typed emitters for each lifecycle event. They fix the payload shape the
// engine promises for the kind; Emit remains available for callers that
// need to pass extra trailing elements.

// EmitRunStart announces the start of a run driven by agentName on input.
func (b *Bus) EmitRunStart(ctx context.Context, agentName, input string, rc *RunContext) {
	b.Emit(ctx, KindRunStart, agentName, input, rc)
}

// EmitAgentThinking announces that agentName begins a reasoning turn.
func (b *Bus) EmitAgentThinking(ctx context.Context, agentName, input string, rc *RunContext) {
	b.Emit(ctx, KindAgentThinking, agentName, input, rc)
}

// EmitChatCreated announces a freshly opened model conversation.
func (b *Bus) EmitChatCreated(ctx context.Context, chat Chat, agentName, model string, rc *RunContext) {
	b.Emit(ctx, KindChatCreated, chat, agentName, model, rc)
}

// EmitToolStart announces an imminent tool invocation.
func (b *Bus) EmitToolStart(ctx context.Context, toolName string, args map[string]any, rc *RunContext) {
	b.Emit(ctx, KindToolStart, toolName, args, rc)
}

// EmitToolComplete announces a finished tool invocation and its result.
func (b *Bus) EmitToolComplete(ctx context.Context, toolName string, result any, rc *RunContext) {
	b.Emit(ctx, KindToolComplete, toolName, result, rc)
}

// EmitAgentHandoff announces a control transfer from one agent to another.
func (b *Bus) EmitAgentHandoff(ctx context.Context, fromAgent, toAgent, reason string, rc *RunContext) {
	b.Emit(ctx, KindAgentHandoff, fromAgent, toAgent, reason, rc)
}

// EmitAgentComplete announces that agentName finished, with its result and
// error if it failed.
func (b *Bus) EmitAgentComplete(ctx context.Context, agentName string, result any, err error, rc *RunContext) {
	b.Emit(ctx, KindAgentComplete, agentName, result, err, rc)
}

// EmitLLMCallComplete announces a completed raw model call.
func (b *Bus) EmitLLMCallComplete(ctx context.Context, agentName, model string, response any, rc *RunContext) {
	b.Emit(ctx, KindLLMCallComplete, agentName, model, response, rc)
}

// EmitRunComplete announces the end of the run with its final result.
func (b *Bus) EmitRunComplete(ctx context.Context, agentName string, result any, rc *RunContext) {
	b.Emit(ctx, KindRunComplete, agentName, result, rc)
}
