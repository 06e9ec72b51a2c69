package nokk

// Kind identifies one lifecycle event announced by the engine.
type Kind string

const (
	// KindRunStart fires once when the engine begins a run.
	// Payload: agent name, raw user input, run context.
	KindRunStart Kind = "run_start"

	// KindAgentThinking fires when an agent begins a reasoning turn.
	// Payload: agent name, input under consideration, run context.
	KindAgentThinking Kind = "agent_thinking"

	// KindChatCreated fires when the engine opens a model conversation.
	// Payload: chat handle, agent name, model name, run context.
	KindChatCreated Kind = "chat_created"

	// KindToolStart fires before a tool is invoked.
	// Payload: tool name, call arguments, run context.
	KindToolStart Kind = "tool_start"

	// KindToolComplete fires after a tool invocation returns.
	// Payload: tool name, result value, run context.
	KindToolComplete Kind = "tool_complete"

	// KindAgentHandoff fires when control transfers between agents.
	// Payload: source agent, destination agent, reason, run context.
	KindAgentHandoff Kind = "agent_handoff"

	// KindAgentComplete fires when an agent finishes its portion of the run.
	// Payload: agent name, result value, error, run context.
	KindAgentComplete Kind = "agent_complete"

	// KindLLMCallComplete fires after each raw model call.
	// Payload: agent name, model name, response value, run context.
	KindLLMCallComplete Kind = "llm_call_complete"

	// KindRunComplete fires once when the run ends.
	// Payload: agent name, final result, run context.
	KindRunComplete Kind = "run_complete"
)

// Kinds returns every lifecycle event kind.
func Kinds() []Kind {
	return []Kind{
		KindRunStart,
		KindAgentThinking,
		KindChatCreated,
		KindToolStart,
		KindToolComplete,
		KindAgentHandoff,
		KindAgentComplete,
		KindLLMCallComplete,
		KindRunComplete,
	}
}
