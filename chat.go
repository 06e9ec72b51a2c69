package nokk

// Chat is the conversational surface the engine exposes through the chat
// created event. It is a live handle: at emit time the conversation may
// still be in flight, so observers subscribe for assistant messages instead
// of polling.
type Chat interface {
	// OnAssistantMessage subscribes fn to assistant message completion. The
	// chat invokes subscribers synchronously, in subscription order, each
	// time the model finishes producing a message.
	OnAssistantMessage(fn func(msg AssistantMessage))

	// Messages returns the conversation as recorded so far, excluding any
	// assistant message still being produced.
	Messages() []Message
}

// Message is one entry of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistantMessage is one completed model generation delivered to chat
// subscribers.
type AssistantMessage struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// Usage is the token accounting of a single generation.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
