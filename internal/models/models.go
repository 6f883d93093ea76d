package models

// Chat roles used when building upstream conversations.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message represents a single conversational message sent upstream.
type Message struct {
	Role    string
	Content string
}

// GenerationOptions carries the sampling knobs forwarded to the model.
type GenerationOptions struct {
	Temperature float64
	NumPredict  int
}

// ChatRequest is the provider-neutral representation of one chat call.
type ChatRequest struct {
	Model    string
	Messages []Message
	Options  GenerationOptions
}

// ChatResponse captures the parts of a provider reply the relay consumes.
type ChatResponse struct {
	Model   string
	Content string
	Done    bool
}
