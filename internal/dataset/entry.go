package dataset

// Speaker labels used in Turn.From.
const (
	FromUser      = "user"
	FromAssistant = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	From  string `json:"from"`
	Value string `json:"value"`
}

// Entry is one conversational training record. Conversations always holds a
// user turn followed by an assistant turn.
type Entry struct {
	ID            string `json:"id"`
	Conversations []Turn `json:"conversations"`
}
