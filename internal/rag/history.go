package rag

import "sync"

// Message is one role-tagged conversation entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// History holds per-conversation message sequences. Appends are strictly
// ordered per conversation id; storage grows unbounded for the process
// lifetime and only a trailing window is ever read into prompts. Nothing
// is persisted across restarts.
type History struct {
	mu    sync.Mutex
	turns map[string][]Message
}

func NewHistory() *History {
	return &History{turns: make(map[string][]Message)}
}

// AppendExchange appends the user/assistant pair atomically, so concurrent
// conversations can never interleave halves of an exchange.
func (h *History) AppendExchange(conversationID, userText, assistantText string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns[conversationID] = append(h.turns[conversationID],
		Message{Role: RoleUser, Content: userText},
		Message{Role: RoleAssistant, Content: assistantText},
	)
}

// Window returns the most recent n messages for the conversation, oldest
// first.
func (h *History) Window(conversationID string, n int) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs := h.turns[conversationID]
	if n <= 0 || len(msgs) == 0 {
		return nil
	}
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Len returns the stored message count for a conversation.
func (h *History) Len(conversationID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns[conversationID])
}

// Reset clears a conversation.
func (h *History) Reset(conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.turns, conversationID)
}
