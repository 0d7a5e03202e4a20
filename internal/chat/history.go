// Package chat implements the streaming conversation session: the ordered
// message history and the state machine that turns channel events into
// committed messages.
package chat

import "sync"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one exchanged chat message. Messages are immutable once
// appended to a history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is the ordered log of exchanged messages for one session.
//
// It only gains entries through explicit commit points: a user submit, a
// stream completing, or a degraded termination. Raw fragment events never
// touch it.
type History struct {
	mu       sync.Mutex
	messages []Message
}

// NewHistory returns a history seeded with the given messages.
func NewHistory(seed ...Message) *History {
	h := &History{}
	h.messages = append(h.messages, seed...)
	return h
}

// Append adds one message to the end of the log.
func (h *History) Append(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

// Messages returns a copy of the full log in order.
func (h *History) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Last returns the most recent message, if any.
func (h *History) Last() (Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// Tail returns a copy of the last n messages (fewer if the log is shorter).
// The generation backend is fed a bounded tail rather than the full log.
func (h *History) Tail(n int) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n > len(h.messages) {
		n = len(h.messages)
	}
	out := make([]Message, n)
	copy(out, h.messages[len(h.messages)-n:])
	return out
}

// Reset drops all messages and reseeds the log.
func (h *History) Reset(seed ...Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = h.messages[:0]
	h.messages = append(h.messages, seed...)
}
