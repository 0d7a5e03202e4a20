package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/BionicLimanov/sapusugi/internal/logger"
	"github.com/BionicLimanov/sapusugi/internal/wire"
)

// Phase is the session's stream state.
type Phase string

const (
	// PhaseIdle means no generation is in flight; Submit is accepted.
	PhaseIdle Phase = "idle"
	// PhaseStreaming means a generation is in flight and fragments are being
	// buffered.
	PhaseStreaming Phase = "streaming"
	// PhaseTerminated means the channel closed; whatever was buffered has
	// been committed.
	PhaseTerminated Phase = "terminated"
)

var (
	// ErrBusy is returned by Submit while a generation is in flight. It
	// enforces at most one generation per session.
	ErrBusy = errors.New("generation already in flight")

	// ErrEmptyMessage is returned by Submit for blank input.
	ErrEmptyMessage = errors.New("empty message")

	// ErrTerminated is returned by Submit after the channel has closed.
	ErrTerminated = errors.New("session terminated")
)

// Channel is what the session needs from the transport: ordered delivery of
// outbound envelopes.
type Channel interface {
	Send(env wire.Envelope) error
}

// HistoryClearer discards the persisted conversation history on the backend.
type HistoryClearer interface {
	ClearHistory(ctx context.Context) error
}

// Listener receives session events. Methods must be safe to call from the
// channel's dispatch goroutine.
type Listener interface {
	// OnFragment delivers one incremental piece of the reply being streamed.
	OnFragment(content string)
	// OnComplete delivers the committed reply after a complete event. Empty
	// when the stream completed without content.
	OnComplete(reply string)
	// OnError delivers the error text shown in place of a reply.
	OnError(message string)
	// OnTerminated reports channel closure. Partial is the degraded reply
	// committed from the buffer, empty if nothing was committed.
	OnTerminated(partial string)
}

type nopListener struct{}

func (nopListener) OnFragment(string)   {}
func (nopListener) OnComplete(string)   {}
func (nopListener) OnError(string)      {}
func (nopListener) OnTerminated(string) {}

// SubmitOptions carries the request flags and source URLs for one generation.
type SubmitOptions struct {
	UseCrawl bool
	UsePG    bool
	URLs     []string
}

// SessionConfig configures a Session.
type SessionConfig struct {
	// Channel sends chat-request envelopes to the backend. Required.
	Channel Channel
	// History is the session's message log. A fresh one is created if nil.
	History *History
	// Listener receives session events. Optional.
	Listener Listener
	// Clearer discards persisted history on Clear. Optional.
	Clearer HistoryClearer
}

// Session is the chat protocol state machine for one connection.
//
// Inbound envelopes must be handed to HandleEnvelope one at a time in
// arrival order (the transport's dispatch loop guarantees this), so
// transitions are never interleaved. Fragments are assumed to arrive in
// generation order; there is no reordering.
type Session struct {
	channel  Channel
	history  *History
	listener Listener
	clearer  HistoryClearer

	mu        sync.Mutex
	phase     Phase
	buffer    strings.Builder
	lastError string
}

// NewSession creates an idle session.
func NewSession(cfg SessionConfig) *Session {
	history := cfg.History
	if history == nil {
		history = NewHistory()
	}
	listener := cfg.Listener
	if listener == nil {
		listener = nopListener{}
	}
	return &Session{
		channel:  cfg.Channel,
		history:  history,
		listener: listener,
		clearer:  cfg.Clearer,
		phase:    PhaseIdle,
	}
}

// Phase returns the current stream state.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// History returns the session's message log.
func (s *Session) History() *History {
	return s.history
}

// LastError returns the text of the most recent error event, if any.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Submit sends one chat request. It is valid only from the idle state: the
// user message is appended to history immediately (before any server
// acknowledgment), one chat-request envelope is sent, and the session starts
// streaming with an empty buffer.
func (s *Session) Submit(text string, opts SubmitOptions) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	switch s.phase {
	case PhaseStreaming:
		s.mu.Unlock()
		return ErrBusy
	case PhaseTerminated:
		s.mu.Unlock()
		return ErrTerminated
	}

	s.history.Append(Message{Role: RoleUser, Content: text})

	env := wire.ChatMessage{
		Message:  text,
		UseCrawl: opts.UseCrawl,
		UsePG:    opts.UsePG,
		URLs:     opts.URLs,
	}
	if err := s.channel.Send(env); err != nil {
		// Channel-level failure: the session terminates, the process does
		// not. Nothing is buffered yet, so nothing is committed.
		s.phase = PhaseTerminated
		s.mu.Unlock()
		s.listener.OnTerminated("")
		return fmt.Errorf("send chat request: %w", err)
	}

	s.buffer.Reset()
	s.phase = PhaseStreaming
	s.mu.Unlock()
	return nil
}

// HandleEnvelope consumes one inbound envelope. Envelopes that do not apply
// to the current state are dropped and logged, never treated as faults.
func (s *Session) HandleEnvelope(env wire.Envelope) {
	switch e := env.(type) {
	case wire.Chunk:
		s.handleChunk(e)
	case wire.Complete:
		s.handleComplete()
	case wire.ErrorEvent:
		s.handleError(e)
	case wire.Status:
		logger.Debugf("[chat] status: %s", e.Stage)
	default:
		logger.Warnf("[chat] dropping unexpected %T envelope", env)
	}
}

func (s *Session) handleChunk(e wire.Chunk) {
	s.mu.Lock()
	if s.phase != PhaseStreaming {
		s.mu.Unlock()
		logger.Warnf("[chat] dropping fragment outside streaming state")
		return
	}
	s.buffer.WriteString(e.Content)
	s.mu.Unlock()

	s.listener.OnFragment(e.Content)
}

func (s *Session) handleComplete() {
	s.mu.Lock()
	if s.phase != PhaseStreaming {
		s.mu.Unlock()
		logger.Warnf("[chat] dropping complete event outside streaming state")
		return
	}
	reply := strings.TrimSpace(s.buffer.String())
	if reply != "" {
		s.history.Append(Message{Role: RoleAssistant, Content: reply})
	}
	s.buffer.Reset()
	s.phase = PhaseIdle
	s.mu.Unlock()

	s.listener.OnComplete(reply)
}

func (s *Session) handleError(e wire.ErrorEvent) {
	s.mu.Lock()
	if s.phase != PhaseStreaming {
		s.mu.Unlock()
		logger.Warnf("[chat] dropping error event outside streaming state: %s", e.Message)
		return
	}
	// The error text is shown in place of a reply; history gains nothing and
	// there is no automatic retry.
	s.lastError = e.Message
	s.buffer.Reset()
	s.phase = PhaseIdle
	s.mu.Unlock()

	s.listener.OnError(e.Message)
}

// HandleDisconnect moves the session to the terminated state. If a
// generation was streaming, the buffered partial reply is committed to
// history first (degraded completion); an empty buffer commits nothing.
func (s *Session) HandleDisconnect(err error) {
	s.mu.Lock()
	if s.phase == PhaseTerminated {
		s.mu.Unlock()
		return
	}
	partial := ""
	if s.phase == PhaseStreaming {
		partial = strings.TrimSpace(s.buffer.String())
		if partial != "" {
			s.history.Append(Message{Role: RoleAssistant, Content: partial})
		}
	}
	s.buffer.Reset()
	s.phase = PhaseTerminated
	s.mu.Unlock()

	if err != nil {
		logger.Warnf("[chat] channel closed: %v", err)
	}
	s.listener.OnTerminated(partial)
}

// Clear asks the external collaborator to discard persisted history, then
// resets the local log, buffer and state to idle regardless of prior state.
func (s *Session) Clear(ctx context.Context) error {
	var clearErr error
	if s.clearer != nil {
		clearErr = s.clearer.ClearHistory(ctx)
	}

	s.mu.Lock()
	s.history.Reset()
	s.buffer.Reset()
	s.lastError = ""
	s.phase = PhaseIdle
	s.mu.Unlock()

	return clearErr
}
