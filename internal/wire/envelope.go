// Package wire defines the chat-channel envelopes and the HTTP
// request/response shapes shared between the backend server and its clients.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope type tags carried in the "type" field of every chat-channel frame.
const (
	TypeChatMessage = "chat_message"
	TypeChunk       = "chunk"
	TypeComplete    = "complete"
	TypeError       = "error"
	TypeStatus      = "status"
)

// ErrUnknownType is returned by Decode for a frame whose type tag is not part
// of the protocol. Callers drop and log such frames; they are not faults.
var ErrUnknownType = errors.New("unknown envelope type")

// Envelope is one chat-channel frame. The set of implementations is closed:
// ChatMessage, Chunk, Complete, ErrorEvent and Status.
type Envelope interface {
	envelopeType() string
}

// ChatMessage asks the server to generate a reply to a user message.
type ChatMessage struct {
	// Message is the user's prompt text.
	Message string `json:"message"`
	// UseCrawl requests web context from the submitted source URLs.
	UseCrawl bool `json:"use_crawl"`
	// UsePG requests database context.
	UsePG bool `json:"use_pg"`
	// URLs are source URLs to merge into the stored source set.
	URLs []string `json:"urls,omitempty"`
}

func (ChatMessage) envelopeType() string { return TypeChatMessage }

// Chunk carries one incremental fragment of the reply being generated.
type Chunk struct {
	Content string `json:"content"`
}

func (Chunk) envelopeType() string { return TypeChunk }

// Complete marks the end of a successful generation.
type Complete struct{}

func (Complete) envelopeType() string { return TypeComplete }

// ErrorEvent reports a failed generation. The message is shown in place of a
// reply; the channel stays open.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) envelopeType() string { return TypeError }

// Status is an informational progress marker (e.g. stage "generating"). It
// never transitions the client state machine.
type Status struct {
	Stage string `json:"stage"`
}

func (Status) envelopeType() string { return TypeStatus }

// Encode marshals an envelope into a single JSON frame with its type tag.
func Encode(env Envelope) ([]byte, error) {
	switch e := env.(type) {
	case ChatMessage:
		return json.Marshal(struct {
			Type string `json:"type"`
			ChatMessage
		}{TypeChatMessage, e})
	case Chunk:
		return json.Marshal(struct {
			Type string `json:"type"`
			Chunk
		}{TypeChunk, e})
	case Complete:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{TypeComplete})
	case ErrorEvent:
		return json.Marshal(struct {
			Type string `json:"type"`
			ErrorEvent
		}{TypeError, e})
	case Status:
		return json.Marshal(struct {
			Type string `json:"type"`
			Status
		}{TypeStatus, e})
	default:
		return nil, fmt.Errorf("unsupported envelope %T", env)
	}
}

// Decode parses a JSON frame into its typed envelope.
//
// A syntactically valid frame with an unrecognized tag returns ErrUnknownType
// (wrapped); a frame that is not a JSON object is a malformed-frame error.
func Decode(data []byte) (Envelope, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch probe.Type {
	case TypeChatMessage:
		var env ChatMessage
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("malformed %s frame: %w", probe.Type, err)
		}
		return env, nil
	case TypeChunk:
		var env Chunk
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("malformed %s frame: %w", probe.Type, err)
		}
		return env, nil
	case TypeComplete:
		return Complete{}, nil
	case TypeError:
		var env ErrorEvent
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("malformed %s frame: %w", probe.Type, err)
		}
		return env, nil
	case TypeStatus:
		var env Status
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("malformed %s frame: %w", probe.Type, err)
		}
		return env, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, probe.Type)
	}
}
