package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/BionicLimanov/sapusugi/internal/chat"
	"github.com/BionicLimanov/sapusugi/internal/logger"
	"github.com/BionicLimanov/sapusugi/internal/wire"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the HTTP API; the socket is open
	},
}

// historyWindow bounds how much of the persisted log is fed to the
// generation backend per request.
const historyWindow = 8

// chatSocket serves the persistent chat channel. One connection handles many
// requests; frames are processed strictly in arrival order, so a reply stream
// is never interleaved with another.
func (s *Server) chatSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf("[chat] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("[chat] connection closed: %v", err)
			}
			return
		}

		env, err := wire.Decode(data)
		if err != nil {
			// Bad frames get an error envelope; the channel stays open.
			logger.Warnf("[chat] dropping bad frame: %v", err)
			if sendErr := writeEnvelope(conn, wire.ErrorEvent{Message: "unrecognized message"}); sendErr != nil {
				return
			}
			continue
		}

		req, ok := env.(wire.ChatMessage)
		if !ok {
			logger.Warnf("[chat] dropping unexpected %T envelope", env)
			if sendErr := writeEnvelope(conn, wire.ErrorEvent{Message: "expected a chat_message"}); sendErr != nil {
				return
			}
			continue
		}

		if err := s.handleChatRequest(ctx, conn, req); err != nil {
			// Only channel-level write failures propagate here.
			logger.Debugf("[chat] connection lost mid-reply: %v", err)
			return
		}
	}
}

// handleChatRequest runs one generation and streams its fragments back. A
// generation failure is reported as an error envelope and leaves the
// persisted history without an assistant message.
func (s *Server) handleChatRequest(ctx context.Context, conn *websocket.Conn, req wire.ChatMessage) error {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return writeEnvelope(conn, wire.ErrorEvent{Message: "empty message"})
	}

	if err := s.store.AppendMessage(ctx, "user", text); err != nil {
		logger.Errorf("[chat] failed to persist user message: %v", err)
		return writeEnvelope(conn, wire.ErrorEvent{Message: "failed to persist message"})
	}

	messages, err := s.buildContext(ctx, req)
	if err != nil {
		logger.Errorf("[chat] failed to build context: %v", err)
		return writeEnvelope(conn, wire.ErrorEvent{Message: "failed to load chat history"})
	}

	if err := writeEnvelope(conn, wire.Status{Stage: "generating"}); err != nil {
		return err
	}

	var reply strings.Builder
	streamErr := s.generator.Stream(ctx, messages, func(content string) error {
		reply.WriteString(content)
		return writeEnvelope(conn, wire.Chunk{Content: content})
	})
	if streamErr != nil {
		var writeErr *channelWriteError
		if errors.As(streamErr, &writeErr) {
			return writeErr.err
		}
		logger.Warnf("[chat] generation failed: %v", streamErr)
		return writeEnvelope(conn, wire.ErrorEvent{Message: streamErr.Error()})
	}

	if text := strings.TrimSpace(reply.String()); text != "" {
		if err := s.store.AppendMessage(ctx, "assistant", text); err != nil {
			logger.Errorf("[chat] failed to persist reply: %v", err)
		}
	}
	return writeEnvelope(conn, wire.Complete{})
}

// buildContext assembles the generation request: optional context markers for
// the request flags, then a bounded tail of the persisted history. Request
// URLs are merged into the stored source set as a side effect.
func (s *Server) buildContext(ctx context.Context, req wire.ChatMessage) ([]chat.Message, error) {
	messages := []chat.Message{}

	if req.UseCrawl {
		sources := req.URLs
		if len(req.URLs) > 0 {
			merged, err := s.store.AddSources(ctx, req.URLs)
			if err != nil {
				logger.Warnf("[chat] failed to store sources: %v", err)
			} else {
				sources = merged
			}
		} else {
			stored, err := s.store.Sources(ctx)
			if err == nil {
				sources = stored
			}
		}
		if len(sources) > 3 {
			sources = sources[:3]
		}
		messages = append(messages, chat.Message{
			Role:    chat.RoleSystem,
			Content: fmt.Sprintf("[Using web search with sources: %s]", strings.Join(sources, ", ")),
		})
	}
	if req.UsePG {
		messages = append(messages, chat.Message{
			Role:    chat.RoleSystem,
			Content: "[Using database context]",
		})
	}

	tail, err := s.store.HistoryTail(ctx, historyWindow)
	if err != nil {
		return nil, err
	}
	for _, m := range tail {
		messages = append(messages, chat.Message{Role: chat.Role(m.Role), Content: m.Content})
	}
	return messages, nil
}

// channelWriteError marks a stream abort caused by the websocket itself, so
// it is not reported back over the same broken channel.
type channelWriteError struct {
	err error
}

func (e *channelWriteError) Error() string { return e.err.Error() }
func (e *channelWriteError) Unwrap() error { return e.err }

func writeEnvelope(conn *websocket.Conn, env wire.Envelope) error {
	data, err := wire.Encode(env)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return &channelWriteError{err: err}
	}
	return nil
}
