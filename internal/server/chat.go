package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BionicLimanov/sapusugi/internal/wire"
)

func (s *Server) chatHistory(c *gin.Context) {
	messages, err := s.store.History(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: "failed to load chat history"})
		return
	}
	out := make([]wire.ChatEntry, 0, len(messages))
	for _, m := range messages {
		out = append(out, wire.ChatEntry{Role: m.Role, Content: m.Content})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) chatClear(c *gin.Context) {
	if err := s.store.ClearHistory(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: "failed to clear chat history"})
		return
	}
	c.JSON(http.StatusOK, wire.OKResponse{OK: true})
}
