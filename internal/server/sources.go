package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BionicLimanov/sapusugi/internal/wire"
)

func (s *Server) listSources(c *gin.Context) {
	sources, err := s.store.Sources(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: "failed to list sources"})
		return
	}
	c.JSON(http.StatusOK, sources)
}

func (s *Server) addSources(c *gin.Context) {
	var urls []string
	if err := c.ShouldBindJSON(&urls); err != nil {
		c.JSON(http.StatusBadRequest, wire.ErrorResponse{Error: "expected a JSON array of URLs"})
		return
	}
	sources, err := s.store.AddSources(c.Request.Context(), urls)
	if err != nil {
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: "failed to store sources"})
		return
	}
	c.JSON(http.StatusOK, wire.SourcesResponse{Sources: sources})
}

func (s *Server) clearSources(c *gin.Context) {
	if err := s.store.ClearSources(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: "failed to clear sources"})
		return
	}
	c.JSON(http.StatusOK, wire.OKResponse{OK: true})
}
