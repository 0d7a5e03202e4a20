package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BionicLimanov/sapusugi/internal/server/store"
	"github.com/BionicLimanov/sapusugi/internal/wire"
)

func toWireNote(n store.Note) wire.Note {
	return wire.Note{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func (s *Server) listNotes(c *gin.Context) {
	notes, err := s.store.ListNotes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: "failed to list notes"})
		return
	}
	out := make([]wire.Note, 0, len(notes))
	for _, n := range notes {
		out = append(out, toWireNote(n))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getNote(c *gin.Context) {
	note, err := s.store.GetNote(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNoteNotFound) {
		c.JSON(http.StatusNotFound, wire.ErrorResponse{Error: "note not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: "failed to get note"})
		return
	}
	c.JSON(http.StatusOK, toWireNote(note))
}

func (s *Server) createNote(c *gin.Context) {
	var req wire.NoteCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wire.ErrorResponse{Error: "invalid request body"})
		return
	}
	note, err := s.store.CreateNote(c.Request.Context(), req.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: "failed to create note"})
		return
	}
	c.JSON(http.StatusOK, toWireNote(note))
}

func (s *Server) updateNote(c *gin.Context) {
	var req wire.NoteUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wire.ErrorResponse{Error: "invalid request body"})
		return
	}
	note, err := s.store.UpdateNote(c.Request.Context(), c.Param("id"), req.Title, req.Content)
	if errors.Is(err, store.ErrNoteNotFound) {
		c.JSON(http.StatusNotFound, wire.ErrorResponse{Error: "note not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: "failed to update note"})
		return
	}
	c.JSON(http.StatusOK, toWireNote(note))
}

func (s *Server) deleteNote(c *gin.Context) {
	id := c.Param("id")
	err := s.store.DeleteNote(c.Request.Context(), id)
	if errors.Is(err, store.ErrNoteNotFound) {
		c.JSON(http.StatusNotFound, wire.ErrorResponse{Error: "note not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: "failed to delete note"})
		return
	}
	c.JSON(http.StatusOK, wire.NoteDeleteResponse{OK: true, Deleted: id})
}
