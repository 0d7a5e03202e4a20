package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BionicLimanov/sapusugi/internal/chat"
	"github.com/BionicLimanov/sapusugi/internal/generate"
	"github.com/BionicLimanov/sapusugi/internal/notebook"
	"github.com/BionicLimanov/sapusugi/internal/wire"
)

const (
	// defaultRunTimeout caps executions that do not ask for a ceiling.
	defaultRunTimeout = 120 * time.Second
	// maxRunTimeout is the hard ceiling for any execution request.
	maxRunTimeout = 600 * time.Second
)

// runTimeout clamps a requested timeout (in seconds) to a usable ceiling.
func runTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultRunTimeout
	}
	d := time.Duration(seconds) * time.Second
	if d > maxRunTimeout {
		return maxRunTimeout
	}
	return d
}

// loadOrCreate fetches the notebook at path, materializing a fresh document
// for unknown paths so the UI can open any name.
func (s *Server) loadOrCreate(ctx context.Context, path string) (*notebook.Document, error) {
	doc, err := s.notebooks.Get(ctx, path)
	if errors.Is(err, notebook.ErrNotFound) {
		doc = notebook.NewDocument()
		if err := s.notebooks.Save(ctx, path, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	return doc, err
}

// nbError maps notebook errors to HTTP responses.
func nbError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, notebook.ErrInvalidPath):
		c.JSON(http.StatusBadRequest, wire.ErrorResponse{Error: err.Error()})
	case errors.Is(err, notebook.ErrIndexOutOfRange):
		c.JSON(http.StatusBadRequest, wire.ErrorResponse{Error: err.Error()})
	case errors.Is(err, notebook.ErrNotFound):
		c.JSON(http.StatusNotFound, wire.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: err.Error()})
	}
}

func (s *Server) nbList(c *gin.Context) {
	items, err := s.notebooks.List(c.Request.Context())
	if err != nil {
		nbError(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.NotebookListResponse{Dir: s.notebooks.Root(), Items: items})
}

func (s *Server) nbGet(c *gin.Context) {
	path := c.Query("path")
	doc, err := s.loadOrCreate(c.Request.Context(), path)
	if err != nil {
		nbError(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.NotebookGetResponse{Path: path, Notebook: doc})
}

func (s *Server) nbSave(c *gin.Context) {
	var req wire.NotebookSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Notebook == nil {
		c.JSON(http.StatusBadRequest, wire.ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := s.notebooks.Save(c.Request.Context(), req.Path, req.Notebook); err != nil {
		nbError(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.NotebookSaveResponse{OK: true, Path: req.Path})
}

func (s *Server) nbRunAll(c *gin.Context) {
	var req wire.NotebookRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wire.ErrorResponse{Error: "invalid request body"})
		return
	}
	if s.kernel == nil {
		c.JSON(http.StatusServiceUnavailable, wire.ErrorResponse{Error: "execution backend not configured"})
		return
	}

	doc, err := s.loadOrCreate(c.Request.Context(), req.Path)
	if err != nil {
		nbError(c, err)
		return
	}

	executed, err := s.kernel.Execute(c.Request.Context(), doc, runTimeout(req.Timeout))
	if err != nil {
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: err.Error()})
		return
	}
	if err := s.notebooks.Save(c.Request.Context(), req.Path, executed); err != nil {
		nbError(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.NotebookRunResponse{OK: true, Path: req.Path, Notebook: executed})
}

func (s *Server) nbRunCell(c *gin.Context) {
	var req wire.NotebookRunCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wire.ErrorResponse{Error: "invalid request body"})
		return
	}
	if s.kernel == nil {
		c.JSON(http.StatusServiceUnavailable, wire.ErrorResponse{Error: "execution backend not configured"})
		return
	}

	doc, err := s.loadOrCreate(c.Request.Context(), req.Path)
	if err != nil {
		nbError(c, err)
		return
	}

	// Run the prefix up to and including the target cell so earlier
	// definitions are in scope, then merge only the target cell's result back
	// into the stored document.
	prefix, err := doc.Slice(req.CellIndex + 1)
	if err != nil {
		nbError(c, err)
		return
	}
	executed, err := s.kernel.Execute(c.Request.Context(), prefix, runTimeout(req.Timeout))
	if err != nil {
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: err.Error()})
		return
	}
	cell, err := executed.CellAt(req.CellIndex)
	if err != nil {
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: "execution backend returned a truncated notebook"})
		return
	}

	updated, err := doc.WithCellResult(req.CellIndex, cell.Outputs, cell.ExecutionCount)
	if err != nil {
		nbError(c, err)
		return
	}
	if err := s.notebooks.Save(c.Request.Context(), req.Path, updated); err != nil {
		nbError(c, err)
		return
	}

	out, _ := updated.CellAt(req.CellIndex)
	c.JSON(http.StatusOK, wire.NotebookRunCellResponse{
		OK:        true,
		Path:      req.Path,
		CellIndex: req.CellIndex,
		Cell:      &out,
		Notebook:  updated,
	})
}

func (s *Server) nbSuggest(c *gin.Context) {
	var req wire.NotebookSuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wire.ErrorResponse{Error: "invalid request body"})
		return
	}

	doc, err := s.loadOrCreate(c.Request.Context(), req.Path)
	if err != nil {
		nbError(c, err)
		return
	}
	cell, err := doc.CellAt(req.CellIndex)
	if err != nil {
		nbError(c, err)
		return
	}

	suggestion, err := generate.Complete(c.Request.Context(), s.generator, suggestMessages(cell))
	if err != nil {
		c.JSON(http.StatusInternalServerError, wire.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, wire.NotebookSuggestResponse{Suggestion: suggestion})
}

// suggestMessages builds the conversation sent to the generation backend for
// a cell suggestion. Cells whose outputs contain an error get a fix-oriented
// prompt; clean cells get a review prompt.
func suggestMessages(cell notebook.Cell) []chat.Message {
	outputs := outputsToText(cell.Outputs)
	failed := false
	for _, o := range cell.Outputs {
		if o.Type == notebook.OutputError {
			failed = true
			break
		}
	}

	var prompt string
	if failed {
		prompt = fmt.Sprintf(
			"This notebook cell failed.\n\nCode:\n```\n%s\n```\n\nOutput:\n%s\n\nExplain the error briefly and suggest a corrected version of the cell.",
			cell.Source, outputs)
	} else if outputs != "" {
		prompt = fmt.Sprintf(
			"Review this notebook cell.\n\nCode:\n```\n%s\n```\n\nOutput:\n%s\n\nSuggest a concrete improvement or the next step.",
			cell.Source, outputs)
	} else {
		prompt = fmt.Sprintf(
			"Review this notebook cell.\n\nCode:\n```\n%s\n```\n\nSuggest a concrete improvement or the next step.",
			cell.Source)
	}

	return []chat.Message{
		{Role: chat.RoleSystem, Content: "You are a concise coding assistant embedded in a notebook editor."},
		{Role: chat.RoleUser, Content: prompt},
	}
}

func outputsToText(outputs []notebook.Output) string {
	parts := []string{}
	for _, o := range outputs {
		if text := strings.TrimSpace(o.PlainText()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}
