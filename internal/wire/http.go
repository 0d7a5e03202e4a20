package wire

import (
	"github.com/BionicLimanov/sapusugi/internal/notebook"
)

// ErrorResponse is the HTTP error body used by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Note is one free-form note.
type Note struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// NoteCreateRequest is the HTTP POST /notes request body.
type NoteCreateRequest struct {
	Title string `json:"title"`
}

// NoteUpdateRequest is the HTTP PUT /notes/:id request body. Nil fields are
// left unchanged.
type NoteUpdateRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// NoteDeleteResponse is the HTTP DELETE /notes/:id response body.
type NoteDeleteResponse struct {
	OK      bool   `json:"ok"`
	Deleted string `json:"deleted"`
}

// ChatEntry is one persisted chat history message.
type ChatEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SourcesResponse is the HTTP GET/POST /sources response body.
type SourcesResponse struct {
	Sources []string `json:"sources"`
}

// OKResponse acknowledges a mutation with no other payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

// NotebookListResponse is the HTTP GET /nb/list response body.
type NotebookListResponse struct {
	Dir   string   `json:"dir"`
	Items []string `json:"items"`
}

// NotebookGetResponse is the HTTP GET /nb/get response body.
type NotebookGetResponse struct {
	Path     string             `json:"path"`
	Notebook *notebook.Document `json:"notebook"`
}

// NotebookSaveRequest is the HTTP POST /nb/save request body. The document
// overwrites the stored one wholesale.
type NotebookSaveRequest struct {
	Path     string             `json:"path"`
	Notebook *notebook.Document `json:"notebook"`
}

// NotebookSaveResponse is the HTTP POST /nb/save response body.
type NotebookSaveResponse struct {
	OK   bool   `json:"ok"`
	Path string `json:"path"`
}

// NotebookRunRequest is the HTTP POST /nb/run_all request body. Timeout is a
// ceiling in seconds.
type NotebookRunRequest struct {
	Path    string `json:"path"`
	Timeout int    `json:"timeout"`
}

// NotebookRunResponse is the HTTP POST /nb/run_all response body carrying the
// authoritative executed document.
type NotebookRunResponse struct {
	OK       bool               `json:"ok"`
	Path     string             `json:"path"`
	Notebook *notebook.Document `json:"notebook"`
}

// NotebookRunCellRequest is the HTTP POST /nb/run_cell request body.
type NotebookRunCellRequest struct {
	Path      string `json:"path"`
	CellIndex int    `json:"cell_index"`
	Timeout   int    `json:"timeout"`
}

// NotebookRunCellResponse is the HTTP POST /nb/run_cell response body. Cell
// is the executed cell; Notebook is the full updated document so clients can
// refresh cleanly.
type NotebookRunCellResponse struct {
	OK        bool               `json:"ok"`
	Path      string             `json:"path"`
	CellIndex int                `json:"cell_index"`
	Cell      *notebook.Cell     `json:"cell"`
	Notebook  *notebook.Document `json:"notebook"`
}

// NotebookSuggestRequest is the HTTP POST /nb/suggest request body.
type NotebookSuggestRequest struct {
	Path      string `json:"path"`
	CellIndex int    `json:"cell_index"`
}

// NotebookSuggestResponse is the HTTP POST /nb/suggest response body.
type NotebookSuggestResponse struct {
	Suggestion string `json:"suggestion"`
}

// JupyterInfoResponse is the HTTP GET /jupyter/info response body.
type JupyterInfoResponse struct {
	IframeURL string `json:"iframe_url"`
	Reachable bool   `json:"reachable"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Path      string `json:"path"`
	TokenSet  bool   `json:"token_set"`
}

// ExecuteRequest is the body posted to the execution gateway's /execute
// endpoint. Timeout is a ceiling in seconds.
type ExecuteRequest struct {
	Notebook *notebook.Document `json:"notebook"`
	Timeout  int                `json:"timeout"`
}

// ExecuteResponse is the execution gateway's reply: the same document with
// outputs and execution counts filled in.
type ExecuteResponse struct {
	Notebook *notebook.Document `json:"notebook"`
}
