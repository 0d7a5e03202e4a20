// Package client is the HTTP client for the backend collaborator surface:
// the notebook document store, the execution backend, suggestions, notes,
// sources and persisted chat history.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BionicLimanov/sapusugi/internal/chat"
	"github.com/BionicLimanov/sapusugi/internal/notebook"
	"github.com/BionicLimanov/sapusugi/internal/transport"
	"github.com/BionicLimanov/sapusugi/internal/wire"
)

const (
	// defaultHTTPTimeout is the per-request timeout for plain API calls.
	// Execution requests get their own, caller-supplied ceilings.
	defaultHTTPTimeout = 15 * time.Second

	// executeGrace is added on top of a run's timeout ceiling so the backend
	// can report its own timeout instead of the HTTP layer racing it.
	executeGrace = 10 * time.Second
)

// Client talks to one backend instance.
//
// It implements notebook.Store, notebook.Executor, notebook.Suggester and
// chat.HistoryClearer against the backend's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	execClient *http.Client
}

// New creates a client for the backend at baseURL (no trailing slash
// needed).
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		execClient: &http.Client{},
	}
}

// ChatURL returns the websocket URL of the backend's chat channel.
func (c *Client) ChatURL() (string, error) {
	return transport.ChatURL(c.baseURL)
}

// List returns the known notebook paths in order.
func (c *Client) List(ctx context.Context) ([]string, error) {
	var resp wire.NotebookListResponse
	if err := c.getJSON(ctx, "/nb/list", &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Get fetches the notebook stored at path.
func (c *Client) Get(ctx context.Context, path string) (*notebook.Document, error) {
	var resp wire.NotebookGetResponse
	err := c.getJSON(ctx, "/nb/get?path="+url.QueryEscape(path), &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %q", notebook.ErrNotFound, path)
		}
		return nil, err
	}
	return resp.Notebook, nil
}

// Save overwrites the notebook at path wholesale.
func (c *Client) Save(ctx context.Context, path string, doc *notebook.Document) error {
	req := wire.NotebookSaveRequest{Path: path, Notebook: doc}
	var resp wire.NotebookSaveResponse
	if err := c.postJSON(ctx, c.httpClient, "/nb/save", req, &resp); err != nil {
		return &notebook.StoreError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// RunCell executes one cell and returns the authoritative updated document.
func (c *Client) RunCell(ctx context.Context, path string, index int, timeout time.Duration) (*notebook.Document, error) {
	req := wire.NotebookRunCellRequest{Path: path, CellIndex: index, Timeout: timeoutSeconds(timeout)}
	var resp wire.NotebookRunCellResponse

	ctx, cancel := context.WithTimeout(ctx, timeout+executeGrace)
	defer cancel()
	if err := c.postJSON(ctx, c.execClient, "/nb/run_cell", req, &resp); err != nil {
		return nil, err
	}
	return resp.Notebook, nil
}

// RunAll executes every cell and returns the executed document.
func (c *Client) RunAll(ctx context.Context, path string, timeout time.Duration) (*notebook.Document, error) {
	req := wire.NotebookRunRequest{Path: path, Timeout: timeoutSeconds(timeout)}
	var resp wire.NotebookRunResponse

	ctx, cancel := context.WithTimeout(ctx, timeout+executeGrace)
	defer cancel()
	if err := c.postJSON(ctx, c.execClient, "/nb/run_all", req, &resp); err != nil {
		return nil, err
	}
	return resp.Notebook, nil
}

// Suggest returns free-text guidance for one cell.
func (c *Client) Suggest(ctx context.Context, path string, index int) (string, error) {
	req := wire.NotebookSuggestRequest{Path: path, CellIndex: index}
	var resp wire.NotebookSuggestResponse
	if err := c.postJSON(ctx, c.execClient, "/nb/suggest", req, &resp); err != nil {
		return "", err
	}
	return resp.Suggestion, nil
}

// ListNotes returns all notes, newest first.
func (c *Client) ListNotes(ctx context.Context) ([]wire.Note, error) {
	var notes []wire.Note
	if err := c.getJSON(ctx, "/notes", &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// GetNote returns one note by id.
func (c *Client) GetNote(ctx context.Context, id string) (wire.Note, error) {
	var note wire.Note
	err := c.getJSON(ctx, "/notes/"+url.PathEscape(id), &note)
	return note, err
}

// CreateNote creates an empty note with the given title.
func (c *Client) CreateNote(ctx context.Context, title string) (wire.Note, error) {
	var note wire.Note
	err := c.postJSON(ctx, c.httpClient, "/notes", wire.NoteCreateRequest{Title: title}, &note)
	return note, err
}

// UpdateNote updates a note's title and/or content; nil fields are left
// unchanged.
func (c *Client) UpdateNote(ctx context.Context, id string, title, content *string) (wire.Note, error) {
	var note wire.Note
	err := c.doJSON(ctx, c.httpClient, http.MethodPut, "/notes/"+url.PathEscape(id),
		wire.NoteUpdateRequest{Title: title, Content: content}, &note)
	return note, err
}

// DeleteNote removes one note.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	var resp wire.NoteDeleteResponse
	return c.doJSON(ctx, c.httpClient, http.MethodDelete, "/notes/"+url.PathEscape(id), nil, &resp)
}

// Sources returns the stored source URL set.
func (c *Client) Sources(ctx context.Context) ([]string, error) {
	var sources []string
	if err := c.getJSON(ctx, "/sources", &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// AddSources merges URLs into the stored source set and returns the result.
func (c *Client) AddSources(ctx context.Context, urls []string) ([]string, error) {
	var resp wire.SourcesResponse
	if err := c.postJSON(ctx, c.httpClient, "/sources", urls, &resp); err != nil {
		return nil, err
	}
	return resp.Sources, nil
}

// ClearSources empties the stored source set.
func (c *Client) ClearSources(ctx context.Context) error {
	return c.doJSON(ctx, c.httpClient, http.MethodDelete, "/sources", nil, nil)
}

// ChatHistory returns the persisted conversation log.
func (c *Client) ChatHistory(ctx context.Context) ([]chat.Message, error) {
	var entries []wire.ChatEntry
	if err := c.getJSON(ctx, "/chat/history", &entries); err != nil {
		return nil, err
	}
	messages := make([]chat.Message, 0, len(entries))
	for _, e := range entries {
		messages = append(messages, chat.Message{Role: chat.Role(e.Role), Content: e.Content})
	}
	return messages, nil
}

// ClearHistory discards the persisted conversation log.
func (c *Client) ClearHistory(ctx context.Context) error {
	return c.postJSON(ctx, c.httpClient, "/chat/clear", nil, nil)
}

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

func timeoutSeconds(timeout time.Duration) int {
	secs := int((timeout + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, c.httpClient, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, hc *http.Client, path string, body, out any) error {
	return c.doJSON(ctx, hc, http.MethodPost, path, body, out)
}

func (c *Client) doJSON(ctx context.Context, hc *http.Client, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr wire.ErrorResponse
		message := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			message = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

var (
	_ notebook.Store      = (*Client)(nil)
	_ notebook.Executor   = (*Client)(nil)
	_ notebook.Suggester  = (*Client)(nil)
	_ chat.HistoryClearer = (*Client)(nil)
)
