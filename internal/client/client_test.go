package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BionicLimanov/sapusugi/internal/notebook"
	"github.com/BionicLimanov/sapusugi/internal/wire"
)

func TestGetNotebook(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/nb/get", r.URL.Path)
		require.Equal(t, "demo.ipynb", r.URL.Query().Get("path"))

		resp := wire.NotebookGetResponse{Path: "demo.ipynb", Notebook: notebook.NewDocument()}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)

	c := New(server.URL)
	doc, err := c.Get(context.Background(), "demo.ipynb")
	require.NoError(t, err)
	require.Equal(t, 1, doc.CellCount())
}

func TestGetNotebookNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(wire.ErrorResponse{Error: "notebook not found"})
	}))
	t.Cleanup(server.Close)

	c := New(server.URL)
	_, err := c.Get(context.Background(), "missing.ipynb")
	require.ErrorIs(t, err, notebook.ErrNotFound)
}

func TestSaveNotebook(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/nb/save", r.URL.Path)

		var req wire.NotebookSaveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "demo.ipynb", req.Path)
		require.NotNil(t, req.Notebook)

		json.NewEncoder(w).Encode(wire.NotebookSaveResponse{OK: true, Path: req.Path})
	}))
	t.Cleanup(server.Close)

	c := New(server.URL)
	err := c.Save(context.Background(), "demo.ipynb", notebook.NewDocument())
	require.NoError(t, err)
}

func TestSaveFailureWrapsStoreError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(wire.ErrorResponse{Error: "disk full"})
	}))
	t.Cleanup(server.Close)

	c := New(server.URL)
	err := c.Save(context.Background(), "demo.ipynb", notebook.NewDocument())
	require.Error(t, err)

	var storeErr *notebook.StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, "save", storeErr.Op)
}

func TestRunCellSendsTimeoutSeconds(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/nb/run_cell", r.URL.Path)

		var req wire.NotebookRunCellRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, 2, req.CellIndex)
		require.Equal(t, 90, req.Timeout)

		json.NewEncoder(w).Encode(wire.NotebookRunCellResponse{
			OK:       true,
			Notebook: notebook.NewDocument(),
		})
	}))
	t.Cleanup(server.Close)

	c := New(server.URL)
	doc, err := c.RunCell(context.Background(), "demo.ipynb", 2, 90*time.Second)
	require.NoError(t, err)
	require.NotNil(t, doc)
}

func TestRunAll(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/nb/run_all", r.URL.Path)
		json.NewEncoder(w).Encode(wire.NotebookRunResponse{OK: true, Notebook: notebook.NewDocument()})
	}))
	t.Cleanup(server.Close)

	c := New(server.URL)
	doc, err := c.RunAll(context.Background(), "demo.ipynb", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, doc)
}

func TestNotesEndpoints(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /notes":
			json.NewEncoder(w).Encode([]wire.Note{{ID: "n1", Title: "First"}})
		case "POST /notes":
			var req wire.NoteCreateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			json.NewEncoder(w).Encode(wire.Note{ID: "n2", Title: req.Title})
		case "PUT /notes/n2":
			var req wire.NoteUpdateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotNil(t, req.Content)
			require.Nil(t, req.Title)
			json.NewEncoder(w).Encode(wire.Note{ID: "n2", Content: *req.Content})
		case "DELETE /notes/n2":
			json.NewEncoder(w).Encode(wire.NoteDeleteResponse{OK: true, Deleted: "n2"})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	c := New(server.URL)
	ctx := context.Background()

	notes, err := c.ListNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	created, err := c.CreateNote(ctx, "Second")
	require.NoError(t, err)
	require.Equal(t, "n2", created.ID)

	content := "body"
	updated, err := c.UpdateNote(ctx, "n2", nil, &content)
	require.NoError(t, err)
	require.Equal(t, "body", updated.Content)

	require.NoError(t, c.DeleteNote(ctx, "n2"))
}

func TestChatHistoryAndClear(t *testing.T) {
	t.Parallel()

	cleared := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/history":
			json.NewEncoder(w).Encode([]wire.ChatEntry{
				{Role: "system", Content: "Be concise."},
				{Role: "user", Content: "hi"},
			})
		case "/chat/clear":
			require.Equal(t, http.MethodPost, r.Method)
			cleared = true
			json.NewEncoder(w).Encode(wire.OKResponse{OK: true})
		}
	}))
	t.Cleanup(server.Close)

	c := New(server.URL)
	messages, err := c.ChatHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "hi", messages[1].Content)

	require.NoError(t, c.ClearHistory(context.Background()))
	require.True(t, cleared)
}

func TestSourcesEndpoints(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]string{"https://a.example"})
		case http.MethodPost:
			var urls []string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&urls))
			json.NewEncoder(w).Encode(wire.SourcesResponse{Sources: append([]string{"https://a.example"}, urls...)})
		case http.MethodDelete:
			json.NewEncoder(w).Encode(wire.OKResponse{OK: true})
		}
	}))
	t.Cleanup(server.Close)

	c := New(server.URL)
	ctx := context.Background()

	sources, err := c.Sources(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example"}, sources)

	merged, err := c.AddSources(ctx, []string{"https://b.example"})
	require.NoError(t, err)
	require.Len(t, merged, 2)

	require.NoError(t, c.ClearSources(ctx))
}

func TestAPIErrorMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(wire.ErrorResponse{Error: "invalid request body"})
	}))
	t.Cleanup(server.Close)

	c := New(server.URL)
	_, err := c.List(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, "invalid request body", apiErr.Message)
}
