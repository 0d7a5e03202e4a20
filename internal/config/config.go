package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds server configuration.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string
	// DatabasePath is the SQLite file holding notes, chat history and sources.
	DatabasePath string
	// NotebookDir is the directory notebooks are stored under.
	NotebookDir string

	// OllamaHost is the base URL of the Ollama-compatible generation backend.
	OllamaHost string
	// OllamaModel is the model name passed to the generation backend.
	OllamaModel string

	// KernelURL is the base URL of the notebook execution gateway. Empty
	// means execution is unavailable and run requests are rejected.
	KernelURL string

	// Jupyter holds the settings used to assemble the iframe URL returned by
	// the /jupyter/info endpoint.
	Jupyter JupyterConfig

	Debug          bool
	AllowedOrigins []string
}

// JupyterConfig describes the external Jupyter instance exposed to the UI.
type JupyterConfig struct {
	Host  string
	Port  int
	Token string
	Path  string
}

// IframeURL builds the single iframe-ready URL for the external Jupyter
// instance.
func (j JupyterConfig) IframeURL() string {
	base := fmt.Sprintf("%s:%d", strings.TrimRight(j.Host, "/"), j.Port)
	path := "/" + strings.TrimLeft(j.Path, "/")
	if j.Token == "" {
		return base + path
	}
	return base + path + "?token=" + j.Token
}

// Overrides optionally overrides values from environment variables.
//
// A nil pointer means "use the environment/default value".
type Overrides struct {
	Addr         *string
	DatabasePath *string
	NotebookDir  *string
	KernelURL    *string
	Debug        *bool
}

// Load loads server configuration from environment variables and applies any
// explicit overrides.
func Load(overrides Overrides) (*Config, error) {
	port := 8000
	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
		}
		port = p
	}

	addr := fmt.Sprintf(":%d", port)
	if overrides.Addr != nil {
		addr = *overrides.Addr
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./sapusugi.db"
	}
	if overrides.DatabasePath != nil {
		dbPath = *overrides.DatabasePath
	}

	notebookDir := os.Getenv("NOTEBOOK_DIR")
	if notebookDir == "" {
		notebookDir = "./notebooks"
	}
	if overrides.NotebookDir != nil {
		notebookDir = *overrides.NotebookDir
	}

	kernelURL := strings.TrimRight(os.Getenv("KERNEL_URL"), "/")
	if overrides.KernelURL != nil {
		kernelURL = strings.TrimRight(*overrides.KernelURL, "/")
	}

	ollamaHost := os.Getenv("OLLAMA_HOST")
	if ollamaHost == "" {
		ollamaHost = "http://localhost:11434"
	}
	ollamaModel := os.Getenv("OLLAMA_MODEL")
	if ollamaModel == "" {
		ollamaModel = "llama3.2:1b"
	}

	jupyterPort := 8888
	if portStr := os.Getenv("JUPYTER_PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			jupyterPort = p
		}
	}
	jupyterHost := os.Getenv("JUPYTER_HOST")
	if jupyterHost == "" {
		jupyterHost = "http://localhost"
	}
	jupyterPath := os.Getenv("JUPYTER_PATH")
	if jupyterPath == "" {
		jupyterPath = "/"
	}

	debug := false
	if debugStr := os.Getenv("DEBUG"); debugStr == "true" || debugStr == "1" {
		debug = true
	}
	if overrides.Debug != nil {
		debug = *overrides.Debug
	}

	return &Config{
		Addr:         addr,
		DatabasePath: dbPath,
		NotebookDir:  notebookDir,
		OllamaHost:   ollamaHost,
		OllamaModel:  ollamaModel,
		KernelURL:    kernelURL,
		Jupyter: JupyterConfig{
			Host:  jupyterHost,
			Port:  jupyterPort,
			Token: os.Getenv("JUPYTER_TOKEN"),
			Path:  jupyterPath,
		},
		Debug:          debug,
		AllowedOrigins: []string{"http://localhost:3000"},
	}, nil
}
