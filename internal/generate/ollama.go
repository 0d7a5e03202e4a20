package generate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/BionicLimanov/sapusugi/internal/chat"
)

// OllamaClient streams chat completions from an Ollama-compatible API.
type OllamaClient struct {
	host       string
	model      string
	httpClient *http.Client
}

// NewOllamaClient creates a generator for the given host (e.g.
// http://localhost:11434) and model name.
func NewOllamaClient(host, model string) *OllamaClient {
	return &OllamaClient{
		host:       strings.TrimRight(host, "/"),
		model:      model,
		httpClient: &http.Client{},
	}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages"`
	Stream   bool           `json:"stream"`
}

type ollamaChatEvent struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

// Stream posts the conversation to /api/chat and forwards each streamed
// fragment to onFragment in order.
func (o *OllamaClient) Stream(ctx context.Context, messages []chat.Message, onFragment func(content string) error) error {
	if err := validateHost(o.host); err != nil {
		return err
	}

	body, err := json.Marshal(ollamaChatRequest{Model: o.model, Messages: messages, Stream: true})
	if err != nil {
		return fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("generation backend returned %d", resp.StatusCode)
	}

	// One JSON event per line until done.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var event ollamaChatEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return fmt.Errorf("malformed stream event: %w", err)
		}
		if event.Error != "" {
			return fmt.Errorf("generation failed: %s", event.Error)
		}
		if event.Message.Content != "" {
			if err := onFragment(event.Message.Content); err != nil {
				return err
			}
		}
		if event.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

func validateHost(host string) error {
	u, err := url.Parse(host)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return fmt.Errorf("invalid generation host %q: set OLLAMA_HOST (e.g. http://localhost:11434)", host)
	}
	return nil
}

var _ Generator = (*OllamaClient)(nil)
