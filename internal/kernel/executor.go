// Package kernel wraps the external code-execution gateway. The gateway's
// kernel semantics are opaque: a document goes in, a document with outputs
// comes out, and failures are reported rather than modeled.
package kernel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BionicLimanov/sapusugi/internal/notebook"
	"github.com/BionicLimanov/sapusugi/internal/wire"
)

// Executor runs a whole notebook document and returns the executed document.
// Timeout is a ceiling; expiry is reported the same way as any other
// execution failure.
type Executor interface {
	Execute(ctx context.Context, doc *notebook.Document, timeout time.Duration) (*notebook.Document, error)
}

// gatewayGrace is added to the per-request deadline so the gateway can
// report its own timeout before the HTTP layer gives up.
const gatewayGrace = 10 * time.Second

// GatewayClient executes notebooks through an HTTP execution gateway.
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGatewayClient creates a client for the gateway at baseURL.
func NewGatewayClient(baseURL string) *GatewayClient {
	return &GatewayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Execute posts the document to the gateway and returns the executed
// document.
func (g *GatewayClient) Execute(ctx context.Context, doc *notebook.Document, timeout time.Duration) (*notebook.Document, error) {
	body, err := json.Marshal(wire.ExecuteRequest{
		Notebook: doc,
		Timeout:  int((timeout + time.Second - 1) / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("encode execute request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout+gatewayGrace)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr wire.ErrorResponse
		message := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			message = apiErr.Error
		}
		return nil, fmt.Errorf("execution gateway returned %d: %s", resp.StatusCode, message)
	}

	var out wire.ExecuteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode execute response: %w", err)
	}
	if out.Notebook == nil {
		return nil, fmt.Errorf("execution gateway returned no notebook")
	}
	return out.Notebook, nil
}

var _ Executor = (*GatewayClient)(nil)
