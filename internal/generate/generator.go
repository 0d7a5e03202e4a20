// Package generate wraps the external text-generation backend. The backend
// is opaque: it streams reply fragments or reports a failure, nothing more.
package generate

import (
	"context"
	"strings"

	"github.com/BionicLimanov/sapusugi/internal/chat"
)

// Generator streams a generated reply for a conversation. onFragment is
// invoked once per fragment in generation order; returning an error aborts
// the stream.
type Generator interface {
	Stream(ctx context.Context, messages []chat.Message, onFragment func(content string) error) error
}

// Complete runs a generation to completion and returns the accumulated
// reply. Used where the caller wants the full text (e.g. cell suggestions).
func Complete(ctx context.Context, g Generator, messages []chat.Message) (string, error) {
	var b strings.Builder
	err := g.Stream(ctx, messages, func(content string) error {
		b.WriteString(content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}
