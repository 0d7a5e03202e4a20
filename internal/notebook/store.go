package notebook

import (
	"context"
	"time"
)

// Store abstracts document persistence for the coordinator.
//
// Save overwrites wholesale; there is no merge. Get returns ErrNotFound when
// no document exists at the path. I/O failures are reported as *StoreError
// and are not retried automatically.
type Store interface {
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, path string) (*Document, error)
	Save(ctx context.Context, path string, doc *Document) error
}

// Executor runs notebook cells on the external execution backend and returns
// the authoritative executed document. The backend serializes execution on
// its own side; timeouts are caller-supplied ceilings.
type Executor interface {
	RunCell(ctx context.Context, path string, index int, timeout time.Duration) (*Document, error)
	RunAll(ctx context.Context, path string, timeout time.Duration) (*Document, error)
}

// Suggester returns free-text guidance for a cell's current source and
// outputs. It never mutates the document.
type Suggester interface {
	Suggest(ctx context.Context, path string, index int) (string, error)
}
