package notebook

import (
	"context"
	"sync"
	"time"

	"github.com/BionicLimanov/sapusugi/internal/logger"
)

// RunAllIndex is the reserved run-state index meaning "run every cell".
const RunAllIndex = -1

// Coordinator owns one in-memory notebook document and serializes all
// execution against the store and the execution backend.
//
// The run state is the sole concurrency-control resource: at most one
// execution request is in flight at any time, the latest source is always
// saved before a run is issued, and the in-memory document is replaced
// wholesale by the backend's returned document. The document is exposed only
// as immutable snapshots, so readers never observe a torn update.
type Coordinator struct {
	store   Store
	exec    Executor
	suggest Suggester

	mu   sync.Mutex
	path string
	doc  *Document
	run  *int
	// gen increments on every Load so a run response that raced a reload is
	// discarded instead of clobbering the freshly loaded document.
	gen int64
}

// NewCoordinator returns a coordinator with no document loaded.
func NewCoordinator(store Store, exec Executor, suggest Suggester) *Coordinator {
	return &Coordinator{store: store, exec: exec, suggest: suggest}
}

// Load fetches the document at path from the store, replaces the in-memory
// document and clears the run state.
func (c *Coordinator) Load(ctx context.Context, path string) (*Document, error) {
	doc, err := c.store.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.path = path
	c.doc = doc
	c.run = nil
	c.gen++
	return doc, nil
}

// Path returns the path of the loaded document, or "" before Load.
func (c *Coordinator) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// Document returns the current document snapshot, or nil before Load. The
// returned value is never mutated; every coordinator operation replaces it.
func (c *Coordinator) Document() *Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// Running reports the in-flight run target: (index, true) during RunCell,
// (RunAllIndex, true) during RunAll, and (0, false) when idle.
func (c *Coordinator) Running() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		return 0, false
	}
	return *c.run, true
}

// Save persists the current in-memory document verbatim. It is idempotent
// and is also invoked internally immediately before any execution request.
func (c *Coordinator) Save(ctx context.Context) error {
	c.mu.Lock()
	path, doc := c.path, c.doc
	c.mu.Unlock()
	if doc == nil {
		return ErrNoDocument
	}
	return c.store.Save(ctx, path, doc)
}

// RunCell saves the document and asks the backend to execute one cell. The
// backend's returned document replaces the in-memory one; its outputs and
// execution count are authoritative. The run state is cleared on every exit
// path.
func (c *Coordinator) RunCell(ctx context.Context, index int, timeout time.Duration) (*Document, error) {
	path, doc, gen, err := c.beginRun(index)
	if err != nil {
		return nil, err
	}
	defer c.endRun()

	if err := c.store.Save(ctx, path, doc); err != nil {
		return nil, err
	}
	result, err := c.exec.RunCell(ctx, path, index, timeout)
	if err != nil {
		return nil, &ExecutionError{Op: "run_cell", Err: err}
	}
	return c.commitRun(gen, result), nil
}

// RunAll saves the document and asks the backend to execute every cell,
// replacing the whole document on completion.
func (c *Coordinator) RunAll(ctx context.Context, timeout time.Duration) (*Document, error) {
	path, doc, gen, err := c.beginRun(RunAllIndex)
	if err != nil {
		return nil, err
	}
	defer c.endRun()

	if err := c.store.Save(ctx, path, doc); err != nil {
		return nil, err
	}
	result, err := c.exec.RunAll(ctx, path, timeout)
	if err != nil {
		return nil, &ExecutionError{Op: "run_all", Err: err}
	}
	return c.commitRun(gen, result), nil
}

// beginRun validates the request and claims the run state. Validation
// failures reject before any network call with nothing mutated.
func (c *Coordinator) beginRun(index int) (path string, doc *Document, gen int64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return "", nil, 0, ErrNoDocument
	}
	if c.run != nil {
		return "", nil, 0, ErrRunInFlight
	}
	if index != RunAllIndex {
		if err := c.doc.checkIndex(index); err != nil {
			return "", nil, 0, err
		}
	}
	target := index
	c.run = &target
	return c.path, c.doc, c.gen, nil
}

func (c *Coordinator) endRun() {
	c.mu.Lock()
	c.run = nil
	c.mu.Unlock()
}

// commitRun installs the backend's document unless a Load happened while the
// run was in flight, in which case the response is returned to the caller
// but the reloaded document is kept.
func (c *Coordinator) commitRun(gen int64, result *Document) *Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		logger.Debugf("[notebook] discarding run result for %q: document reloaded mid-run", c.path)
		return result
	}
	c.doc = result
	return result
}

// AddCell appends a new empty cell of the given kind and returns the new
// document snapshot.
func (c *Coordinator) AddCell(kind CellKind) (*Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return nil, ErrNoDocument
	}
	c.doc = c.doc.AppendCell(kind)
	return c.doc, nil
}

// DeleteCell removes one cell. Deleting the last remaining cell is rejected
// and leaves the document unchanged.
func (c *Coordinator) DeleteCell(index int) (*Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return nil, ErrNoDocument
	}
	next, err := c.doc.RemoveCell(index)
	if err != nil {
		return nil, err
	}
	c.doc = next
	return c.doc, nil
}

// UpdateCellSource replaces the source text of one cell.
func (c *Coordinator) UpdateCellSource(index int, source string) (*Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return nil, ErrNoDocument
	}
	next, err := c.doc.ReplaceCellSource(index, source)
	if err != nil {
		return nil, err
	}
	c.doc = next
	return c.doc, nil
}

// Suggest asks the external collaborator for free-text guidance on one
// cell's current source and outputs. It mutates neither the document nor the
// run state.
func (c *Coordinator) Suggest(ctx context.Context, index int) (string, error) {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return "", ErrNoDocument
	}
	if err := c.doc.checkIndex(index); err != nil {
		c.mu.Unlock()
		return "", err
	}
	path := c.path
	c.mu.Unlock()

	return c.suggest.Suggest(ctx, path, index)
}
