package notebook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu    sync.Mutex
	docs  map[string]*Document
	saves []string
	fail  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]*Document)}
}

func (s *fakeStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.docs))
	for p := range s.docs {
		paths = append(paths, p)
	}
	return paths, nil
}

func (s *fakeStore) Get(_ context.Context, path string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (s *fakeStore) Save(_ context.Context, path string, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.docs[path] = doc
	s.saves = append(s.saves, path)
	return nil
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

type fakeExecutor struct {
	mu sync.Mutex
	// calls records "run_cell"/"run_all" in invocation order, after the
	// store save that must precede them.
	calls   []string
	result  *Document
	fail    error
	started chan struct{}
	release chan struct{}
}

func (e *fakeExecutor) RunCell(_ context.Context, _ string, _ int, _ time.Duration) (*Document, error) {
	return e.run("run_cell")
}

func (e *fakeExecutor) RunAll(_ context.Context, _ string, _ time.Duration) (*Document, error) {
	return e.run("run_all")
}

func (e *fakeExecutor) run(op string) (*Document, error) {
	e.mu.Lock()
	e.calls = append(e.calls, op)
	started := e.started
	release := e.release
	e.mu.Unlock()

	if started != nil {
		close(started)
		e.mu.Lock()
		e.started = nil
		e.mu.Unlock()
	}
	if release != nil {
		<-release
	}
	if e.fail != nil {
		return nil, e.fail
	}
	return e.result, nil
}

func (e *fakeExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type fakeSuggester struct {
	suggestion string
	calls      int
}

func (s *fakeSuggester) Suggest(_ context.Context, _ string, _ int) (string, error) {
	s.calls++
	return s.suggestion, nil
}

func loadedCoordinator(t *testing.T, store *fakeStore, exec Executor) *Coordinator {
	t.Helper()
	store.docs["demo.ipynb"] = NewDocument().AppendCell(CellCode)

	c := NewCoordinator(store, exec, &fakeSuggester{})
	_, err := c.Load(context.Background(), "demo.ipynb")
	require.NoError(t, err)
	return c
}

func TestRunCellSavesBeforeExecuting(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	executed := NewDocument().AppendCell(CellCode)
	exec := &fakeExecutor{result: executed}
	c := loadedCoordinator(t, store, exec)

	// One save from Load setup is absent (Load only reads); the run adds one.
	before := store.saveCount()

	doc, err := c.RunCell(context.Background(), 1, time.Minute)
	require.NoError(t, err)
	require.Same(t, executed, doc)
	require.Same(t, executed, c.Document())
	require.Equal(t, before+1, store.saveCount(), "document must be saved exactly once per run")
	require.Equal(t, []string{"run_cell"}, exec.calls)

	_, running := c.Running()
	require.False(t, running, "run state must be cleared after success")
}

func TestRunAllReplacesDocument(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	executed := NewDocument().AppendCell(CellCode).AppendCell(CellCode)
	exec := &fakeExecutor{result: executed}
	c := loadedCoordinator(t, store, exec)

	doc, err := c.RunAll(context.Background(), time.Minute)
	require.NoError(t, err)
	require.Same(t, executed, doc)
	require.Same(t, executed, c.Document())
	require.Equal(t, []string{"run_all"}, exec.calls)
}

func TestRunCellExecutionFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	exec := &fakeExecutor{fail: errors.New("kernel died")}
	c := loadedCoordinator(t, store, exec)
	before := c.Document()

	_, err := c.RunCell(context.Background(), 1, time.Minute)
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "run_cell", execErr.Op)

	require.Same(t, before, c.Document(), "failed run must not change the document")
	_, running := c.Running()
	require.False(t, running, "run state must be cleared after failure")
}

func TestRunCellIndexOutOfRange(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	exec := &fakeExecutor{}
	c := loadedCoordinator(t, store, exec)
	before := store.saveCount()

	_, err := c.RunCell(context.Background(), 9, time.Minute)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	require.Equal(t, before, store.saveCount(), "validation failures must not touch the store")
	require.Zero(t, exec.callCount())
}

func TestRunCellBeforeLoad(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(newFakeStore(), &fakeExecutor{}, &fakeSuggester{})
	_, err := c.RunCell(context.Background(), 0, time.Minute)
	require.ErrorIs(t, err, ErrNoDocument)
}

func TestRunRejectedWhileRunInFlight(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	exec := &fakeExecutor{
		result:  NewDocument().AppendCell(CellCode),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := loadedCoordinator(t, store, exec)

	done := make(chan error, 1)
	go func() {
		_, err := c.RunCell(context.Background(), 1, time.Minute)
		done <- err
	}()

	<-exec.started

	index, running := c.Running()
	require.True(t, running)
	require.Equal(t, 1, index)

	_, err := c.RunCell(context.Background(), 1, time.Minute)
	require.ErrorIs(t, err, ErrRunInFlight)
	_, err = c.RunAll(context.Background(), time.Minute)
	require.ErrorIs(t, err, ErrRunInFlight)

	close(exec.release)
	require.NoError(t, <-done)

	_, running = c.Running()
	require.False(t, running)
}

func TestRunningReportsRunAllSentinel(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	exec := &fakeExecutor{
		result:  NewDocument(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := loadedCoordinator(t, store, exec)

	done := make(chan error, 1)
	go func() {
		_, err := c.RunAll(context.Background(), time.Minute)
		done <- err
	}()

	<-exec.started
	index, running := c.Running()
	require.True(t, running)
	require.Equal(t, RunAllIndex, index)

	close(exec.release)
	require.NoError(t, <-done)
}

func TestLoadDuringRunDiscardsStaleResult(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	stale := NewDocument().AppendCell(CellCode)
	exec := &fakeExecutor{
		result:  stale,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := loadedCoordinator(t, store, exec)

	type runResult struct {
		doc *Document
		err error
	}
	done := make(chan runResult, 1)
	go func() {
		doc, err := c.RunCell(context.Background(), 1, time.Minute)
		done <- runResult{doc: doc, err: err}
	}()

	<-exec.started

	reloaded := NewDocument()
	store.mu.Lock()
	store.docs["demo.ipynb"] = reloaded
	store.mu.Unlock()
	_, err := c.Load(context.Background(), "demo.ipynb")
	require.NoError(t, err)

	close(exec.release)
	result := <-done
	require.NoError(t, result.err)
	require.Same(t, stale, result.doc, "the caller still gets the run result")
	require.Same(t, reloaded, c.Document(), "the reloaded document must win")
}

func TestErrorOutputIsDataNotFault(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	count := 1
	executed, err := NewDocument().AppendCell(CellCode).
		WithCellResult(1, []Output{NewErrorOutput("ZeroDivisionError", "division by zero", nil)}, &count)
	require.NoError(t, err)

	exec := &fakeExecutor{result: executed}
	c := loadedCoordinator(t, store, exec)

	doc, err := c.RunCell(context.Background(), 1, time.Minute)
	require.NoError(t, err, "a raised error inside a cell is a successful run")

	cell, err := doc.CellAt(1)
	require.NoError(t, err)
	require.Len(t, cell.Outputs, 1)
	require.Equal(t, OutputError, cell.Outputs[0].Type)
}

func TestDeleteLastCellRejected(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.docs["one.ipynb"] = NewDocument()
	c := NewCoordinator(store, &fakeExecutor{}, &fakeSuggester{})
	_, err := c.Load(context.Background(), "one.ipynb")
	require.NoError(t, err)

	before := c.Document()
	_, err = c.DeleteCell(0)
	require.ErrorIs(t, err, ErrLastCell)
	require.Same(t, before, c.Document())
}

func TestCellEditsReplaceSnapshot(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	c := loadedCoordinator(t, store, &fakeExecutor{})
	first := c.Document()

	withCell, err := c.AddCell(CellMarkdown)
	require.NoError(t, err)
	require.NotSame(t, first, withCell)
	require.Equal(t, 3, withCell.CellCount())

	edited, err := c.UpdateCellSource(2, "notes")
	require.NoError(t, err)
	cell, err := edited.CellAt(2)
	require.NoError(t, err)
	require.Equal(t, "notes", cell.Source)

	trimmed, err := c.DeleteCell(2)
	require.NoError(t, err)
	require.Equal(t, 2, trimmed.CellCount())

	require.Equal(t, 2, first.CellCount(), "old snapshots stay intact")
}

func TestSuggestValidatesIndex(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.docs["demo.ipynb"] = NewDocument()
	suggest := &fakeSuggester{suggestion: "try pandas"}
	c := NewCoordinator(store, &fakeExecutor{}, suggest)
	_, err := c.Load(context.Background(), "demo.ipynb")
	require.NoError(t, err)

	_, err = c.Suggest(context.Background(), 4)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	require.Zero(t, suggest.calls)

	got, err := c.Suggest(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, "try pandas", got)
	require.Equal(t, 1, suggest.calls)
}

func TestSaveBeforeLoad(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(newFakeStore(), &fakeExecutor{}, &fakeSuggester{})
	require.ErrorIs(t, c.Save(context.Background()), ErrNoDocument)
}

func TestRunCellStoreFailureAborts(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	exec := &fakeExecutor{result: NewDocument()}
	c := loadedCoordinator(t, store, exec)

	store.mu.Lock()
	store.fail = errors.New("disk full")
	store.mu.Unlock()

	_, err := c.RunCell(context.Background(), 1, time.Minute)
	require.Error(t, err)
	require.Zero(t, exec.callCount(), "a failed save must abort before execution")

	_, running := c.Running()
	require.False(t, running)
}
