// Package notebook holds the notebook document model and the execution
// coordinator that serializes cell runs against an execution backend.
//
// Documents are values: every mutating operation produces a new *Document and
// leaves the previous one untouched, so any holder of an old pointer keeps a
// consistent snapshot.
package notebook

import (
	"encoding/json"
	"fmt"
)

// CellKind discriminates executable code cells from static markdown cells.
type CellKind string

const (
	CellCode     CellKind = "code"
	CellMarkdown CellKind = "markdown"
)

// Cell is one addressable unit of a notebook document.
//
// Outputs and ExecutionCount are meaningful for code cells only; markdown
// cells omit both on the wire.
type Cell struct {
	Kind           CellKind
	Source         string
	Outputs        []Output
	ExecutionCount *int
	Metadata       map[string]any
}

type markdownCellJSON struct {
	CellType CellKind       `json:"cell_type"`
	Metadata map[string]any `json:"metadata"`
	Source   string         `json:"source"`
}

type codeCellJSON struct {
	CellType       CellKind       `json:"cell_type"`
	Metadata       map[string]any `json:"metadata"`
	Source         string         `json:"source"`
	Outputs        []Output       `json:"outputs"`
	ExecutionCount *int           `json:"execution_count"`
}

// MarshalJSON emits the nbformat v4 cell shape: code cells always carry an
// outputs array and an execution_count (null until first run), markdown
// cells carry neither.
func (c Cell) MarshalJSON() ([]byte, error) {
	meta := c.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	if c.Kind == CellMarkdown {
		return json.Marshal(markdownCellJSON{CellType: CellMarkdown, Metadata: meta, Source: c.Source})
	}
	outputs := c.Outputs
	if outputs == nil {
		outputs = []Output{}
	}
	return json.Marshal(codeCellJSON{
		CellType:       c.Kind,
		Metadata:       meta,
		Source:         c.Source,
		Outputs:        outputs,
		ExecutionCount: c.ExecutionCount,
	})
}

// UnmarshalJSON accepts nbformat v4 cells, including list-form source text.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var raw struct {
		CellType       CellKind        `json:"cell_type"`
		Metadata       map[string]any  `json:"metadata"`
		Source         json.RawMessage `json:"source"`
		Outputs        []Output        `json:"outputs"`
		ExecutionCount *int            `json:"execution_count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	source, err := decodeMultiline(raw.Source)
	if err != nil {
		return fmt.Errorf("cell source: %w", err)
	}
	*c = Cell{
		Kind:           raw.CellType,
		Source:         source,
		Outputs:        raw.Outputs,
		ExecutionCount: raw.ExecutionCount,
		Metadata:       raw.Metadata,
	}
	return nil
}

// Document is an nbformat v4 notebook. It always contains at least one cell.
type Document struct {
	Cells         []Cell         `json:"cells"`
	Metadata      map[string]any `json:"metadata"`
	NBFormat      int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`
}

// NewDocument creates a fresh notebook with a single markdown cell, matching
// what the backend materializes for unknown paths.
func NewDocument() *Document {
	return &Document{
		Cells: []Cell{{Kind: CellMarkdown, Source: "# New notebook", Metadata: map[string]any{}}},
		Metadata: map[string]any{
			"kernelspec": map[string]any{
				"name":         "python3",
				"language":     "python",
				"display_name": "Python 3",
			},
			"language_info": map[string]any{"name": "python"},
		},
		NBFormat:      4,
		NBFormatMinor: 5,
	}
}

// CellCount returns the number of cells.
func (d *Document) CellCount() int {
	return len(d.Cells)
}

// CellAt returns the cell at index.
func (d *Document) CellAt(index int) (Cell, error) {
	if err := d.checkIndex(index); err != nil {
		return Cell{}, err
	}
	return d.Cells[index], nil
}

func (d *Document) checkIndex(index int) error {
	if index < 0 || index >= len(d.Cells) {
		return fmt.Errorf("%w: index %d of %d cells", ErrIndexOutOfRange, index, len(d.Cells))
	}
	return nil
}

// AppendCell returns a new document with an empty cell of the given kind
// appended. Code cells get an empty output list and a null execution count.
func (d *Document) AppendCell(kind CellKind) *Document {
	cell := Cell{Kind: kind, Metadata: map[string]any{}}
	if kind == CellCode {
		cell.Outputs = []Output{}
	}
	next := d.shallowCopy()
	next.Cells = append(next.Cells, cell)
	return next
}

// RemoveCell returns a new document without the cell at index. Removing the
// last remaining cell is forbidden and returns ErrLastCell.
func (d *Document) RemoveCell(index int) (*Document, error) {
	if err := d.checkIndex(index); err != nil {
		return nil, err
	}
	if len(d.Cells) == 1 {
		return nil, ErrLastCell
	}
	next := d.shallowCopy()
	next.Cells = append(next.Cells[:index], d.Cells[index+1:]...)
	return next, nil
}

// ReplaceCellSource returns a new document with the source text of one cell
// replaced. The text itself is not validated.
func (d *Document) ReplaceCellSource(index int, source string) (*Document, error) {
	if err := d.checkIndex(index); err != nil {
		return nil, err
	}
	next := d.shallowCopy()
	next.Cells[index].Source = source
	return next, nil
}

// Slice returns a new document containing cells [0, end) with the same
// metadata. The execution backend runs such prefixes for single-cell runs.
func (d *Document) Slice(end int) (*Document, error) {
	if end < 1 || end > len(d.Cells) {
		return nil, fmt.Errorf("%w: prefix end %d of %d cells", ErrIndexOutOfRange, end, len(d.Cells))
	}
	next := d.shallowCopy()
	next.Cells = next.Cells[:end]
	return next, nil
}

// WithCellResult returns a new document where one cell carries the outputs
// and execution count reported by the backend. Outputs are replaced
// wholesale, never appended across runs.
func (d *Document) WithCellResult(index int, outputs []Output, executionCount *int) (*Document, error) {
	if err := d.checkIndex(index); err != nil {
		return nil, err
	}
	if outputs == nil {
		outputs = []Output{}
	}
	next := d.shallowCopy()
	next.Cells[index].Outputs = outputs
	next.Cells[index].ExecutionCount = executionCount
	return next, nil
}

// shallowCopy copies the document and its cell slice. Cell contents are
// shared; all mutation paths replace whole cells or whole field values, so
// shared innards are never written to.
func (d *Document) shallowCopy() *Document {
	next := *d
	next.Cells = make([]Cell, len(d.Cells))
	copy(next.Cells, d.Cells)
	return &next
}
