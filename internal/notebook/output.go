package notebook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OutputType discriminates the closed set of cell output variants.
type OutputType string

const (
	// OutputStream is raw text captured from stdout or stderr.
	OutputStream OutputType = "stream"
	// OutputError is a raised error with name, value and traceback lines.
	OutputError OutputType = "error"
	// OutputExecuteResult is the MIME-typed value of the last expression.
	OutputExecuteResult OutputType = "execute_result"
	// OutputDisplayData is MIME-typed rich display data.
	OutputDisplayData OutputType = "display_data"
)

// Output is one captured cell output. Exactly the fields of its variant are
// populated; outputs round-trip unchanged between the execution backend and
// the persisted document.
type Output struct {
	Type OutputType

	// Stream fields.
	Name string
	Text string

	// Error fields.
	Ename     string
	Evalue    string
	Traceback []string

	// ExecuteResult / DisplayData fields. Data maps MIME type to payload.
	Data           map[string]any
	Metadata       map[string]any
	ExecutionCount *int
}

// NewStreamOutput builds a stream output for the given stream name
// ("stdout" or "stderr").
func NewStreamOutput(name, text string) Output {
	return Output{Type: OutputStream, Name: name, Text: text}
}

// NewErrorOutput builds an error output.
func NewErrorOutput(ename, evalue string, traceback []string) Output {
	return Output{Type: OutputError, Ename: ename, Evalue: evalue, Traceback: traceback}
}

// NewDataOutput builds a display-data output with a single MIME payload.
func NewDataOutput(mimeType string, payload any) Output {
	return Output{Type: OutputDisplayData, Data: map[string]any{mimeType: payload}}
}

// PlainText renders the output as plain text, the way the suggest prompt
// consumes it. Data outputs contribute their text/plain representation only.
func (o Output) PlainText() string {
	switch o.Type {
	case OutputStream:
		return o.Text
	case OutputError:
		lines := []string{fmt.Sprintf("%s: %s", o.Ename, o.Evalue)}
		lines = append(lines, o.Traceback...)
		return strings.Join(lines, "\n")
	case OutputExecuteResult, OutputDisplayData:
		if tp, ok := o.Data["text/plain"]; ok {
			return joinMultiline(tp)
		}
	}
	return ""
}

type streamOutputJSON struct {
	OutputType OutputType      `json:"output_type"`
	Name       string          `json:"name"`
	Text       json.RawMessage `json:"text"`
}

type errorOutputJSON struct {
	OutputType OutputType `json:"output_type"`
	Ename      string     `json:"ename"`
	Evalue     string     `json:"evalue"`
	Traceback  []string   `json:"traceback"`
}

type dataOutputJSON struct {
	OutputType     OutputType     `json:"output_type"`
	Data           map[string]any `json:"data"`
	Metadata       map[string]any `json:"metadata"`
	ExecutionCount *int           `json:"execution_count,omitempty"`
}

// MarshalJSON emits the nbformat v4 wire shape for the output's variant.
func (o Output) MarshalJSON() ([]byte, error) {
	switch o.Type {
	case OutputStream:
		text, err := json.Marshal(o.Text)
		if err != nil {
			return nil, err
		}
		return json.Marshal(streamOutputJSON{OutputType: OutputStream, Name: o.Name, Text: text})
	case OutputError:
		tb := o.Traceback
		if tb == nil {
			tb = []string{}
		}
		return json.Marshal(errorOutputJSON{OutputType: OutputError, Ename: o.Ename, Evalue: o.Evalue, Traceback: tb})
	case OutputExecuteResult, OutputDisplayData:
		data := o.Data
		if data == nil {
			data = map[string]any{}
		}
		meta := o.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		out := dataOutputJSON{OutputType: o.Type, Data: data, Metadata: meta}
		if o.Type == OutputExecuteResult {
			out.ExecutionCount = o.ExecutionCount
		}
		return json.Marshal(out)
	default:
		return nil, fmt.Errorf("unknown output type %q", o.Type)
	}
}

// UnmarshalJSON parses any of the nbformat v4 output variants. An
// unrecognized output_type is an error; the variant set is closed.
func (o *Output) UnmarshalJSON(data []byte) error {
	var probe struct {
		OutputType OutputType `json:"output_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	switch probe.OutputType {
	case OutputStream:
		var raw streamOutputJSON
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		text, err := decodeMultiline(raw.Text)
		if err != nil {
			return fmt.Errorf("stream output text: %w", err)
		}
		*o = Output{Type: OutputStream, Name: raw.Name, Text: text}
		return nil
	case OutputError:
		var raw errorOutputJSON
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*o = Output{Type: OutputError, Ename: raw.Ename, Evalue: raw.Evalue, Traceback: raw.Traceback}
		return nil
	case OutputExecuteResult, OutputDisplayData:
		var raw dataOutputJSON
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*o = Output{
			Type:           probe.OutputType,
			Data:           raw.Data,
			Metadata:       raw.Metadata,
			ExecutionCount: raw.ExecutionCount,
		}
		return nil
	default:
		return fmt.Errorf("unknown output type %q", probe.OutputType)
	}
}

// decodeMultiline accepts the two nbformat spellings of text content: a plain
// string or a list of line strings that concatenate to the full text.
func decodeMultiline(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return "", fmt.Errorf("expected string or string list")
	}
	return strings.Join(lines, ""), nil
}

func joinMultiline(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		var b strings.Builder
		for _, item := range t {
			if s, ok := item.(string); ok {
				b.WriteString(s)
			}
		}
		return b.String()
	default:
		return ""
	}
}
