package tui

import (
	"encoding/json"
	"io"

	"github.com/mrz1836/crucible/internal/errors"
)

// JSONOutput writes one JSON object per message, for pipes and CI.
type JSONOutput struct {
	w       io.Writer
	encoder *json.Encoder
}

// NewJSONOutput creates a new JSONOutput.
func NewJSONOutput(w io.Writer) *JSONOutput {
	return &JSONOutput{
		w:       w,
		encoder: json.NewEncoder(w),
	}
}

type jsonMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type jsonError struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

type jsonTable struct {
	Type    string     `json:"type"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Success outputs {"type":"success","message":...}.
func (o *JSONOutput) Success(msg string) {
	o.message("success", msg)
}

// Error outputs the raw error as the message, with the user-facing
// explanation and suggested action when known.
func (o *JSONOutput) Error(err error) {
	out := jsonError{Type: "error", Message: err.Error()}
	if msg, action := errors.Actionable(err); msg != err.Error() {
		out.Details = msg
		out.Suggestion = action
	}
	//nolint:errchkjson // No error return in the interface
	_ = o.encoder.Encode(out)
}

// Warning outputs {"type":"warning","message":...}.
func (o *JSONOutput) Warning(msg string) {
	o.message("warning", msg)
}

// Info outputs {"type":"info","message":...}.
func (o *JSONOutput) Info(msg string) {
	o.message("info", msg)
}

// Section is a no-op for JSON output.
func (o *JSONOutput) Section(string) {}

// Table outputs the headers and rows as one object.
func (o *JSONOutput) Table(headers []string, rows [][]string) {
	if rows == nil {
		rows = [][]string{}
	}
	//nolint:errchkjson // No error return in the interface
	_ = o.encoder.Encode(jsonTable{Type: "table", Headers: headers, Rows: rows})
}

// JSON outputs v as indented JSON.
func (o *JSONOutput) JSON(v any) error {
	encoder := json.NewEncoder(o.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (o *JSONOutput) message(typ, msg string) {
	//nolint:errchkjson // No error return in the interface
	_ = o.encoder.Encode(jsonMessage{Type: typ, Message: msg})
}

var _ Output = (*JSONOutput)(nil)
