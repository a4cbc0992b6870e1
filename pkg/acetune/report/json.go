package report

import (
	"bytes"
	"encoding/json"
)

// JSONFormatter renders the report as one indented JSON document.
type JSONFormatter struct{}

// Format writes the JSON report to w.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

var _ Formatter = (*JSONFormatter)(nil)
