package report

import (
	"bytes"

	"github.com/pelletier/go-toml/v2"
)

// TOMLFormatter renders the report as a TOML document, suitable for
// pasting into launcher config files.
type TOMLFormatter struct{}

// Format writes the TOML report to w.
func (f *TOMLFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := toml.NewEncoder(w)
	encoder.SetIndentTables(true)
	return encoder.Encode(r)
}

func init() {
	Register("toml", func() Formatter {
		return &TOMLFormatter{}
	})
}

var _ Formatter = (*TOMLFormatter)(nil)
