package report

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter renders the same structure as JSONFormatter in YAML.
type YAMLFormatter struct{}

// Format writes the YAML report to w.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(r); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

var _ Formatter = (*YAMLFormatter)(nil)
