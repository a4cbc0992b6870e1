package report

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// PlainFormatter renders aligned "key value" lines without styling.
type PlainFormatter struct{}

// Format writes the plain report to w.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	c, cfg := r.Capabilities, r.Config

	os := "unknown"
	if c.OSVersion != nil {
		os = c.OSVersion.String()
	}

	rows := [][2]string{
		{"platform", string(c.Platform)},
		{"architecture", string(c.Architecture)},
		{"chip", c.ChipName},
		{"os_version", os},
		{"memory", fmt.Sprintf("%s (%d bytes)", humanize.IBytes(c.TotalMemoryBytes), c.TotalMemoryBytes)},
		{"available_memory", availableMemory(c)},
		{"accelerator", string(c.AcceleratorKind)},
		{"logical_cores", fmt.Sprint(c.LogicalCores)},
		{"tier", string(cfg.Tier)},
		{"device", string(cfg.Device)},
		{"backend", string(cfg.Backend)},
		{"precision", string(cfg.Precision)},
		{"batch_size", fmt.Sprint(cfg.BatchSize)},
		{"offload_to_cpu", fmt.Sprint(cfg.OffloadToCPU)},
		{"offload_secondary_to_cpu", fmt.Sprint(cfg.OffloadSecondaryToCPU)},
		{"use_fused_attention", fmt.Sprint(cfg.UseFusedAttention)},
	}
	for _, k := range r.EnvironmentKeys() {
		rows = append(rows, [2]string{k, r.Environment[k]})
	}

	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	for _, warning := range r.Warnings {
		if _, err := fmt.Fprintf(tw, "warning\t%s\n", warning); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
