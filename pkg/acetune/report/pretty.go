package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// PrettyFormatter renders a styled report for terminals.
type PrettyFormatter struct{}

// Format writes the styled report to w.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	sections := []string{f.formatHost(r), f.formatConfig(r)}
	if len(r.Environment) > 0 {
		sections = append(sections, f.formatEnvironment(r))
	}
	w.WriteString(lipgloss.JoinVertical(lipgloss.Left, sections...))
	w.WriteString("\n")

	if len(r.Warnings) > 0 {
		w.WriteString(f.formatWarnings(r.Warnings))
		w.WriteString("\n")
	}
	return nil
}

func (f *PrettyFormatter) formatHost(r *Report) string {
	c := r.Capabilities

	os := "unknown"
	if c.OSVersion != nil {
		os = c.OSVersion.String()
	}

	rows := [][2]string{
		{"Chip", c.ChipName},
		{"Platform", fmt.Sprintf("%s (%s)", c.Platform, c.Architecture)},
		{"OS", os},
		{"Memory", SizeStyle.Render(humanize.IBytes(c.TotalMemoryBytes))},
		{"Available", availableMemory(c)},
		{"Accelerator", string(c.AcceleratorKind)},
		{"Cores", humanize.Comma(int64(c.LogicalCores))},
	}
	if c.Containerized {
		rows = append(rows, [2]string{"Container", "yes"})
	}
	return section("Host", rows)
}

func (f *PrettyFormatter) formatConfig(r *Report) string {
	cfg := r.Config
	rows := [][2]string{
		{"Tier", SizeStyle.Render(string(cfg.Tier))},
		{"Device", string(cfg.Device)},
		{"Backend", string(cfg.Backend)},
		{"Precision", string(cfg.Precision)},
		{"Batch size", fmt.Sprint(cfg.BatchSize)},
		{"Offload", onOff(cfg.OffloadToCPU)},
		{"Offload 2nd", onOff(cfg.OffloadSecondaryToCPU)},
		{"Fused attn", onOff(cfg.UseFusedAttention)},
	}
	return section("Runtime", rows)
}

func (f *PrettyFormatter) formatEnvironment(r *Report) string {
	keys := r.EnvironmentKeys()
	rows := make([][2]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, [2]string{k, r.Environment[k]})
	}
	return section("Environment", rows)
}

func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder
	sb.WriteString(WarningStyle.Bold(true).Render("Warnings"))
	for _, w := range warnings {
		sb.WriteString("\n")
		sb.WriteString(WarningStyle.Render("• " + w))
	}
	return WarningBox.Render(sb.String())
}

// section renders a titled box of aligned label/value rows.
func section(title string, rows [][2]string) string {
	width := 0
	for _, row := range rows {
		if len(row[0]) > width {
			width = len(row[0])
		}
	}

	lines := []string{TitleStyle.Render(title)}
	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":" + strings.Repeat(" ", width-len(row[0])))
		lines = append(lines, label+" "+ValueStyle.Render(row[1]))
	}
	return SectionBox.Render(strings.Join(lines, "\n"))
}

func onOff(b bool) string {
	if b {
		return OnStyle.Render("on")
	}
	return OffStyle.Render("off")
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
