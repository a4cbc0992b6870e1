package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jamesainslie/acetune/pkg/acetune/types"
	"github.com/joho/godotenv"
)

// ResultPrefix namespaces the resolved configuration fields in env output.
// It must differ from the ACETUNE_ prefix, whose variables are read back as
// explicit overrides.
const ResultPrefix = "ACESTEP_"

// ResultVars returns cfg as ResultPrefix variables.
func ResultVars(cfg types.RuntimeConfiguration) map[string]string {
	return map[string]string{
		ResultPrefix + "TIER":                     string(cfg.Tier),
		ResultPrefix + "DEVICE":                   string(cfg.Device),
		ResultPrefix + "BACKEND":                  string(cfg.Backend),
		ResultPrefix + "PRECISION":                string(cfg.Precision),
		ResultPrefix + "BATCH_SIZE":               fmt.Sprint(cfg.BatchSize),
		ResultPrefix + "OFFLOAD_TO_CPU":           fmt.Sprint(cfg.OffloadToCPU),
		ResultPrefix + "OFFLOAD_SECONDARY_TO_CPU": fmt.Sprint(cfg.OffloadSecondaryToCPU),
		ResultPrefix + "USE_FUSED_ATTENTION":      fmt.Sprint(cfg.UseFusedAttention),
	}
}

// EnvFormatter renders the configuration and tuning variables as a dotenv
// file that a launcher can source.
type EnvFormatter struct{}

// Format writes the dotenv report to w.
func (f *EnvFormatter) Format(w *bytes.Buffer, r *Report) error {
	vars := ResultVars(r.Config)
	for k, v := range r.Environment {
		vars[k] = v
	}

	out, err := godotenv.Marshal(vars)
	if err != nil {
		return err
	}
	w.WriteString(strings.TrimRight(out, "\n"))
	w.WriteString("\n")
	return nil
}

func init() {
	Register("env", func() Formatter {
		return &EnvFormatter{}
	})
}

var _ Formatter = (*EnvFormatter)(nil)
