// Package memory maps total host memory to a capability tier and the
// execution parameters recommended for it.
//
// Tiers live in an explicit ordered table of (threshold, parameters) rows.
// Thresholds are inclusive-low: a host with exactly 16 GiB is "ample".
package memory

import (
	"github.com/jamesainslie/acetune/pkg/acetune/types"
)

const gib = uint64(types.GiB)

// Row is one capability tier and the parameters it recommends.
type Row struct {
	Tier types.Tier

	// MinBytes is the inclusive lower bound of the tier. The upper bound
	// is the next row's MinBytes.
	MinBytes uint64

	OffloadToCPU          bool
	OffloadSecondaryToCPU bool

	// SecondaryRelaxable marks secondary offload as safe to disable.
	SecondaryRelaxable bool

	// BatchUnified is the recommended batch size on unified-memory-gpu,
	// which shares its memory with everything else on the host.
	BatchUnified int

	// BatchDedicated is the recommended batch size on cpu and discrete-gpu.
	BatchDedicated int

	// MaxBatch is the largest batch size considered feasible in this tier.
	MaxBatch int

	// FusedAttention enables fused attention on devices that support it.
	FusedAttention bool

	// SingleOnCPU selects single precision when running on cpu.
	SingleOnCPU bool
}

// Table is ordered by MinBytes ascending. The first row starts at zero and
// the rows never overlap. Batch sizes must not decrease from row to row.
var Table = []Row{
	{
		Tier:                  types.TierConstrained,
		MinBytes:              0,
		OffloadToCPU:          true,
		OffloadSecondaryToCPU: true,
		BatchUnified:          1,
		BatchDedicated:        1,
		MaxBatch:              1,
	},
	{
		Tier:                  types.TierBalanced,
		MinBytes:              8 * gib,
		OffloadToCPU:          true,
		OffloadSecondaryToCPU: true,
		SecondaryRelaxable:    true,
		BatchUnified:          1,
		BatchDedicated:        2,
		MaxBatch:              2,
	},
	{
		Tier:           types.TierAmple,
		MinBytes:       16 * gib,
		BatchUnified:   2,
		BatchDedicated: 4,
		MaxBatch:       4,
		FusedAttention: true,
	},
	{
		Tier:           types.TierAbundant,
		MinBytes:       32 * gib,
		BatchUnified:   4,
		BatchDedicated: 8,
		MaxBatch:       8,
		FusedAttention: true,
		SingleOnCPU:    true,
	},
}

// RowFor returns the table row whose range contains totalBytes.
func RowFor(totalBytes uint64) Row {
	row := Table[0]
	for _, r := range Table[1:] {
		if totalBytes < r.MinBytes {
			break
		}
		row = r
	}
	return row
}

// TierFor returns the capability tier for totalBytes.
func TierFor(totalBytes uint64) types.Tier {
	return RowFor(totalBytes).Tier
}

// Recommendation is the set of execution parameters derived from a tier.
type Recommendation struct {
	Tier                  types.Tier
	OffloadToCPU          bool
	OffloadSecondaryToCPU bool
	BatchSize             int
	Precision             types.Precision
	UseFusedAttention     bool

	// MaxBatch and SecondaryRelaxable describe the tier's limits and let
	// callers judge explicit overrides.
	MaxBatch           int
	SecondaryRelaxable bool
}

// Recommend derives execution parameters for caps running on d.
// Fused attention is never recommended on unified-memory-gpu, whose
// kernels do not support it.
func Recommend(caps types.SystemCapabilities, d types.Device) Recommendation {
	row := RowFor(caps.TotalMemoryBytes)

	rec := Recommendation{
		Tier:                  row.Tier,
		OffloadToCPU:          row.OffloadToCPU,
		OffloadSecondaryToCPU: row.OffloadSecondaryToCPU,
		BatchSize:             row.BatchDedicated,
		Precision:             types.PrecisionHalf,
		UseFusedAttention:     row.FusedAttention,
		MaxBatch:              row.MaxBatch,
		SecondaryRelaxable:    row.SecondaryRelaxable,
	}

	switch d {
	case types.DeviceUnifiedGPU:
		rec.BatchSize = row.BatchUnified
		rec.UseFusedAttention = false
	case types.DeviceCPU:
		if row.SingleOnCPU {
			rec.Precision = types.PrecisionSingle
		}
	}

	return rec
}
