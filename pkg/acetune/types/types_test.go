package types

import (
	"errors"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{name: "plain bytes", input: "1024", want: 1024},
		{name: "zero bytes", input: "0", want: 0},
		{name: "megabytes", input: "512M", want: 512 * 1024 * 1024},
		{name: "gigabytes uppercase", input: "16G", want: 16 * 1024 * 1024 * 1024},
		{name: "gigabytes lowercase", input: "8g", want: 8 * 1024 * 1024 * 1024},
		{name: "gigabytes with iB", input: "32GiB", want: 32 * 1024 * 1024 * 1024},
		{name: "terabytes", input: "1TB", want: 1024 * 1024 * 1024 * 1024},
		{name: "whitespace", input: "  24G  ", want: 24 * 1024 * 1024 * 1024},
		{name: "decimal values truncated", input: "1.5G", want: 1610612736},

		{name: "empty string", input: "", wantErr: true},
		{name: "invalid suffix", input: "100X", wantErr: true},
		{name: "negative value", input: "-8G", wantErr: true},
		{name: "letters only", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSize_Negative(t *testing.T) {
	_, err := ParseSize("-1G")
	if !errors.Is(err, ErrNegativeSize) {
		t.Errorf("ParseSize(-1G) error = %v, want ErrNegativeSize", err)
	}
}

func TestParseSize_Overflow(t *testing.T) {
	for _, input := range []string{"20000000T", "16777216T", "18446744073709551616", "99999999999999999999999G"} {
		if _, err := ParseSize(input); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("ParseSize(%q) error = %v, want ErrInvalidSize", input, err)
		}
	}

	// 16383 TiB still fits.
	got, err := ParseSize("16383T")
	if err != nil {
		t.Fatalf("ParseSize(16383T) error = %v", err)
	}
	if want := uint64(16383) * uint64(TiB); got != want {
		t.Errorf("ParseSize(16383T) = %d, want %d", got, want)
	}
}

func TestFormatSize(t *testing.T) {
	if got := FormatSize(16 * 1024 * 1024 * 1024); got != "16 GiB" {
		t.Errorf("FormatSize(16GiB) = %q, want %q", got, "16 GiB")
	}
}

func TestParseDevice(t *testing.T) {
	tests := []struct {
		input   string
		want    Device
		wantNil bool
		wantErr bool
	}{
		{input: "", wantNil: true},
		{input: "auto", wantNil: true},
		{input: "AUTO", wantNil: true},
		{input: "cpu", want: DeviceCPU},
		{input: "unified-memory-gpu", want: DeviceUnifiedGPU},
		{input: "mps", want: DeviceUnifiedGPU},
		{input: "discrete-gpu", want: DeviceDiscreteGPU},
		{input: "cuda", want: DeviceDiscreteGPU},
		{input: "tpu", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDevice(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDevice) {
					t.Fatalf("ParseDevice(%q) error = %v, want ErrInvalidDevice", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDevice(%q) unexpected error: %v", tt.input, err)
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("ParseDevice(%q) = %v, want nil", tt.input, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("ParseDevice(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePrecision(t *testing.T) {
	for input, want := range map[string]Precision{
		"half":    PrecisionHalf,
		"float16": PrecisionHalf,
		"single":  PrecisionSingle,
		"FP32":    PrecisionSingle,
	} {
		got, err := ParsePrecision(input)
		if err != nil {
			t.Fatalf("ParsePrecision(%q) error = %v", input, err)
		}
		if got != want {
			t.Errorf("ParsePrecision(%q) = %q, want %q", input, got, want)
		}
	}

	if _, err := ParsePrecision("double"); !errors.Is(err, ErrInvalidPrecision) {
		t.Errorf("ParsePrecision(double) error = %v, want ErrInvalidPrecision", err)
	}
}

func TestParseBackend(t *testing.T) {
	got, err := ParseBackend("vllm")
	if err != nil || got != BackendVLLM {
		t.Errorf("ParseBackend(vllm) = %q, %v", got, err)
	}
	if _, err := ParseBackend("onnx"); !errors.Is(err, ErrInvalidBackend) {
		t.Errorf("ParseBackend(onnx) error = %v, want ErrInvalidBackend", err)
	}
}

func TestParseOSVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    OSVersion
		wantErr bool
	}{
		{input: "14.2", want: OSVersion{14, 2, 0}},
		{input: "15.1.1", want: OSVersion{15, 1, 1}},
		{input: "6.8.0-45-generic", want: OSVersion{6, 8, 0}},
		{input: "23", want: OSVersion{23, 0, 0}},
		{input: "", wantErr: true},
		{input: "darwin", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOSVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOSVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && *got != tt.want {
				t.Errorf("ParseOSVersion(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		})
	}
}
