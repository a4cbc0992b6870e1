//go:build darwin

package probe

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

type darwinHost struct {
	baseHost
}

// NewHost returns the introspection source for the running host.
func NewHost() Host {
	return darwinHost{}
}

// Arch reports arm64 for x86_64 binaries running under Rosetta, since the
// accelerator available is the native one.
func (darwinHost) Arch() (string, error) {
	if runtime.GOARCH == "amd64" {
		if translated, err := unix.SysctlUint32("sysctl.proc_translated"); err == nil && translated == 1 {
			return "arm64", nil
		}
	}
	return runtime.GOARCH, nil
}

// TotalMemory reads hw.memsize.
func (darwinHost) TotalMemory() (uint64, error) {
	memsize, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0, fmt.Errorf("sysctl hw.memsize: %w", err)
	}
	return memsize, nil
}

// AvailableMemory counts free and speculative pages, the pages the kernel
// can hand out without paging anything else out.
func (darwinHost) AvailableMemory() (uint64, error) {
	free, err := unix.SysctlUint32("vm.page_free_count")
	if err != nil {
		return 0, fmt.Errorf("sysctl vm.page_free_count: %w", err)
	}
	speculative, err := unix.SysctlUint32("vm.page_speculative_count")
	if err != nil {
		speculative = 0
	}
	return (uint64(free) + uint64(speculative)) * uint64(unix.Getpagesize()), nil
}

// ChipName reads machdep.cpu.brand_string, e.g. "Apple M2 Pro".
func (darwinHost) ChipName() (string, error) {
	brand, err := unix.Sysctl("machdep.cpu.brand_string")
	if err != nil {
		return "", fmt.Errorf("sysctl machdep.cpu.brand_string: %w", err)
	}
	return brand, nil
}

// OSRelease reads the macOS product version, e.g. "14.4.1".
func (darwinHost) OSRelease() (string, error) {
	release, err := unix.Sysctl("kern.osproductversion")
	if err != nil {
		return "", fmt.Errorf("sysctl kern.osproductversion: %w", err)
	}
	return release, nil
}
