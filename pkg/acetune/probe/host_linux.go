//go:build linux

package probe

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

type linuxHost struct {
	baseHost
}

// NewHost returns the introspection source for the running host.
func NewHost() Host {
	return linuxHost{}
}

func (linuxHost) Arch() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return runtime.GOARCH, nil
	}
	if machine := unix.ByteSliceToString(uts.Machine[:]); machine != "" {
		return machine, nil
	}
	return runtime.GOARCH, nil
}

// TotalMemory reads total RAM via sysinfo(2).
func (linuxHost) TotalMemory() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, fmt.Errorf("sysinfo: %w", err)
	}
	return uint64(info.Totalram) * uint64(info.Unit), nil
}

// AvailableMemory prefers MemAvailable from /proc/meminfo, which counts
// reclaimable cache, and falls back to free RAM from sysinfo(2).
func (linuxHost) AvailableMemory() (uint64, error) {
	if avail, err := memAvailable("/proc/meminfo"); err == nil {
		return avail, nil
	}

	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, fmt.Errorf("sysinfo: %w", err)
	}
	return uint64(info.Freeram) * uint64(info.Unit), nil
}

// memAvailable parses the "MemAvailable: <n> kB" line of a meminfo file.
func memAvailable(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		value, ok := strings.CutPrefix(scanner.Text(), "MemAvailable:")
		if !ok {
			continue
		}
		fields := strings.Fields(value)
		if len(fields) == 0 {
			break
		}
		kb, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing MemAvailable: %w", err)
		}
		return kb * 1024, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, errors.New("no MemAvailable in " + path)
}

// ChipName returns the first "model name" (x86) or "Hardware"/"Model"
// (arm) entry in /proc/cpuinfo.
func (linuxHost) ChipName() (string, error) {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return "", fmt.Errorf("opening cpuinfo: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "model name", "Hardware", "Model":
			if v := strings.TrimSpace(value); v != "" {
				return v, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading cpuinfo: %w", err)
	}
	return "", errors.New("no model name in cpuinfo")
}

// OSRelease returns the kernel release, e.g. "6.8.0-45-generic".
func (linuxHost) OSRelease() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}
	return unix.ByteSliceToString(uts.Release[:]), nil
}
