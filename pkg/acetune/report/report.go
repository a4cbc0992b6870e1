// Package report renders probed capabilities and the resolved runtime
// configuration for humans and tools.
//
// Formatters live in a registry and are selected by name at runtime:
//
//	formatter, err := report.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, r); err != nil {
//	    return err
//	}
//
// Rendering is side-effect free. Nothing in the engine reads a report back.
package report

import (
	"bytes"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/acetune/pkg/acetune/types"
)

// Report is everything a formatter can render.
type Report struct {
	Capabilities types.SystemCapabilities   `json:"capabilities" yaml:"capabilities" toml:"capabilities"`
	Config       types.RuntimeConfiguration `json:"config" yaml:"config" toml:"config"`

	// Environment holds the effective tuning variables, when a plan was
	// derived: the computed value, or the value already set by the caller.
	Environment map[string]string `json:"environment,omitempty" yaml:"environment,omitempty" toml:"environment,omitempty"`

	// Warnings are the messages of the recoverable errors raised while
	// probing and building, in order.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty" toml:"warnings,omitempty"`
}

// New assembles a report. environment may be nil.
func New(caps types.SystemCapabilities, cfg types.RuntimeConfiguration, environment map[string]string, warnings []error) *Report {
	r := &Report{Capabilities: caps, Config: cfg}
	if environment != nil {
		r.Environment = maps.Clone(environment)
	}
	for _, w := range warnings {
		if w != nil {
			r.Warnings = append(r.Warnings, w.Error())
		}
	}
	return r
}

// EnvironmentKeys returns the environment variable names in sorted order.
func (r *Report) EnvironmentKeys() []string {
	keys := make([]string, 0, len(r.Environment))
	for k := range r.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Format renders caps and cfg as plain text.
func Format(caps types.SystemCapabilities, cfg types.RuntimeConfiguration) string {
	var buf bytes.Buffer
	_ = (&PlainFormatter{}).Format(&buf, &Report{Capabilities: caps, Config: cfg})
	return buf.String()
}

// availableMemory renders free memory, or "unknown" when it was not probed.
func availableMemory(c types.SystemCapabilities) string {
	if c.AvailableMemoryBytes == 0 {
		return "unknown"
	}
	return humanize.IBytes(c.AvailableMemoryBytes)
}

// Formatter is implemented by every output format.
type Formatter interface {
	// Format writes r to w.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory creates a new Formatter.
type FormatterFactory func() Formatter

// Registry maps format names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a factory, replacing any existing one with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the registered names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in formatters.
var DefaultRegistry = NewRegistry()

// Register adds a factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available lists the default registry's formatters.
func Available() []string {
	return DefaultRegistry.Available()
}
