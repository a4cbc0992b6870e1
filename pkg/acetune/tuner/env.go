package tuner

import (
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
)

// Environment is the process-wide key/value state the tuner writes to.
type Environment interface {
	Lookup(key string) (string, bool)
	Set(key, value string) error
	Unset(key string) error
}

// ProcessEnv is the real process environment.
type ProcessEnv struct{}

func (ProcessEnv) Lookup(key string) (string, bool) { return os.LookupEnv(key) }

func (ProcessEnv) Set(key, value string) error { return os.Setenv(key, value) }

func (ProcessEnv) Unset(key string) error { return os.Unsetenv(key) }

// MapEnv is an in-memory Environment, useful for dry runs and tests.
type MapEnv struct {
	mu   sync.Mutex
	vars map[string]string
}

// SnapshotProcess returns a MapEnv holding a copy of the process
// environment. Writes to it do not reach the process.
func SnapshotProcess() *MapEnv {
	return NewMapEnv(parseEnviron(os.Environ()))
}

func parseEnviron(environ []string) map[string]string {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vars[k] = v
		}
	}
	return vars
}

// Effective returns the value each plan variable ends up with in env: the
// preset value where env already defines it, the computed one otherwise.
// A nil env yields the plan as computed.
func Effective(env Environment, p Plan) map[string]string {
	vars := p.Vars()
	if env == nil {
		return vars
	}
	for k := range vars {
		if existing, ok := env.Lookup(k); ok {
			vars[k] = existing
		}
	}
	return vars
}

// NewMapEnv returns a MapEnv seeded with initial.
func NewMapEnv(initial map[string]string) *MapEnv {
	vars := make(map[string]string, len(initial))
	for k, v := range initial {
		vars[k] = v
	}
	return &MapEnv{vars: vars}
}

func (m *MapEnv) Lookup(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vars[key]
	return v, ok
}

func (m *MapEnv) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vars[key] = value
	return nil
}

func (m *MapEnv) Unset(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vars, key)
	return nil
}

// Environ returns the contents as sorted KEY=value pairs, the form
// os/exec and execve take.
func (m *MapEnv) Environ() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.vars))
	for _, k := range slices.Sorted(maps.Keys(m.vars)) {
		out = append(out, k+"="+m.vars[k])
	}
	return out
}

// Snapshot returns a copy of the current contents.
func (m *MapEnv) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.vars))
	for k, v := range m.vars {
		out[k] = v
	}
	return out
}
