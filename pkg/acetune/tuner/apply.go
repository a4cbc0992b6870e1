package tuner

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jamesainslie/acetune/pkg/acetune/logging"
)

var logger = logging.Get("tuner")

// ErrAlreadyApplied is returned when a Tuner that already applied one plan
// is asked to apply a different one.
var ErrAlreadyApplied = errors.New("tuning already applied with different values")

// ApplyResult records what Apply did.
type ApplyResult struct {
	// Set lists the variables written, sorted.
	Set []string

	// Skipped lists variables left alone because they were already set
	// before the tuner ran, sorted.
	Skipped []string
}

// Tuner applies a Plan to an Environment exactly once.
type Tuner struct {
	mu      sync.Mutex
	env     Environment
	applied map[string]string
	result  ApplyResult
}

// New returns a Tuner writing to env.
func New(env Environment) *Tuner {
	return &Tuner{env: env}
}

var (
	processOnce  sync.Once
	processTuner *Tuner
)

// Process returns the Tuner that owns the real process environment.
// There is one per process.
func Process() *Tuner {
	processOnce.Do(func() {
		processTuner = New(ProcessEnv{})
	})
	return processTuner
}

// Applied reports whether a plan has been applied.
func (t *Tuner) Applied() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applied != nil
}

// Apply writes the plan's variables, skipping any the environment already
// defines. Applying the same plan again does nothing and returns the first
// result. Applying a different plan returns ErrAlreadyApplied.
func (t *Tuner) Apply(p Plan) (ApplyResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	vars := p.Vars()

	if t.applied != nil {
		if maps.Equal(t.applied, vars) {
			return t.result, nil
		}
		return ApplyResult{}, ErrAlreadyApplied
	}

	var result ApplyResult
	for _, key := range slices.Sorted(maps.Keys(vars)) {
		if existing, ok := t.env.Lookup(key); ok {
			logger.Debug("keeping preset variable", "key", key, "value", existing, "computed", vars[key])
			result.Skipped = append(result.Skipped, key)
			continue
		}
		if err := t.env.Set(key, vars[key]); err != nil {
			t.rollback(result.Set)
			return ApplyResult{}, fmt.Errorf("setting %s: %w", key, err)
		}
		result.Set = append(result.Set, key)
	}

	t.applied = vars
	t.result = result

	logger.Info("applied environment tuning", "set", len(result.Set), "skipped", len(result.Skipped))
	return result, nil
}

// rollback unsets keys written by a failed Apply, so a retry does not
// mistake them for preset values.
func (t *Tuner) rollback(keys []string) {
	for _, key := range keys {
		if err := t.env.Unset(key); err != nil {
			logger.Warn("failed to roll back variable", "key", key, "err", err)
		}
	}
}
