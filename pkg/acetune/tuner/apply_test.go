package tuner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/acetune/pkg/acetune/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan(cores int) Plan {
	return PlanFor(types.SystemCapabilities{LogicalCores: cores},
		types.RuntimeConfiguration{Device: types.DeviceUnifiedGPU}, 0)
}

func TestApply_SetsAllVariables(t *testing.T) {
	env := NewMapEnv(nil)
	tn := New(env)

	res, err := tn.Apply(testPlan(4))
	require.NoError(t, err)

	assert.Empty(t, res.Skipped)
	assert.Len(t, res.Set, 8)
	assert.True(t, tn.Applied())

	snap := env.Snapshot()
	assert.Equal(t, "4", snap[EnvOMPThreads])
	assert.Equal(t, "false", snap[EnvTokenizersParallelism])
	assert.Equal(t, "1", snap[EnvMPSFallback])
}

func TestApply_NeverOverridesPresetVariables(t *testing.T) {
	env := NewMapEnv(map[string]string{
		EnvOMPThreads:            "2",
		EnvTokenizersParallelism: "true",
	})
	tn := New(env)

	res, err := tn.Apply(testPlan(8))
	require.NoError(t, err)

	assert.Equal(t, []string{EnvOMPThreads, EnvTokenizersParallelism}, res.Skipped)
	snap := env.Snapshot()
	assert.Equal(t, "2", snap[EnvOMPThreads])
	assert.Equal(t, "true", snap[EnvTokenizersParallelism])
	assert.Equal(t, "8", snap[EnvMKLThreads])
}

func TestApply_Idempotent(t *testing.T) {
	env := NewMapEnv(map[string]string{EnvMKLThreads: "3"})
	tn := New(env)

	first, err := tn.Apply(testPlan(8))
	require.NoError(t, err)
	after := env.Snapshot()

	second, err := tn.Apply(testPlan(8))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, after, env.Snapshot())
}

func TestApply_DifferentPlanRejected(t *testing.T) {
	env := NewMapEnv(nil)
	tn := New(env)

	_, err := tn.Apply(testPlan(8))
	require.NoError(t, err)
	before := env.Snapshot()

	_, err = tn.Apply(testPlan(2))
	assert.ErrorIs(t, err, ErrAlreadyApplied)
	assert.Equal(t, before, env.Snapshot())
}

func TestProcess_Singleton(t *testing.T) {
	assert.Same(t, Process(), Process())
}

func TestProcessEnv(t *testing.T) {
	t.Setenv("ACETUNE_TEST_KNOB", "")
	env := ProcessEnv{}

	require.NoError(t, env.Set("ACETUNE_TEST_KNOB", "7"))
	v, ok := env.Lookup("ACETUNE_TEST_KNOB")
	assert.True(t, ok)
	assert.Equal(t, "7", v)
}

func TestDotenvRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acetune.env")
	plan := testPlan(6)

	require.NoError(t, WriteFile(plan, path))

	env := NewMapEnv(map[string]string{EnvOMPThreads: "1"})
	set, err := LoadFile(env, path)
	require.NoError(t, err)

	assert.NotContains(t, set, EnvOMPThreads)
	snap := env.Snapshot()
	assert.Equal(t, "1", snap[EnvOMPThreads], "explicit value wins over file")
	assert.Equal(t, "6", snap[EnvMKLThreads])
	assert.Equal(t, "0.0", snap[EnvMPSHighWatermark])
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(NewMapEnv(nil), filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestMarshal(t *testing.T) {
	out, err := Marshal(testPlan(4))
	require.NoError(t, err)

	assert.Contains(t, out, `OMP_NUM_THREADS=4`)
	assert.Contains(t, out, `TOKENIZERS_PARALLELISM="false"`)

	path := filepath.Join(t.TempDir(), "plan.env")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))
	env := NewMapEnv(nil)
	_, err = LoadFile(env, path)
	require.NoError(t, err)
	assert.Equal(t, "4", env.Snapshot()[EnvOMPThreads])
}

// flakyEnv fails to set one key until cleared.
type flakyEnv struct {
	*MapEnv
	failOn string
}

func (f *flakyEnv) Set(key, value string) error {
	if key == f.failOn {
		return errors.New("environment is read-only")
	}
	return f.MapEnv.Set(key, value)
}

func TestApply_FailureRollsBack(t *testing.T) {
	env := &flakyEnv{MapEnv: NewMapEnv(map[string]string{EnvOMPThreads: "2"}), failOn: EnvTokenizersParallelism}
	tn := New(env)
	plan := testPlan(4)

	_, err := tn.Apply(plan)
	require.Error(t, err)
	assert.False(t, tn.Applied())
	assert.Equal(t, map[string]string{EnvOMPThreads: "2"}, env.Snapshot(), "only the preset value survives")

	env.failOn = ""
	res, err := tn.Apply(plan)
	require.NoError(t, err)
	assert.Equal(t, []string{EnvOMPThreads}, res.Skipped)
	assert.Len(t, res.Set, 7)
}

func TestEffective(t *testing.T) {
	plan := testPlan(4)
	env := NewMapEnv(map[string]string{EnvOMPThreads: "2", "HOME": "/home/me"})

	got := Effective(env, plan)
	assert.Equal(t, "2", got[EnvOMPThreads])
	assert.Equal(t, "4", got[EnvMKLThreads])
	assert.NotContains(t, got, "HOME")
	assert.Equal(t, plan.Vars(), Effective(nil, plan))
}

func TestSnapshotProcess(t *testing.T) {
	t.Setenv("ACETUNE_TEST_MARKER", "a=b")

	snap := SnapshotProcess()
	v, ok := snap.Lookup("ACETUNE_TEST_MARKER")
	require.True(t, ok)
	assert.Equal(t, "a=b", v)

	require.NoError(t, snap.Set("ACETUNE_TEST_MARKER", "changed"))
	assert.Equal(t, "a=b", os.Getenv("ACETUNE_TEST_MARKER"))
	assert.Contains(t, snap.Environ(), "ACETUNE_TEST_MARKER=changed")
}

func TestMapEnv_Environ(t *testing.T) {
	env := NewMapEnv(map[string]string{"B": "2", "A": "1"})
	assert.Equal(t, []string{"A=1", "B=2"}, env.Environ())

	require.NoError(t, env.Unset("A"))
	assert.Equal(t, []string{"B=2"}, env.Environ())
}
