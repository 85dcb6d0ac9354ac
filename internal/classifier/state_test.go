package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBundle(t *testing.T, base, version string) {
	t.Helper()
	dir := filepath.Join(base, version)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultModelFile), []byte("onnx"), 0o644))
}

func TestResolveBundleDirUnversioned(t *testing.T) {
	base := t.TempDir()
	dir, version, err := ResolveBundleDir(base)
	require.NoError(t, err)
	assert.Equal(t, base, dir)
	assert.Empty(t, version)
}

func TestActivateAndRollback(t *testing.T) {
	base := t.TempDir()
	writeBundle(t, base, "v1")
	writeBundle(t, base, "v2")

	state, err := Activate(base, "v1")
	require.NoError(t, err)
	assert.Equal(t, BundleState{CurrentVersion: "v1"}, state)

	state, err = Activate(base, "v2")
	require.NoError(t, err)
	assert.Equal(t, BundleState{CurrentVersion: "v2", PreviousVersion: "v1"}, state)

	dir, version, err := ResolveBundleDir(base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "v2"), dir)
	assert.Equal(t, "v2", version)

	state, err = Rollback(base)
	require.NoError(t, err)
	assert.Equal(t, BundleState{CurrentVersion: "v1", PreviousVersion: "v2"}, state)

	loaded, err := LoadBundleState(base)
	require.NoError(t, err)
	assert.Equal(t, state, loaded)
}

func TestActivateMissingVersion(t *testing.T) {
	base := t.TempDir()
	_, err := Activate(base, "v9")
	assert.Error(t, err)
	_, err = Activate(base, " ")
	assert.Error(t, err)
}

func TestRollbackWithoutPrevious(t *testing.T) {
	base := t.TempDir()
	_, err := Rollback(base)
	require.ErrorIs(t, err, ErrBundleStateNotFound)

	writeBundle(t, base, "v1")
	_, err = Activate(base, "v1")
	require.NoError(t, err)
	_, err = Rollback(base)
	assert.Error(t, err)
}

func TestResolveBundleDirMissingVersion(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, SaveBundleState(base, BundleState{CurrentVersion: "gone"}))
	_, _, err := ResolveBundleDir(base)
	assert.Error(t, err)
}
