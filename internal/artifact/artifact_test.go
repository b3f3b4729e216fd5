package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "model.json"), []byte(`{"trees":[]}`), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	repo, err := NewDir(root)
	require.NoError(t, err)

	t.Run("get existing", func(t *testing.T) {
		t.Parallel()
		data, err := repo.Get("model.json")
		require.NoError(t, err)
		assert.Equal(t, `{"trees":[]}`, string(data))
	})

	t.Run("get missing", func(t *testing.T) {
		t.Parallel()
		_, err := repo.Get("nope.json")
		assert.Error(t, err)
	})

	t.Run("exists", func(t *testing.T) {
		t.Parallel()
		assert.True(t, repo.Exists("model.json"))
		assert.False(t, repo.Exists("nope.json"))
		assert.False(t, repo.Exists("sub"), "directories are not artifacts")
	})
}

func TestNewDir_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewDir("/nonexistent/artifact/dir")
	assert.Error(t, err)

	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	_, err = NewDir(f)
	assert.Error(t, err)
}
