package logarea

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollect_WalksRegularFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deeper"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.log"), []byte("b"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "a.txt"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "deeper", "c.bin"), []byte("c"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o750))

	files, err := Collect(root)
	require.NoError(t, err)
	require.Equal(t, []Descriptor{
		{Name: "b.log", File: filepath.Join(root, "b.log")},
		{Name: "sub/a.txt", File: filepath.Join(root, "sub", "a.txt")},
		{Name: "sub/deeper/c.bin", File: filepath.Join(root, "sub", "deeper", "c.bin")},
	}, files)
}

func TestCollect_MissingDirectoryIsEmpty(t *testing.T) {
	files, err := Collect(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	require.NotNil(t, files)
	require.Empty(t, files)
}

func TestCollect_RelativeRoot(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)
	require.NoError(t, os.MkdirAll("logs", 0o750))
	require.NoError(t, os.WriteFile(filepath.Join("logs", "x.log"), []byte("x"), 0o600))

	files, err := Collect("logs")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "x.log", files[0].Name)
	require.True(t, filepath.IsAbs(files[0].File))
}
