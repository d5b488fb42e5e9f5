package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompress_BeforeEnter(t *testing.T) {
	ws, proc, _ := newTestWorkspace(t)
	_, err := ws.Compress()
	require.ErrorIs(t, err, ErrWorkspaceNotCreated)
	require.NoFileExists(t, filepath.Join(proc.cwd, "workspace.tar.gz"))
}

func TestCompress_WhileActive(t *testing.T) {
	ws, proc, _ := newTestWorkspace(t)
	require.NoError(t, ws.Enter())
	_, err := ws.Compress()
	require.ErrorIs(t, err, ErrWorkspaceActive)
	require.NoFileExists(t, filepath.Join(proc.cwd, "workspace.tar.gz"))
}

func TestCompress_ArchivesTreeRelativeToTop(t *testing.T) {
	ws, _, _ := newTestWorkspace(t)
	require.NoError(t, ws.Enter())
	ctx := context.Background()

	var testDir string
	require.NoError(t, ws.WithTestDirectory(ctx, "a", func(_ context.Context, dir string) error {
		writeFile(t, filepath.Join(dir, "script.sh"), "echo hi\n")
		return os.Symlink("script.sh", filepath.Join(dir, "run.sh"))
	}, func(td *TestDirectory) error {
		testDir = filepath.Base(td.Path())
		writeFile(t, filepath.Join(td.LogPath(), "test_output.log"), "hi\n")
		return nil
	}))
	require.NoError(t, ws.Exit(ctx))

	entries := archiveEntries(t, ws.CompressedWorkspace())
	prefix := "workspace/" + testDir + "/"
	require.Equal(t, map[string]string{
		"workspace/":                    "",
		prefix:                          "",
		prefix + "artifacts/":           "",
		prefix + "logs/":                "",
		prefix + "logs/test_output.log": "hi\n",
		prefix + "run.sh":               "-> script.sh",
		prefix + "script.sh":            "echo hi\n",
	}, entries)
	for name := range entries {
		require.False(t, filepath.IsAbs(name), name)
	}
}

func TestCompress_Idempotent(t *testing.T) {
	ws, _, area := newTestWorkspace(t)
	require.NoError(t, ws.Enter())
	require.NoError(t, ws.Exit(context.Background()))

	first := ws.CompressedWorkspace()
	info, err := os.Stat(first)
	require.NoError(t, err)

	second, err := ws.Compress()
	require.NoError(t, err)
	require.Equal(t, first, second)

	again, err := os.Stat(second)
	require.NoError(t, err)
	require.Equal(t, info.ModTime(), again.ModTime(), "archive is not rewritten")
	require.Len(t, area.calls, 3, "compressing again uploads nothing")

	matches, err := filepath.Glob(filepath.Join(ws.TopDir(), "*.tar.gz"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestCompress_RetryAfterFailure(t *testing.T) {
	ws, proc, _ := newTestWorkspace(t)
	blocker := filepath.Join(proc.cwd, "workspace.tar.gz")
	require.NoError(t, os.MkdirAll(blocker, 0o750))
	require.NoError(t, ws.Enter())
	require.Error(t, ws.Exit(context.Background()))
	require.DirExists(t, blocker, "a pre-existing path is left alone")

	require.NoError(t, os.Remove(blocker))
	archive, err := ws.Compress()
	require.NoError(t, err)
	require.FileExists(t, archive)
}
