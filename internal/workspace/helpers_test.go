package workspace

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/testrunner/internal/logarea"
)

// fakeProcess keeps the working directory and environment in memory.
type fakeProcess struct {
	cwd    string
	env    map[string]string
	chdirs []string
}

func newFakeProcess(cwd string) *fakeProcess {
	return &fakeProcess{cwd: cwd, env: map[string]string{}}
}

func (p *fakeProcess) Getwd() (string, error) { return p.cwd, nil }

func (p *fakeProcess) Chdir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("chdir %s: not a directory", dir)
	}
	p.cwd = dir
	p.chdirs = append(p.chdirs, dir)
	return nil
}

func (p *fakeProcess) Setenv(key, value string) error {
	p.env[key] = value
	return nil
}

func (p *fakeProcess) Unsetenv(key string) error {
	delete(p.env, key)
	return nil
}

func (p *fakeProcess) lookup(key string) (string, bool) {
	v, ok := p.env[key]
	return v, ok
}

type areaCall struct {
	Kind  logarea.Kind
	Files []logarea.Descriptor
}

// fakeArea records uploads. Collect walks the real filesystem.
type fakeArea struct {
	calls      []areaCall
	collected  []string
	uploadErrs map[logarea.Kind]error
	collectErr error
}

func (a *fakeArea) Collect(path string) ([]logarea.Descriptor, error) {
	a.collected = append(a.collected, path)
	if a.collectErr != nil {
		return nil, a.collectErr
	}
	return logarea.Collect(path)
}

func (a *fakeArea) UploadLogs(_ context.Context, files []logarea.Descriptor) error {
	a.calls = append(a.calls, areaCall{Kind: logarea.KindLogs, Files: files})
	return a.uploadErrs[logarea.KindLogs]
}

func (a *fakeArea) UploadArtifacts(_ context.Context, files []logarea.Descriptor) error {
	a.calls = append(a.calls, areaCall{Kind: logarea.KindArtifacts, Files: files})
	return a.uploadErrs[logarea.KindArtifacts]
}

func (a *fakeArea) names(i int) []string {
	out := []string{}
	for _, f := range a.calls[i].Files {
		out = append(out, f.Name)
	}
	return out
}

// newTestWorkspace returns a workspace rooted at a fresh temp dir with an in-memory process.
func newTestWorkspace(t *testing.T, opts ...Option) (*Workspace, *fakeProcess, *fakeArea) {
	t.Helper()
	top := t.TempDir()
	proc := newFakeProcess(top)
	area := &fakeArea{}
	ws, err := New(area, append([]Option{WithProcess(proc)}, opts...)...)
	require.NoError(t, err)
	return ws, proc, area
}

func archiveEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	// #nosec G304 - test archive
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	entries := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		switch hdr.Typeflag {
		case tar.TypeReg:
			data, err := io.ReadAll(tr)
			require.NoError(t, err)
			entries[hdr.Name] = string(data)
		case tar.TypeSymlink:
			entries[hdr.Name] = "-> " + hdr.Linkname
		default:
			entries[hdr.Name] = ""
		}
	}
	return entries
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
