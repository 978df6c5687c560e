// Package testutils holds fixtures shared by package and integration tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/wxjsx/internal/config"
)

// WriteFiles creates every file under dir. Names are slash separated and
// parent directories are created as needed.
func WriteFiles(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// Project is a temporary source tree with an output directory beside it.
type Project struct {
	Root   string
	Src    string
	Out    string
	Config *config.Config
}

// NewProject writes files below a fresh src directory and returns a Config
// that builds it into dist with a short debounce and two workers.
func NewProject(t testing.TB, files map[string]string) *Project {
	t.Helper()
	root := t.TempDir()
	p := &Project{
		Root: root,
		Src:  filepath.Join(root, "src"),
		Out:  filepath.Join(root, "dist"),
	}
	require.NoError(t, os.MkdirAll(p.Src, 0o755))
	WriteFiles(t, p.Src, files)

	cfg := config.Default()
	cfg.Build.SourceDirs = []string{p.Src}
	cfg.Build.OutDir = p.Out
	cfg.Build.Workers = 2
	cfg.Watch.Debounce = 20 * time.Millisecond
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	p.Config = cfg
	return p
}

// SourcePath returns the absolute path of a source document.
func (p *Project) SourcePath(name string) string {
	return filepath.Join(p.Src, filepath.FromSlash(name))
}

// OutputPath returns the absolute path of a generated file.
func (p *Project) OutputPath(name string) string {
	return filepath.Join(p.Out, filepath.FromSlash(name))
}

// Write creates or replaces a source document.
func (p *Project) Write(t testing.TB, name, content string) {
	t.Helper()
	WriteFiles(t, p.Src, map[string]string{name: content})
}

// Remove deletes a source document.
func (p *Project) Remove(t testing.TB, name string) {
	t.Helper()
	require.NoError(t, os.Remove(p.SourcePath(name)))
}

// Output returns the generated file for name, or "" if it does not exist.
func (p *Project) Output(name string) string {
	data, err := os.ReadFile(p.OutputPath(name))
	if err != nil {
		return ""
	}
	return string(data)
}

// WaitForOutput waits until the generated file for name holds want.
func (p *Project) WaitForOutput(t testing.TB, name, want string, timeout time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool { return p.Output(name) == want }, timeout, 10*time.Millisecond,
		"output %s never became %q (last %q)", name, want, p.Output(name))
}
