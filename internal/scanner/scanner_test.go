package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/wxjsx/internal/registry"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func names(reg *registry.DocumentRegistry) []string {
	var out []string
	for _, doc := range reg.List() {
		out = append(out, doc.Name)
	}
	return out
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.wxml"), "<view/>")
	writeFile(t, filepath.Join(dir, "pages", "detail.wxml"), "<text/>")
	writeFile(t, filepath.Join(dir, "pages", "detail.jsx"), "<Text/>")
	writeFile(t, filepath.Join(dir, "pages", "old.wxml.bak"), "<x/>")
	writeFile(t, filepath.Join(dir, "pages", "UPPER.WXML"), "<x/>")
	writeFile(t, filepath.Join(dir, "node_modules", "dep", "a.wxml"), "<x/>")
	writeFile(t, filepath.Join(dir, ".git", "b.wxml"), "<x/>")
	writeFile(t, filepath.Join(dir, "pages", "draft_test.wxml"), "<x/>")

	reg := registry.NewDocumentRegistry()
	s := NewDocumentScanner(reg, Options{Exclude: []string{"*_test.wxml"}})

	require.NoError(t, s.ScanDirectory(dir))
	assert.Equal(t, []string{"index.wxml", "pages/UPPER.WXML", "pages/detail.wxml"}, names(reg))

	doc, ok := reg.Get(filepath.Join(dir, "index.wxml"))
	require.True(t, ok)
	assert.Equal(t, Hash([]byte("<view/>")), doc.Hash)
	assert.Equal(t, int64(7), doc.Size)
	assert.Equal(t, filepath.Clean(dir), doc.Root)
}

func TestRescanOnlyReportsChanges(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "index.wxml")
	other := filepath.Join(dir, "other.wxml")
	writeFile(t, index, "<view/>")
	writeFile(t, other, "<view/>")

	reg := registry.NewDocumentRegistry()
	s := NewDocumentScanner(reg, Options{})
	require.NoError(t, s.ScanDirectory(dir))

	events := reg.Watch()
	require.NoError(t, s.ScanDirectory(dir))
	assert.Len(t, events, 0)

	writeFile(t, index, "<view></view>")
	require.NoError(t, os.Remove(other))
	require.NoError(t, s.ScanDirectory(dir))

	require.Len(t, events, 2)
	got := map[registry.EventType]string{}
	for i := 0; i < 2; i++ {
		e := <-events
		got[e.Type] = e.Document.Path
	}
	assert.Equal(t, index, got[registry.EventTypeUpdated])
	assert.Equal(t, other, got[registry.EventTypeRemoved])
}

func TestScanDirectoryUsesWorkers(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 40; i++ {
		writeFile(t, filepath.Join(dir, fmt.Sprintf("d%02d.wxml", i)), fmt.Sprintf("<v%d/>", i))
	}

	reg := registry.NewDocumentRegistry()
	s := NewDocumentScanner(reg, Options{Workers: 4})
	require.NoError(t, s.ScanDirectory(dir))
	assert.Equal(t, 40, reg.Count())
}

func TestScanDirectoryErrors(t *testing.T) {
	s := NewDocumentScanner(registry.NewDocumentRegistry(), Options{})

	assert.Error(t, s.ScanDirectory("../outside"))
	assert.Error(t, s.ScanDirectory(""))
	assert.Error(t, s.ScanDirectory(filepath.Join(t.TempDir(), "missing")))
}

func TestScanFileAndRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pages", "a.wxml")
	writeFile(t, path, "<a/>")

	reg := registry.NewDocumentRegistry()
	s := NewDocumentScanner(reg, Options{})

	require.NoError(t, s.ScanFile(dir, path))
	doc, ok := reg.Get(path)
	require.True(t, ok)
	assert.Equal(t, "pages/a.wxml", doc.Name)

	s.RemoveFile(path)
	assert.Equal(t, 0, reg.Count())

	require.NoError(t, s.ScanFile("", path))
	doc, ok = reg.Get(path)
	require.True(t, ok)
	assert.Equal(t, "a.wxml", doc.Name)

	err := s.ScanFile(dir, filepath.Join(dir, "missing.wxml"))
	assert.Error(t, err)
}

func TestCustomExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.wxml"), "<a/>")
	writeFile(t, filepath.Join(dir, "b.qml"), "<b/>")

	reg := registry.NewDocumentRegistry()
	s := NewDocumentScanner(reg, Options{Extension: ".qml"})
	require.NoError(t, s.ScanDirectory(dir))
	assert.Equal(t, []string{"b.qml"}, names(reg))
	assert.Equal(t, ".qml", s.Extension())
}

func TestExcluded(t *testing.T) {
	s := NewDocumentScanner(registry.NewDocumentRegistry(), Options{
		Exclude: []string{"*.bak", "drafts/*", "skip.wxml"},
	})

	tests := map[string]bool{
		"a.wxml":            false,
		"a.bak":             true,
		"drafts/x.wxml":     true,
		"pages/skip.wxml":   true,
		"pages/drafts.wxml": false,
	}
	for rel, want := range tests {
		assert.Equal(t, want, s.Excluded(rel), rel)
	}
}

func TestHash(t *testing.T) {
	assert.Equal(t, Hash([]byte("abc")), Hash([]byte("abc")))
	assert.NotEqual(t, Hash([]byte("abc")), Hash([]byte("abd")))
	assert.Len(t, Hash(nil), 8)
	// CRC32-C check value.
	assert.Equal(t, "e3069283", Hash([]byte("123456789")))
}
