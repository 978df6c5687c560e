// Package scanner discovers markup documents on disk and records them in the
// document registry.
//
// ScanDirectory walks a source tree, skipping excluded names and VCS or
// dependency directories, and hashes every document with CRC32 (Castagnoli)
// so unchanged files do not produce registry events on rescans. Large batches
// are read by a bounded set of workers.
package scanner

import (
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/registry"
	"github.com/conneroisu/wxjsx/internal/validation"
)

// DefaultExtension is the source document extension.
const DefaultExtension = ".wxml"

// syncThreshold is the batch size below which files are read on the calling
// goroutine.
const syncThreshold = 5

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
}

// Options configures what the scanner picks up.
type Options struct {
	// Extension selects source files, DefaultExtension when empty.
	Extension string
	// Exclude holds filepath.Match patterns tested against the base name and
	// the slash separated path relative to the scanned directory.
	Exclude []string
	// Workers bounds concurrent reads; runtime.NumCPU() (capped at 8) when
	// zero.
	Workers int
}

// ScanResult is the outcome of scanning one file.
type ScanResult struct {
	Path string
	Err  error
}

// DocumentScanner discovers documents and registers them.
type DocumentScanner struct {
	registry *registry.DocumentRegistry
	opts     Options
}

// NewDocumentScanner creates a scanner feeding reg.
func NewDocumentScanner(reg *registry.DocumentRegistry, opts Options) *DocumentScanner {
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
		if opts.Workers > 8 {
			opts.Workers = 8
		}
	}
	return &DocumentScanner{registry: reg, opts: opts}
}

// GetRegistry returns the document registry
func (s *DocumentScanner) GetRegistry() *registry.DocumentRegistry {
	return s.registry
}

// Extension returns the source extension the scanner accepts.
func (s *DocumentScanner) Extension() string {
	return s.opts.Extension
}

// IsSource reports whether path has the source extension.
func (s *DocumentScanner) IsSource(path string) bool {
	return strings.EqualFold(filepath.Ext(path), s.opts.Extension)
}

// ScanDirectory registers every source document under dir. Documents that
// were registered from dir earlier but no longer exist are removed.
func (s *DocumentScanner) ScanDirectory(dir string) error {
	if err := validation.ValidatePath(dir); err != nil {
		return fmt.Errorf("invalid directory path: %w", err)
	}

	root := filepath.Clean(dir)
	files, err := s.collect(root)
	if err != nil {
		return errors.WrapIO(err, errors.CodeReadFailed, "failed to walk "+dir)
	}

	s.prune(root, files)

	return s.processBatch(root, files)
}

// ScanFile registers a single document. root is the source directory used
// to derive the document name; an empty root uses the file's directory.
func (s *DocumentScanner) ScanFile(root, path string) error {
	if err := validation.ValidatePath(path); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if root == "" {
		root = filepath.Dir(path)
	}
	return s.scanFile(filepath.Clean(root), filepath.Clean(path))
}

// RemoveFile drops a deleted document from the registry.
func (s *DocumentScanner) RemoveFile(path string) {
	s.registry.Remove(filepath.Clean(path))
}

// Excluded reports whether rel, a path relative to the scanned directory,
// matches one of the exclude patterns.
func (s *DocumentScanner) Excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	base := filepath.Base(rel)
	for _, pattern := range s.opts.Exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (s *DocumentScanner) collect(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.IsSource(path) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil || s.Excluded(rel) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

// prune removes documents registered under root that were not found.
func (s *DocumentScanner) prune(root string, found []string) {
	present := make(map[string]bool, len(found))
	for _, f := range found {
		present[f] = true
	}
	for path, doc := range s.registry.GetAll() {
		if doc.Root == root && !present[path] {
			s.registry.Remove(path)
		}
	}
}

func (s *DocumentScanner) processBatch(root string, files []string) error {
	if len(files) == 0 {
		return nil
	}

	if len(files) <= syncThreshold {
		var errs []error
		for _, file := range files {
			if err := s.scanFile(root, file); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.CombineErrors(errs...)
	}

	jobs := make(chan string)
	results := make(chan ScanResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				results <- ScanResult{Path: file, Err: s.scanFile(root, file)}
			}
		}()
	}

	for _, file := range files {
		jobs <- file
	}
	close(jobs)
	wg.Wait()
	close(results)

	var errs []error
	for result := range results {
		if result.Err != nil {
			errs = append(errs, result.Err)
		}
	}
	return errors.CombineErrors(errs...)
}

func (s *DocumentScanner) scanFile(root, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapIO(err, errors.CodeReadFailed, "failed to read document").WithFile(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return errors.WrapIO(err, errors.CodeReadFailed, "failed to stat document").WithFile(path)
	}

	name, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(name, "..") {
		name = filepath.Base(path)
	}

	s.registry.Register(&registry.Document{
		Name:    filepath.ToSlash(name),
		Path:    path,
		Root:    root,
		Hash:    Hash(content),
		ModTime: info.ModTime(),
		Size:    info.Size(),
	})
	return nil
}

// Hash returns the hex CRC32-Castagnoli checksum of content.
func Hash(content []byte) string {
	return fmt.Sprintf("%08x", crc32.Checksum(content, castagnoli))
}
