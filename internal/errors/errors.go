// Package errors provides the structured error types shared by the compile
// pipeline and the tooling around it.
//
// Parse failures are reported as *CompileError values carrying a kind, a
// stable code and the source location. Batch builds collect per-document
// failures as BuildError values in a race-safe ErrorCollector.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// BuildError represents a failed document in a batch build.
type BuildError struct {
	Document  string        `json:"document" yaml:"document"`
	File      string        `json:"file" yaml:"file"`
	Line      int           `json:"line" yaml:"line"`
	Column    int           `json:"column" yaml:"column"`
	Code      string        `json:"code,omitempty" yaml:"code,omitempty"`
	Message   string        `json:"message" yaml:"message"`
	Severity  ErrorSeverity `json:"severity" yaml:"severity"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
}

// ErrorSeverity ranks a build failure. Read and write failures are fatal;
// markup errors are plain errors.
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityFatal
)

var severityNames = [...]string{"info", "warning", "error", "fatal"}

func (s ErrorSeverity) String() string {
	if s < ErrorSeverityInfo || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

// MarshalText encodes the severity by name.
func (s ErrorSeverity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Error implements the error interface
func (be *BuildError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", be.File, be.Line, be.Column, be.Severity, be.Message)
}

// NewBuildError converts err into a BuildError for the given document.
func NewBuildError(document, file string, err error) BuildError {
	be := BuildError{
		Document: document,
		File:     file,
		Message:  err.Error(),
		Severity: ErrorSeverityError,
	}

	var ce *CompileError
	if errors.As(err, &ce) {
		be.Line = ce.Line
		be.Column = ce.Column
		be.Code = ce.Code
		be.Message = ce.Message
		if ce.Kind == KindIO || ce.Kind == KindInternal {
			be.Severity = ErrorSeverityFatal
		}
	}

	return be
}

// ErrorCollector holds the latest failures of a build, grouped by source
// file. It is safe for concurrent use.
type ErrorCollector struct {
	mu     sync.RWMutex
	byFile map[string][]BuildError
	count  int
}

// NewErrorCollector creates an empty collector.
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{byFile: make(map[string][]BuildError)}
}

// Add records err, stamping it with the current time.
func (ec *ErrorCollector) Add(err BuildError) {
	err.Timestamp = time.Now()

	ec.mu.Lock()
	ec.byFile[err.File] = append(ec.byFile[err.File], err)
	ec.count++
	ec.mu.Unlock()
}

// Len returns the number of recorded errors.
func (ec *ErrorCollector) Len() int {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return ec.count
}

// HasErrors reports whether any error is recorded.
func (ec *ErrorCollector) HasErrors() bool {
	return ec.Len() > 0
}

// GetErrors returns every recorded error ordered by file and position.
func (ec *ErrorCollector) GetErrors() []BuildError {
	ec.mu.RLock()
	all := make([]BuildError, 0, ec.count)
	for _, errs := range ec.byFile {
		all = append(all, errs...)
	}
	ec.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return all
}

// GetErrorsByFile returns the errors of one source file in the order they
// were added.
func (ec *ErrorCollector) GetErrorsByFile(file string) []BuildError {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return append([]BuildError(nil), ec.byFile[file]...)
}

// GetErrorsByDocument returns the errors recorded under a document name.
func (ec *ErrorCollector) GetErrorsByDocument(document string) []BuildError {
	var matched []BuildError
	for _, err := range ec.GetErrors() {
		if err.Document == document {
			matched = append(matched, err)
		}
	}
	return matched
}

// ClearFile forgets the errors of file. The build pipeline calls it before
// rebuilding a document so that only current failures remain.
func (ec *ErrorCollector) ClearFile(file string) {
	ec.mu.Lock()
	ec.count -= len(ec.byFile[file])
	delete(ec.byFile, file)
	ec.mu.Unlock()
}

// Clear forgets everything.
func (ec *ErrorCollector) Clear() {
	ec.mu.Lock()
	ec.byFile = make(map[string][]BuildError)
	ec.count = 0
	ec.mu.Unlock()
}

// Summary renders the recorded errors one per line, ordered by file and
// position. It is empty when nothing is recorded.
func (ec *ErrorCollector) Summary() string {
	var b strings.Builder
	for _, err := range ec.GetErrors() {
		b.WriteString(err.Error())
		b.WriteByte('\n')
	}
	return b.String()
}
