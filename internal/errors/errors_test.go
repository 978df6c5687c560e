package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorSeverityString(t *testing.T) {
	testCases := []struct {
		severity ErrorSeverity
		expected string
	}{
		{ErrorSeverityInfo, "info"},
		{ErrorSeverityWarning, "warning"},
		{ErrorSeverityError, "error"},
		{ErrorSeverityFatal, "fatal"},
		{ErrorSeverity(999), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.severity.String())
		})
	}
}

func TestCompileErrorMessage(t *testing.T) {
	err := NewExpected(CodeMissingBracket, "'>' to close <view>").WithLocation(1, 18, 17)

	assert.Equal(t, "[MISSING_GT] 1:18 expected '>' to close <view>", err.Error())

	err.WithFile("page.wxml")
	assert.Equal(t, "[MISSING_GT] page.wxml:1:18 expected '>' to close <view>", err.Error())
}

func TestCompileErrorIs(t *testing.T) {
	err := NewUnexpectedEOF("attribute value").WithLocation(2, 3, 10)

	assert.ErrorIs(t, err, &CompileError{Kind: KindUnexpectedEOF, Code: CodeTruncated})
	assert.NotErrorIs(t, err, ErrEndOfInput)
	assert.ErrorIs(t, ErrEndOfInput, &CompileError{Kind: KindEndOfInput, Code: CodeEndOfInput})
}

func TestKindHelpers(t *testing.T) {
	truncated := NewUnexpectedEOF("tag")
	wrapped := fmt.Errorf("compiling: %w", truncated)

	assert.True(t, IsKind(wrapped, KindUnexpectedEOF))
	assert.True(t, IsParseError(wrapped))
	assert.False(t, IsEndOfInput(wrapped))
	assert.True(t, IsEndOfInput(ErrEndOfInput))
	assert.False(t, IsParseError(NewIOError(CodeReadFailed, "read", io.EOF)))
	assert.False(t, IsParseError(io.EOF))
}

func TestLocationOf(t *testing.T) {
	line, col, ok := LocationOf(NewUnexpected(CodeBadCharacter, "'.'").WithLocation(4, 9, 30))
	require.True(t, ok)
	assert.Equal(t, 4, line)
	assert.Equal(t, 9, col)

	_, _, ok = LocationOf(io.EOF)
	assert.False(t, ok)
}

func TestWrapKeepsLocation(t *testing.T) {
	inner := NewExpected(CodeMissingEquals, "'='").WithLocation(3, 7, 21)
	outer := Wrap(inner, KindIO, CodeReadFailed, "compile page.wxml")

	require.NotNil(t, outer)
	assert.Equal(t, 3, outer.Line)
	assert.Equal(t, 7, outer.Column)
	assert.Equal(t, inner, Root(outer))
	assert.Nil(t, Wrap(nil, KindIO, CodeReadFailed, "noop"))
}

func TestFields(t *testing.T) {
	err := NewExpected(CodeMissingQuote, "quote").WithLocation(1, 2, 1).WithFile("a.wxml")
	fields := Fields(err)

	assert.Equal(t, []interface{}{
		"error_kind", "expected_token",
		"error_code", CodeMissingQuote,
		"file", "a.wxml",
		"line", 1, "column", 2,
	}, fields)
}

func TestCombineErrors(t *testing.T) {
	assert.NoError(t, CombineErrors(nil, nil))

	single := NewConfigError("bad", nil)
	assert.Equal(t, single, CombineErrors(nil, single))

	combined := CombineErrors(single, io.EOF)
	require.Error(t, combined)
	assert.Contains(t, combined.Error(), "2 errors occurred")
	assert.ErrorIs(t, combined, io.EOF)
}

func TestNewBuildError(t *testing.T) {
	err := NewExpected(CodeMissingBracket, "'>'").WithLocation(1, 18, 17)
	be := NewBuildError("index", "pages/index.wxml", err)

	assert.Equal(t, "index", be.Document)
	assert.Equal(t, 1, be.Line)
	assert.Equal(t, 18, be.Column)
	assert.Equal(t, CodeMissingBracket, be.Code)
	assert.Equal(t, ErrorSeverityError, be.Severity)

	ioErr := NewBuildError("index", "pages/index.wxml", NewIOError(CodeReadFailed, "read", io.EOF))
	assert.Equal(t, ErrorSeverityFatal, ioErr.Severity)
}

func TestBuildErrorError(t *testing.T) {
	err := BuildError{
		Document:  "index",
		File:      "index.wxml",
		Line:      10,
		Column:    5,
		Message:   "expected '='",
		Severity:  ErrorSeverityError,
		Timestamp: time.Now(),
	}

	assert.Equal(t, "index.wxml:10:5: error: expected '='", err.Error())
}

func TestNewErrorCollector(t *testing.T) {
	collector := NewErrorCollector()

	assert.NotNil(t, collector)
	assert.Zero(t, collector.Len())
	assert.False(t, collector.HasErrors())
	assert.Empty(t, collector.Summary())
}

func TestErrorCollectorAdd(t *testing.T) {
	collector := NewErrorCollector()

	before := time.Now()
	collector.Add(BuildError{Document: "index", File: "index.wxml", Line: 1, Column: 1, Message: "boom"})
	after := time.Now()

	require.True(t, collector.HasErrors())
	errs := collector.GetErrors()
	require.Len(t, errs, 1)
	assert.True(t, !errs[0].Timestamp.Before(before) && !errs[0].Timestamp.After(after))
}

func TestErrorCollectorFiltering(t *testing.T) {
	collector := NewErrorCollector()
	collector.Add(BuildError{Document: "a", File: "a.wxml", Line: 2, Message: "x", Severity: ErrorSeverityError})
	collector.Add(BuildError{Document: "b", File: "b.wxml", Line: 1, Message: "y", Severity: ErrorSeverityError})
	collector.Add(BuildError{Document: "a", File: "a.wxml", Line: 1, Message: "z", Severity: ErrorSeverityWarning})

	byFile := collector.GetErrorsByFile("a.wxml")
	require.Len(t, byFile, 2)
	assert.Equal(t, "x", byFile[0].Message, "per-file errors keep insertion order")
	assert.Len(t, collector.GetErrorsByDocument("b"), 1)
	assert.Equal(t, 3, collector.Len())

	all := collector.GetErrors()
	require.Len(t, all, 3)
	assert.Equal(t, "z", all[0].Message)

	summary := collector.Summary()
	assert.Equal(t, "a.wxml:1:0: warning: z\na.wxml:2:0: error: x\nb.wxml:1:0: error: y\n", summary)

	collector.ClearFile("a.wxml")
	assert.Empty(t, collector.GetErrorsByFile("a.wxml"))
	assert.Len(t, collector.GetErrors(), 1)
	assert.Equal(t, 1, collector.Len())
	collector.ClearFile("missing.wxml")
	assert.Equal(t, 1, collector.Len())

	collector.Clear()
	assert.False(t, collector.HasErrors())
}

func TestErrorCollectorConcurrency(t *testing.T) {
	collector := NewErrorCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				collector.Add(BuildError{
					Document: fmt.Sprintf("doc_%d", id),
					File:     fmt.Sprintf("doc_%d.wxml", id),
					Line:     j + 1,
				})
				_ = collector.GetErrors()
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, collector.GetErrors(), 100)
}

func TestAsCompileError(t *testing.T) {
	inner := NewExpected(CodeMissingQuote, "quote").WithLocation(2, 3, 9)
	wrapped := fmt.Errorf("compiling: %w", inner)

	ce, ok := AsCompileError(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, ce)

	_, ok = AsCompileError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestBuildErrorJSON(t *testing.T) {
	be := NewBuildError("a.wxml", "src/a.wxml", NewUnexpectedEOF("document").WithLocation(1, 4, 3))

	data, err := json.Marshal(be)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"severity":"error"`)
	assert.Contains(t, string(data), `"code":"TRUNCATED"`)
	assert.Contains(t, string(data), `"line":1`)
}
