package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/conneroisu/wxjsx/internal/build"
	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/version"
)

// maxSourceSize bounds the body of a compile request.
const maxSourceSize = 1 << 20

// CompileRequest is the body of POST /api/compile.
type CompileRequest struct {
	Source string `json:"source"`
}

// CompileResponse carries either the output or the failure and its location.
type CompileResponse struct {
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// DocumentInfo describes a registered document.
type DocumentInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Hash    string    `json:"hash"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Output  string    `json:"output,omitempty"`
	Error   string    `json:"error,omitempty"`
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CompileRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxSourceSize))
	if err := decoder.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	output, err := s.compiler.Compile(r.Context(), req.Source)
	if err != nil {
		resp := CompileResponse{Error: err.Error()}
		if ce, ok := errors.AsCompileError(err); ok {
			resp.Error = ce.Message
			resp.Code = ce.Code
			resp.Line, resp.Column = ce.Line, ce.Column
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	writeJSON(w, http.StatusOK, CompileResponse{Output: output})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	errs := s.orch.Pipeline().Errors()
	docs := s.orch.Registry().List()
	infos := make([]DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		info := DocumentInfo{
			Name:    doc.Name,
			Path:    doc.Path,
			Hash:    doc.Hash,
			Size:    doc.Size,
			ModTime: doc.ModTime,
			Output:  s.orch.Pipeline().OutputPath(doc),
		}
		if failures := errs.GetErrorsByFile(doc.Path); len(failures) > 0 {
			info.Error = failures[0].Error()
		}
		infos = append(infos, info)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": infos,
		"count":     len(infos),
	})
}

func (s *Server) handleBuildStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	pipeline := s.orch.Pipeline()
	failures := pipeline.Errors().GetErrors()
	cache := pipeline.Cache().Stats()

	status := "healthy"
	if len(failures) > 0 {
		status = "error"
	}

	writeJSON(w, http.StatusOK, struct {
		Status  string                `json:"status"`
		Metrics build.MetricsSnapshot `json:"metrics"`
		Cache   build.CacheStats      `json:"cache"`
		HitRate float64               `json:"cache_hit_rate"`
		Errors  []errors.BuildError   `json:"errors"`
	}{
		Status:  status,
		Metrics: pipeline.GetMetrics(),
		Cache:   cache,
		HitRate: cache.HitRate(),
		Errors:  failures,
	})
}

// handleHealth returns the server health status for health checks
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.Get().Short(),
		"documents": s.orch.Registry().Count(),
		"clients":   s.hub.ClientCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
