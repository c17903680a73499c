package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brunobiangulo/goldeneval"
	"github.com/brunobiangulo/goldeneval/eval"
	"github.com/brunobiangulo/goldeneval/loader"
	"github.com/brunobiangulo/goldeneval/metrics"
)

type handler struct {
	engine    goldeneval.Engine
	metrics   *metrics.Metrics
	maxUpload int64
}

func newHandler(e goldeneval.Engine, m *metrics.Metrics, maxUpload int64) *handler {
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &handler{engine: e, metrics: m, maxUpload: maxUpload}
}

// POST /evaluate
// Accepts multipart "golden" and "actual" files, or JSON with inline records.
func (h *handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if isMultipart(r) {
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			writeRequestError(w, err, "invalid multipart form")
			return
		}
		golden, goldenName, err := saveUpload(r, "golden")
		if err != nil {
			writeRequestError(w, err, "golden file is required")
			return
		}
		defer os.Remove(golden)
		actual, actualName, err := saveUpload(r, "actual")
		if err != nil {
			writeRequestError(w, err, "actual file is required")
			return
		}
		defer os.Remove(actual)

		report, err := h.engine.EvaluateFiles(ctx, golden, actual,
			goldeneval.WithNames(goldenName, actualName))
		if err != nil {
			writeEngineError(w, err, "evaluation failed")
			return
		}
		h.metrics.ObserveEvaluation("upload", report)
		writeJSON(w, http.StatusOK, report)
		return
	}

	var req struct {
		Golden     json.RawMessage `json:"golden"`
		Actual     json.RawMessage `json:"actual"`
		GoldenName string          `json:"golden_name,omitempty"`
		ActualName string          `json:"actual_name,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRequestError(w, err, "invalid request: expected multipart files or JSON with 'golden' and 'actual'")
		return
	}
	if len(req.Golden) == 0 {
		writeError(w, http.StatusBadRequest, "golden is required")
		return
	}

	golden, err := decodeRecords(req.Golden)
	if err != nil {
		writeError(w, http.StatusBadRequest, "golden: "+err.Error())
		return
	}
	actual, err := decodeRecords(req.Actual)
	if err != nil {
		writeError(w, http.StatusBadRequest, "actual: "+err.Error())
		return
	}

	report, err := h.engine.Evaluate(ctx, golden, actual, goldeneval.WithNames(req.GoldenName, req.ActualName))
	if err != nil {
		writeEngineError(w, err, "evaluation failed")
		return
	}
	h.metrics.ObserveEvaluation("inline", report)
	writeJSON(w, http.StatusOK, report)
}

// POST /datasets
// Accepts a multipart "file" with "name" and "kind" fields, or JSON with
// inline records.
func (h *handler) handleImportDataset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	var ds *goldeneval.Dataset

	if isMultipart(r) {
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			writeRequestError(w, err, "invalid multipart form")
			return
		}
		name := r.FormValue("name")
		if name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		path, _, err := saveUpload(r, "file")
		if err != nil {
			writeRequestError(w, err, "file is required")
			return
		}
		defer os.Remove(path)

		opts := importOptions(r.FormValue("description"), formBool(r.FormValue("force")))
		ds, err = h.engine.ImportDataset(ctx, name, kindOrDefault(r.FormValue("kind")), path, opts...)
		if err != nil {
			h.metrics.ObserveImport(kindOrDefault(r.FormValue("kind")), false, err)
			writeEngineError(w, err, "import failed")
			return
		}
	} else {
		var req struct {
			Name        string          `json:"name"`
			Kind        string          `json:"kind"`
			Records     json.RawMessage `json:"records"`
			Description string          `json:"description,omitempty"`
			Force       bool            `json:"force,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeRequestError(w, err, "invalid request: expected multipart file or JSON with 'name' and 'records'")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		records, err := decodeRecords(req.Records)
		if err != nil {
			writeError(w, http.StatusBadRequest, "records: "+err.Error())
			return
		}

		kind := kindOrDefault(req.Kind)
		ds, err = h.engine.ImportRecords(ctx, req.Name, kind, records, importOptions(req.Description, req.Force)...)
		if err != nil {
			h.metrics.ObserveImport(kind, false, err)
			writeEngineError(w, err, "import failed")
			return
		}
	}

	h.metrics.ObserveImport(ds.Kind, ds.Unchanged, nil)
	status := http.StatusCreated
	if ds.Unchanged {
		status = http.StatusOK
	}
	writeJSON(w, status, ds)
}

// GET /datasets
func (h *handler) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListDatasets(r.Context())
	if err != nil {
		writeEngineError(w, err, "failed to list datasets")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"datasets": list,
	})
}

// GET /datasets/{name}
// With ?records=true the stored records are included.
func (h *handler) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ds, err := h.engine.GetDataset(r.Context(), name)
	if err != nil {
		writeEngineError(w, err, "failed to get dataset")
		return
	}

	resp := map[string]any{"dataset": ds}
	if formBool(r.URL.Query().Get("records")) {
		records, err := h.engine.DatasetRecords(r.Context(), name)
		if err != nil {
			writeEngineError(w, err, "failed to read records")
			return
		}
		resp["records"] = records
	}
	writeJSON(w, http.StatusOK, resp)
}

// DELETE /datasets/{name}
func (h *handler) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.engine.DeleteDataset(r.Context(), name); err != nil {
		writeEngineError(w, err, "delete failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /datasets/{name}/evaluate
// Scores actual answers (JSON records or a multipart "actual" file) against
// a stored golden dataset.
func (h *handler) handleEvaluateDataset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	name := r.PathValue("name")
	var (
		actual     []eval.RawRecord
		actualName string
	)

	if isMultipart(r) {
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			writeRequestError(w, err, "invalid multipart form")
			return
		}
		path, filename, err := saveUpload(r, "actual")
		if err != nil {
			writeRequestError(w, err, "actual file is required")
			return
		}
		defer os.Remove(path)

		actual, err = h.engine.LoadFile(ctx, path)
		if err != nil {
			writeEngineError(w, err, "loading actual file failed")
			return
		}
		actualName = filename
	} else {
		var req struct {
			Actual     json.RawMessage `json:"actual"`
			ActualName string          `json:"actual_name,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeRequestError(w, err, "invalid request: expected multipart file or JSON with 'actual'")
			return
		}
		var err error
		actual, err = decodeRecords(req.Actual)
		if err != nil {
			writeError(w, http.StatusBadRequest, "actual: "+err.Error())
			return
		}
		actualName = req.ActualName
	}

	report, err := h.engine.EvaluateDataset(ctx, name, actual, goldeneval.WithNames(name, actualName))
	if err != nil {
		writeEngineError(w, err, "evaluation failed")
		return
	}
	h.metrics.ObserveEvaluation("dataset", report)
	writeJSON(w, http.StatusOK, report)
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
		slog.Error("health check failed", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"formats": h.engine.SupportedFormats(),
		"stats":   stats,
	})
}

// decodeRecords turns an inline JSON value (array or single object) into
// records. A missing value yields no records.
func decodeRecords(raw json.RawMessage) ([]eval.RawRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return loader.DecodeJSON(raw)
}

// saveUpload copies the multipart file in field to a temp file that keeps
// the upload's extension, so the loader registry can pick a format.
func saveUpload(r *http.Request, field string) (path, filename string, err error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	// Sanitise filename to prevent path traversal.
	safeName := filepath.Base(header.Filename)
	return copyToTemp(file, safeName)
}

func copyToTemp(src multipart.File, safeName string) (string, string, error) {
	dst, err := os.CreateTemp("", "goldeneval-*-"+safeName)
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", "", err
	}
	return dst.Name(), safeName, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func importOptions(description string, force bool) []goldeneval.ImportOption {
	var opts []goldeneval.ImportOption
	if description != "" {
		opts = append(opts, goldeneval.WithDescription(description))
	}
	if force {
		opts = append(opts, goldeneval.WithForceReimport())
	}
	return opts
}

func kindOrDefault(kind string) string {
	if kind == "" {
		return "golden"
	}
	return kind
}

func formBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

// writeEngineError maps engine errors to HTTP statuses. Unexpected errors
// are logged and reported with msg only.
func writeEngineError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, goldeneval.ErrDatasetNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, goldeneval.ErrDatasetExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, goldeneval.ErrUnsupportedFormat),
		errors.Is(err, goldeneval.ErrParsingFailed),
		errors.Is(err, goldeneval.ErrInvalidKind),
		errors.Is(err, goldeneval.ErrEmptyDataset),
		errors.Is(err, goldeneval.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, msg)
	default:
		writeError(w, http.StatusInternalServerError, msg)
		slog.Error(msg, "error", err)
	}
}

// writeRequestError reports a malformed request body, or 413 when the body
// exceeded the upload cap.
func writeRequestError(w http.ResponseWriter, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
