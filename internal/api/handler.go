package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/caseflow/internal/config"
	"github.com/gyaneshwarpardhi/caseflow/internal/editor"
	"github.com/gyaneshwarpardhi/caseflow/internal/engine"
	"github.com/gyaneshwarpardhi/caseflow/internal/event"
	"github.com/gyaneshwarpardhi/caseflow/internal/flowio"
	"github.com/gyaneshwarpardhi/caseflow/internal/metrics"
)

// maxDocumentBytes bounds an imported flow document.
const maxDocumentBytes = 8 << 20

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	bus    *event.Bus
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes. loader may be nil,
// in which case config reload is unavailable.
func New(eng *engine.Engine, loader *config.Loader, bus *event.Bus) http.Handler {
	h := &Handler{eng: eng, loader: loader, bus: bus, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /v1/flow", h.exportFlow)
	h.mux.HandleFunc("PUT /v1/flow", h.importFlow)
	h.mux.HandleFunc("DELETE /v1/flow", h.clearFlow)

	h.mux.HandleFunc("GET /v1/nodes", h.listNodes)
	h.mux.HandleFunc("POST /v1/cases", h.createCase)
	h.mux.HandleFunc("POST /v1/answers", h.createAnswer)
	h.mux.HandleFunc("GET /v1/nodes/{id}", h.getNode)
	h.mux.HandleFunc("PATCH /v1/nodes/{id}", h.patchNode)
	h.mux.HandleFunc("DELETE /v1/nodes/{id}", h.deleteNode)
	h.mux.HandleFunc("POST /v1/nodes/{id}/duplicate", h.duplicateNode)
	h.mux.HandleFunc("POST /v1/nodes/{id}/next", h.addNext)
	h.mux.HandleFunc("POST /v1/nodes/{id}/rows", h.addRow)
	h.mux.HandleFunc("PUT /v1/nodes/{id}/rows", h.setRows)
	h.mux.HandleFunc("PATCH /v1/nodes/{id}/rows/{index}", h.updateRow)
	h.mux.HandleFunc("DELETE /v1/nodes/{id}/rows/{index}", h.removeRow)

	h.mux.HandleFunc("PUT /v1/root", h.setRoot)
	h.mux.HandleFunc("DELETE /v1/root", h.clearRoot)
	h.mux.HandleFunc("GET /v1/selection", h.getSelection)
	h.mux.HandleFunc("PUT /v1/selection", h.setSelection)

	h.mux.HandleFunc("GET /v1/connections", h.listConnections)
	h.mux.HandleFunc("POST /v1/connections", h.connect)
	h.mux.HandleFunc("DELETE /v1/connections", h.disconnect)

	h.mux.HandleFunc("POST /v1/preview", h.startPreview)
	h.mux.HandleFunc("GET /v1/preview/{id}", h.currentTurn)
	h.mux.HandleFunc("DELETE /v1/preview/{id}", h.closePreview)
	h.mux.HandleFunc("GET /v1/preview/{id}/history", h.previewHistory)
	h.mux.HandleFunc("POST /v1/preview/{id}/choose", h.choose)
	h.mux.HandleFunc("POST /v1/preview/{id}/say", h.say)
	h.mux.HandleFunc("POST /v1/preview/{id}/reset", h.resetPreview)

	h.mux.HandleFunc("GET /v1/snapshots", h.listSnapshots)
	h.mux.HandleFunc("POST /v1/snapshots", h.saveSnapshot)
	h.mux.HandleFunc("POST /v1/snapshots/restore", h.restoreSnapshot)

	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /v1/events/ws", h.streamEvents)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// requestFormat picks the document format from ?format= or the
// Content-Type header, defaulting to JSON.
func requestFormat(r *http.Request) (flowio.Format, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		return flowio.ParseFormat(f)
	}
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		return flowio.FormatYAML, nil
	}
	return flowio.FormatJSON, nil
}

func contentType(f flowio.Format) string {
	if f == flowio.FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// GET /v1/flow: export the whole flow as JSON or YAML.
func (h *Handler) exportFlow(w http.ResponseWriter, r *http.Request) {
	f, err := requestFormat(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := h.eng.Export(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType(f))
	w.WriteHeader(http.StatusOK)
	_ = flowio.Encode(w, doc, f)
}

// PUT /v1/flow: replace the flow with an uploaded document.
func (h *Handler) importFlow(w http.ResponseWriter, r *http.Request) {
	f, err := requestFormat(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := flowio.Decode(http.MaxBytesReader(w, r.Body, maxDocumentBytes), f)
	if err != nil {
		metrics.Imports.WithLabelValues("error").Inc()
		writeErr(w, err)
		return
	}
	report, err := h.eng.Import(r.Context(), doc)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DELETE /v1/flow: remove every node.
func (h *Handler) clearFlow(w http.ResponseWriter, r *http.Request) {
	err := h.eng.Do(r.Context(), "clear", func(ed *editor.Editor) error {
		ed.Graph().Clear()
		ed.ClearSelection()
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// POST /v1/config/reload: re-read the config file and apply it.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		writeError(w, http.StatusNotImplemented, "no config file loaded")
		return
	}
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"version":  cfg.Version,
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the command queue is more than 80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
		"revision":          h.eng.Revision(),
	})
}

// decodeBody reads a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return false
	}
	return true
}
