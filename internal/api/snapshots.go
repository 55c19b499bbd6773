package api

import (
	"fmt"
	"net/http"
	"strconv"
)

// GET /v1/snapshots: stored snapshots, newest first. ?limit=0 lists all.
func (h *Handler) listSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", q))
			return
		}
		limit = n
	}
	snaps, err := h.eng.Snapshots(r.Context(), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"snapshots": snaps})
}

// POST /v1/snapshots: save the flow now.
func (h *Handler) saveSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.eng.SaveSnapshot(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// POST /v1/snapshots/restore: load a snapshot by id, or the latest one.
func (h *Handler) restoreSnapshot(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if !decodeBody(w, r, &req) {
		return
	}
	report, err := h.eng.Restore(r.Context(), req.ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
