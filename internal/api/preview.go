package api

import (
	"net/http"
	"strconv"

	"github.com/gyaneshwarpardhi/caseflow/internal/preview"
)

type chooseRequest struct {
	Index int `json:"index"`
}

type sayRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	Session string        `json:"session"`
	Turn    *preview.Turn `json:"turn"`
}

// POST /v1/preview: start a walk at the root case.
func (h *Handler) startPreview(w http.ResponseWriter, r *http.Request) {
	id, turn, err := h.eng.StartPreview(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, turnResponse{Session: id, Turn: turn})
}

func (h *Handler) currentTurn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	turn, err := h.eng.PreviewCurrent(r.Context(), id)
	h.writeTurn(w, id, turn, err)
}

func (h *Handler) previewHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.eng.PreviewHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": history})
}

func (h *Handler) choose(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	req := chooseRequest{Index: -1}
	if !decodeBody(w, r, &req) {
		return
	}
	if q := r.URL.Query().Get("index"); q != "" {
		i, err := strconv.Atoi(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "index must be an integer")
			return
		}
		req.Index = i
	}
	turn, err := h.eng.PreviewChoose(r.Context(), id, req.Index)
	h.writeTurn(w, id, turn, err)
}

func (h *Handler) say(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req sayRequest
	if !decodeBody(w, r, &req) {
		return
	}
	turn, err := h.eng.PreviewSay(r.Context(), id, req.Text)
	h.writeTurn(w, id, turn, err)
}

func (h *Handler) resetPreview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	turn, err := h.eng.PreviewReset(r.Context(), id)
	h.writeTurn(w, id, turn, err)
}

func (h *Handler) closePreview(w http.ResponseWriter, r *http.Request) {
	if err := h.eng.ClosePreview(r.Context(), r.PathValue("id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeTurn(w http.ResponseWriter, id string, turn *preview.Turn, err error) {
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turnResponse{Session: id, Turn: turn})
}
