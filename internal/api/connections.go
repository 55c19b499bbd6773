package api

import (
	"fmt"
	"net/http"

	"github.com/gyaneshwarpardhi/caseflow/internal/editor"
	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
	"github.com/gyaneshwarpardhi/caseflow/internal/flowio"
)

func (h *Handler) listConnections(w http.ResponseWriter, r *http.Request) {
	var out []flowio.ConnectionEntry
	err := h.eng.View(r.Context(), "list_connections", func(ed *editor.Editor) error {
		conns := ed.Graph().Connections()
		out = make([]flowio.ConnectionEntry, 0, len(conns))
		for _, c := range conns {
			out = append(out, flowio.ConnectionEntryFor(c))
		}
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"connections": out})
}

// POST /v1/connections: link a source port to a node. The body uses the
// document's connection shape.
func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	var req flowio.ConnectionEntry
	if !decodeBody(w, r, &req) {
		return
	}
	from, to, err := h.resolve(r, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	owner := ""
	if req.Owner != nil {
		owner = *req.Owner
	}
	c, err := h.eng.Connect(r.Context(), from, to, owner)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, flowio.ConnectionEntryFor(c))
}

func (h *Handler) disconnect(w http.ResponseWriter, r *http.Request) {
	var req flowio.ConnectionEntry
	if !decodeBody(w, r, &req) {
		return
	}
	from, to, err := h.resolve(r, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	err = h.eng.Do(r.Context(), "disconnect", func(ed *editor.Editor) error {
		return ed.Disconnect(from, to)
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"disconnected": true})
}

// resolve turns request endpoints into a source anchor and a target id.
func (h *Handler) resolve(r *http.Request, req flowio.ConnectionEntry) (flow.Anchor, string, error) {
	if req.From == nil || req.To == nil || req.From.Node == "" || req.To.Node == "" {
		return flow.Anchor{}, "", fmt.Errorf("%w: from and to nodes are required", flow.ErrNoSuchPort)
	}
	var from flow.Anchor
	err := h.eng.View(r.Context(), "resolve_endpoint", func(ed *editor.Editor) error {
		n, err := lookup(ed, req.From.Node)
		if err != nil {
			return err
		}
		if _, err := lookup(ed, req.To.Node); err != nil {
			return err
		}
		a, ok := flowio.ResolveEndpoint(n, req.From)
		if !ok {
			return fmt.Errorf("%w: %s has no port %q", flow.ErrNoSuchPort, req.From.Node, req.From.Port)
		}
		from = a
		return nil
	})
	return from, req.To.Node, err
}
