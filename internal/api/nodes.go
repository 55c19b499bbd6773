package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gyaneshwarpardhi/caseflow/internal/editor"
	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
	"github.com/gyaneshwarpardhi/caseflow/internal/flowio"
	"github.com/gyaneshwarpardhi/caseflow/internal/layout"
)

// positionRequest places a new node. Missing coordinates mean 0.
type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// nodePatch changes any subset of a node's fields. Fields that do not
// belong to the node's type are rejected.
type nodePatch struct {
	X        *float64              `json:"x"`
	Y        *float64              `json:"y"`
	Prompt   *string               `json:"q"`
	Schedule *flowio.ScheduleEntry `json:"schedule"`
	Text     *string               `json:"text"`
	FollowQ  *string               `json:"followQ"`
}

// check rejects the patch before anything is applied, so a refused request
// leaves the node unchanged.
func (p nodePatch) check(n flow.Node) error {
	switch n.Type() {
	case flow.NodeTypeCase:
		if p.Text != nil || p.FollowQ != nil {
			return fmt.Errorf("%w: %s is case, text and followQ need an answer", flow.ErrWrongNodeType, n.ID())
		}
	case flow.NodeTypeAnswer:
		if p.Prompt != nil || p.Schedule != nil {
			return fmt.Errorf("%w: %s is answer, q and schedule need a case", flow.ErrWrongNodeType, n.ID())
		}
	}
	if p.Schedule != nil {
		if _, err := flowio.ToSchedule(*p.Schedule).Normalize(); err != nil {
			return err
		}
	}
	return nil
}

type rowRequest struct {
	Text string `json:"text"`
}

type rowsRequest struct {
	Rows []string `json:"rows"`
}

type idRequest struct {
	ID string `json:"id"`
}

// nodeView is a node with the links touching it.
type nodeView struct {
	Node     flowio.NodeEntry         `json:"node"`
	Incoming *flowio.ConnectionEntry  `json:"incoming,omitempty"`
	Outgoing []flowio.ConnectionEntry `json:"outgoing"`
	Selected bool                     `json:"selected"`
}

func viewOf(ed *editor.Editor, n flow.Node) nodeView {
	g := ed.Graph()
	v := nodeView{
		Node:     flowio.EntryFor(n),
		Outgoing: []flowio.ConnectionEntry{},
		Selected: ed.Selected() == n.ID(),
	}
	if c := g.FindIncoming(n.ID()); c != nil {
		ce := flowio.ConnectionEntryFor(c)
		v.Incoming = &ce
	}
	for _, c := range g.Connections() {
		if c.From.NodeID == n.ID() {
			v.Outgoing = append(v.Outgoing, flowio.ConnectionEntryFor(c))
		}
	}
	return v
}

func lookup(ed *editor.Editor, id string) (flow.Node, error) {
	n := ed.Graph().Node(id)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", flow.ErrNodeNotFound, id)
	}
	return n, nil
}

// GET /v1/nodes: every node plus root and selection.
func (h *Handler) listNodes(w http.ResponseWriter, r *http.Request) {
	var resp struct {
		Nodes    []flowio.NodeEntry `json:"nodes"`
		Root     string             `json:"root,omitempty"`
		Selected string             `json:"selected,omitempty"`
	}
	err := h.eng.View(r.Context(), "list_nodes", func(ed *editor.Editor) error {
		g := ed.Graph()
		resp.Nodes = make([]flowio.NodeEntry, 0, g.NodeCount())
		for _, n := range g.Nodes() {
			resp.Nodes = append(resp.Nodes, flowio.EntryFor(n))
		}
		if root := g.Root(); root != nil {
			resp.Root = root.ID()
		}
		resp.Selected = ed.Selected()
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /v1/cases: new case near x,y with a first option and its answer.
func (h *Handler) createCase(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var view nodeView
	err := h.eng.Do(r.Context(), "create_case", func(ed *editor.Editor) error {
		c, err := ed.CreateCase(layout.Point{X: req.X, Y: req.Y})
		if err != nil {
			return err
		}
		view = viewOf(ed, c)
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// POST /v1/answers: a free-standing answer at x,y.
func (h *Handler) createAnswer(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var view nodeView
	err := h.eng.Do(r.Context(), "create_answer", func(ed *editor.Editor) error {
		a := ed.Graph().NewAnswer(flow.Position{X: req.X, Y: req.Y})
		if err := ed.Select(a.ID()); err != nil {
			return err
		}
		view = viewOf(ed, a)
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) getNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var view nodeView
	err := h.eng.View(r.Context(), "get_node", func(ed *editor.Editor) error {
		n, err := lookup(ed, id)
		if err != nil {
			return err
		}
		view = viewOf(ed, n)
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) patchNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var p nodePatch
	if !decodeBody(w, r, &p) {
		return
	}
	var view nodeView
	err := h.eng.Do(r.Context(), "update_node", func(ed *editor.Editor) error {
		n, err := lookup(ed, id)
		if err != nil {
			return err
		}
		if err := p.check(n); err != nil {
			return err
		}
		if p.X != nil || p.Y != nil {
			pos := n.Position()
			if p.X != nil {
				pos.X = *p.X
			}
			if p.Y != nil {
				pos.Y = *p.Y
			}
			if err := ed.Move(id, pos); err != nil {
				return err
			}
		}
		if p.Prompt != nil {
			if err := ed.SetPrompt(id, *p.Prompt); err != nil {
				return err
			}
		}
		if p.Schedule != nil {
			if err := ed.SetSchedule(id, flowio.ToSchedule(*p.Schedule)); err != nil {
				return err
			}
		}
		if p.Text != nil {
			if err := ed.SetResponseText(id, *p.Text); err != nil {
				return err
			}
		}
		if p.FollowQ != nil {
			if err := ed.SetFollowUpQuestion(id, *p.FollowQ); err != nil {
				return err
			}
		}
		view = viewOf(ed, n)
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DELETE /v1/nodes/{id}: remove the node and every node it owns.
func (h *Handler) deleteNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var removed []string
	err := h.eng.Do(r.Context(), "delete_node", func(ed *editor.Editor) error {
		removed = ed.Delete(id)
		if len(removed) == 0 {
			return fmt.Errorf("%w: %s", flow.ErrNodeNotFound, id)
		}
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
}

func (h *Handler) duplicateNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var view nodeView
	err := h.eng.Do(r.Context(), "duplicate_node", func(ed *editor.Editor) error {
		n, err := ed.Duplicate(id)
		if err != nil {
			return err
		}
		view = viewOf(ed, n)
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// POST /v1/nodes/{id}/next: give an answer a follow-up question.
func (h *Handler) addNext(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var view nodeView
	err := h.eng.Do(r.Context(), "add_next", func(ed *editor.Editor) error {
		if err := ed.AddNext(id); err != nil {
			return err
		}
		n, err := lookup(ed, id)
		if err != nil {
			return err
		}
		view = viewOf(ed, n)
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// POST /v1/nodes/{id}/rows: append a row. On a case the row is wired to a
// new answer, which is returned too.
func (h *Handler) addRow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	req := rowRequest{Text: editor.NewOptionText}
	if !decodeBody(w, r, &req) {
		return
	}
	var resp struct {
		Row    int               `json:"row"`
		Node   flowio.NodeEntry  `json:"node"`
		Answer *flowio.NodeEntry `json:"answer,omitempty"`
	}
	err := h.eng.Do(r.Context(), "add_row", func(ed *editor.Editor) error {
		n, err := lookup(ed, id)
		if err != nil {
			return err
		}
		if n.Type() == flow.NodeTypeCase {
			row, a, err := ed.AddOption(id, req.Text)
			if err != nil {
				return err
			}
			ae := flowio.EntryFor(a)
			resp.Row, resp.Answer = row, &ae
		} else {
			row, err := ed.AddFollowOption(id, req.Text)
			if err != nil {
				return err
			}
			resp.Row = row
		}
		resp.Node = flowio.EntryFor(n)
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// PUT /v1/nodes/{id}/rows: replace row texts, dropping trailing rows.
func (h *Handler) setRows(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req rowsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.mutateNode(w, r, "set_rows", id, func(ed *editor.Editor) error {
		return ed.SetRows(id, req.Rows)
	})
}

func (h *Handler) updateRow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index, ok := rowIndex(w, r)
	if !ok {
		return
	}
	var opt flow.Option
	if !decodeBody(w, r, &opt) {
		return
	}
	h.mutateNode(w, r, "update_row", id, func(ed *editor.Editor) error {
		return ed.UpdateRow(id, index, opt)
	})
}

func (h *Handler) removeRow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index, ok := rowIndex(w, r)
	if !ok {
		return
	}
	h.mutateNode(w, r, "remove_row", id, func(ed *editor.Editor) error {
		return ed.RemoveRow(id, index)
	})
}

// mutateNode runs fn and answers with the node's new state.
func (h *Handler) mutateNode(w http.ResponseWriter, r *http.Request, name, id string, fn func(*editor.Editor) error) {
	var view nodeView
	err := h.eng.Do(r.Context(), name, func(ed *editor.Editor) error {
		if err := fn(ed); err != nil {
			return err
		}
		n, err := lookup(ed, id)
		if err != nil {
			return err
		}
		view = viewOf(ed, n)
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func rowIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid row index %q", r.PathValue("index")))
		return 0, false
	}
	return index, true
}

// PUT /v1/root: make a case the preview start.
func (h *Handler) setRoot(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.eng.Do(r.Context(), "set_root", func(ed *editor.Editor) error {
		return ed.MakeRoot(req.ID)
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"root": req.ID})
}

func (h *Handler) clearRoot(w http.ResponseWriter, r *http.Request) {
	err := h.eng.Do(r.Context(), "clear_root", func(ed *editor.Editor) error {
		ed.Graph().ClearRoot()
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"root": ""})
}

func (h *Handler) getSelection(w http.ResponseWriter, r *http.Request) {
	var id string
	err := h.eng.View(r.Context(), "get_selection", func(ed *editor.Editor) error {
		id = ed.Selected()
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": id})
}

// PUT /v1/selection: select a node; an empty id clears the selection.
func (h *Handler) setSelection(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.eng.View(r.Context(), "select", func(ed *editor.Editor) error {
		if req.ID == "" {
			ed.ClearSelection()
			return nil
		}
		return ed.Select(req.ID)
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": req.ID})
}
