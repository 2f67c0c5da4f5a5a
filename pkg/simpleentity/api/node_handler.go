package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-entity/pkg/simpleentity"
)

// CreateNodeRequest is the request body for creating a node
type CreateNodeRequest struct {
	Bundle    string                 `json:"bundle" validate:"required"`
	Title     string                 `json:"title"`
	Published bool                   `json:"published"`
	Fields    map[string]interface{} `json:"fields"`
}

// UpdateNodesRequest is the request body for a bulk node update
type UpdateNodesRequest struct {
	IDs    []string               `json:"ids" validate:"dive,uuid"`
	Fields map[string]interface{} `json:"fields" validate:"required"`
}

// DeleteNodesRequest is the request body for a bulk node delete
type DeleteNodesRequest struct {
	IDs []string `json:"ids" validate:"required,dive,uuid"`
}

// CreateParagraphRequest is the request body for creating a paragraph
type CreateParagraphRequest struct {
	Type        string                 `json:"type" validate:"required"`
	ParentID    string                 `json:"parent_id" validate:"omitempty,uuid"`
	ParentField string                 `json:"parent_field" validate:"required_with=ParentID"`
	Fields      map[string]interface{} `json:"fields"`
}

// NodeHandler handles node and paragraph requests
type NodeHandler struct {
	service simpleentity.Service
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(service simpleentity.Service) *NodeHandler {
	return &NodeHandler{service: service}
}

// NodeRoutes returns the routes mounted under /nodes
func (h *NodeHandler) NodeRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateNode)
	r.Get("/", h.ListNodes)
	r.Patch("/", h.UpdateNodes)
	r.Delete("/", h.DeleteNodes)
	r.Get("/{id}", h.GetNode)

	return r
}

// ParagraphRoutes returns the routes mounted under /paragraphs
func (h *NodeHandler) ParagraphRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateParagraph)
	r.Get("/{id}", h.GetParagraph)
	r.Delete("/{id}", h.DeleteParagraph)

	return r
}

// CreateNode creates a node
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	node, err := h.service.CreateNode(r.Context(), simpleentity.CreateNodeRequest{
		Bundle:    req.Bundle,
		Title:     req.Title,
		Published: req.Published,
		Fields:    req.Fields,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, render.M{"node": node})
}

// ListNodes lists nodes, optionally filtered by ?bundle=
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.service.ListNodes(r.Context(), r.URL.Query().Get("bundle"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"nodes": nodes})
}

// GetNode returns one node
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	node, err := h.service.GetNode(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"node": node})
}

// UpdateNodes applies the same field values to every listed node. Nodes
// that fail are reported in messages.error and left out of the count.
func (h *NodeHandler) UpdateNodes(w http.ResponseWriter, r *http.Request) {
	var req UpdateNodesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	updated, err := h.service.UpdateNodes(r.Context(), parseUUIDs(req.IDs), req.Fields)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"updated": updated})
}

// DeleteNodes deletes the listed nodes and their child paragraphs
func (h *NodeHandler) DeleteNodes(w http.ResponseWriter, r *http.Request) {
	var req DeleteNodesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	deleted, err := h.service.DeleteNodes(r.Context(), parseUUIDs(req.IDs))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"deleted": deleted})
}

// CreateParagraph creates a paragraph
func (h *NodeHandler) CreateParagraph(w http.ResponseWriter, r *http.Request) {
	var req CreateParagraphRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	create := simpleentity.CreateParagraphRequest{
		Type:        req.Type,
		ParentField: req.ParentField,
		Fields:      req.Fields,
	}
	if req.ParentID != "" {
		parentID := uuid.MustParse(req.ParentID)
		create.ParentID = &parentID
	}

	paragraph, err := h.service.CreateParagraph(r.Context(), create)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, render.M{"paragraph": paragraph})
}

// GetParagraph returns one paragraph
func (h *NodeHandler) GetParagraph(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	paragraph, err := h.service.GetParagraph(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"paragraph": paragraph})
}

// DeleteParagraph deletes one paragraph
func (h *NodeHandler) DeleteParagraph(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteParagraph(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"deleted": true})
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// parseUUIDs converts ids already checked by the uuid validator.
func parseUUIDs(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		ids = append(ids, uuid.MustParse(s))
	}
	return ids
}
