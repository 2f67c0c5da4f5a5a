package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-entity/pkg/simpleentity"
)

// Term request modes
const (
	TermModeResolve = "resolve"
	TermModeCreate  = "create"
)

// CreateVocabularyRequest is the request body for creating a vocabulary
type CreateVocabularyRequest struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// TermRequest is the request body for resolving or creating a term
type TermRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Weight      int    `json:"weight"`
	Mode        string `json:"mode" validate:"omitempty,oneof=resolve create"`
}

// TermHandler handles vocabulary and taxonomy term requests
type TermHandler struct {
	service simpleentity.Service
}

// NewTermHandler creates a new term handler
func NewTermHandler(service simpleentity.Service) *TermHandler {
	return &TermHandler{service: service}
}

// VocabularyRoutes returns the routes mounted under /vocabularies
func (h *TermHandler) VocabularyRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListVocabularies)
	r.Post("/", h.CreateVocabulary)
	r.Get("/{vid}", h.GetVocabulary)

	r.Get("/{vid}/terms", h.ListTerms)
	r.Post("/{vid}/terms", h.ResolveOrCreateTerm)
	r.Delete("/{vid}/terms", h.DeleteTerm)
	r.Get("/{vid}/terms/lookup", h.LookupTerm)

	return r
}

// TermRoutes returns the routes mounted under /terms
func (h *TermHandler) TermRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.GetTermName)
	return r
}

// ListVocabularies lists all vocabularies
func (h *TermHandler) ListVocabularies(w http.ResponseWriter, r *http.Request) {
	vocabularies, err := h.service.ListVocabularies(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"vocabularies": vocabularies})
}

// CreateVocabulary creates a vocabulary
func (h *TermHandler) CreateVocabulary(w http.ResponseWriter, r *http.Request) {
	var req CreateVocabularyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	vocabulary, err := h.service.CreateVocabulary(r.Context(), simpleentity.CreateVocabularyRequest{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, render.M{"vocabulary": vocabulary})
}

// GetVocabulary returns one vocabulary
func (h *TermHandler) GetVocabulary(w http.ResponseWriter, r *http.Request) {
	vocabulary, err := h.service.GetVocabulary(r.Context(), chi.URLParam(r, "vid"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"vocabulary": vocabulary})
}

// ListTerms lists the terms of a vocabulary, oldest first
func (h *TermHandler) ListTerms(w http.ResponseWriter, r *http.Request) {
	terms, err := h.service.ListTerms(r.Context(), chi.URLParam(r, "vid"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"terms": terms})
}

// ResolveOrCreateTerm returns the id of the named term, creating it when
// missing. With mode "create" an existing term is a conflict.
func (h *TermHandler) ResolveOrCreateTerm(w http.ResponseWriter, r *http.Request) {
	var req TermRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	vid := chi.URLParam(r, "vid")

	if req.Mode == TermModeCreate {
		term, err := h.service.CreateTerm(r.Context(), simpleentity.CreateTermRequest{
			VocabularyID: vid,
			Name:         req.Name,
			Description:  req.Description,
			Weight:       req.Weight,
		})
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		respond(w, r, http.StatusCreated, render.M{"term": term})
		return
	}

	id, err := h.service.ResolveTerm(r.Context(), vid, req.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"id": id})
}

// LookupTerm returns the id of the named term without creating it
func (h *TermHandler) LookupTerm(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "name query parameter is required")
		return
	}

	id, err := h.service.GetTermID(r.Context(), chi.URLParam(r, "vid"), name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"id": id})
}

// DeleteTerm deletes the named term. A missing term is not an error.
func (h *TermHandler) DeleteTerm(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "name query parameter is required")
		return
	}

	deleted, err := h.service.DeleteTerm(r.Context(), chi.URLParam(r, "vid"), name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"deleted": deleted})
}

// GetTermName returns the name of a term by id
func (h *TermHandler) GetTermName(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid term ID")
		return
	}

	name, err := h.service.GetTermName(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"id": id, "name": name})
}
