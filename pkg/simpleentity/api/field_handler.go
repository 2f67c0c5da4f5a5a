package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-entity/pkg/simpleentity"
)

// AddFieldRequest is the request body for attaching a field to a bundle
type AddFieldRequest struct {
	FieldName   string                 `json:"field_name" validate:"required"`
	Label       string                 `json:"label"`
	Type        string                 `json:"type" validate:"required,oneof=string string_long text_long integer boolean entity_reference entity_reference_revisions"`
	Required    bool                   `json:"required"`
	Cardinality int                    `json:"cardinality" validate:"min=-1"`
	Widget      string                 `json:"widget"`
	Settings    map[string]interface{} `json:"settings"`
}

// RequireFieldRequest is the request body for toggling a field's required flag
type RequireFieldRequest struct {
	Required *bool `json:"required" validate:"required"`
}

// FieldHandler handles field and form display requests for a bundle
type FieldHandler struct {
	service simpleentity.Service
}

// NewFieldHandler creates a new field handler
func NewFieldHandler(service simpleentity.Service) *FieldHandler {
	return &FieldHandler{service: service}
}

// Routes returns the routes mounted under /bundles
func (h *FieldHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/{entityType}/{bundle}", func(r chi.Router) {
		r.Get("/fields", h.ListFields)
		r.Post("/fields", h.AddField)
		r.Put("/fields/{field}/required", h.RequireField)
		r.Delete("/fields/{field}", h.RemoveField)
		r.Get("/form-display", h.GetFormDisplay)
	})

	return r
}

// ListFields lists the fields attached to a bundle
func (h *FieldHandler) ListFields(w http.ResponseWriter, r *http.Request) {
	fields, err := h.service.ListFields(r.Context(), chi.URLParam(r, "entityType"), chi.URLParam(r, "bundle"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"fields": fields})
}

// AddField attaches a field to a bundle and places it on the form display
func (h *FieldHandler) AddField(w http.ResponseWriter, r *http.Request) {
	var req AddFieldRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	field, err := h.service.AddField(r.Context(), simpleentity.AddFieldRequest{
		EntityType:  chi.URLParam(r, "entityType"),
		Bundle:      chi.URLParam(r, "bundle"),
		FieldName:   req.FieldName,
		Label:       req.Label,
		Type:        simpleentity.FieldType(req.Type),
		Required:    req.Required,
		Cardinality: req.Cardinality,
		Widget:      req.Widget,
		Settings:    req.Settings,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, render.M{"field": field})
}

// RequireField sets or clears the required flag of a field
func (h *FieldHandler) RequireField(w http.ResponseWriter, r *http.Request) {
	var req RequireFieldRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.service.RequireField(r.Context(),
		chi.URLParam(r, "entityType"), chi.URLParam(r, "bundle"), chi.URLParam(r, "field"), *req.Required)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"required": *req.Required})
}

// RemoveField detaches a field from a bundle
func (h *FieldHandler) RemoveField(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveField(r.Context(), chi.URLParam(r, "entityType"), chi.URLParam(r, "bundle"), chi.URLParam(r, "field"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"deleted": true})
}

// GetFormDisplay returns the default form display of a bundle
func (h *FieldHandler) GetFormDisplay(w http.ResponseWriter, r *http.Request) {
	display, err := h.service.GetFormDisplay(r.Context(), chi.URLParam(r, "entityType"), chi.URLParam(r, "bundle"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, render.M{"form_display": display})
}
