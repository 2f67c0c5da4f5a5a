package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/tendant/simple-entity/pkg/simpleentity"
)

// MessagesResponse is the messenger output attached to every response.
type MessagesResponse struct {
	Status []string `json:"status"`
	Error  []string `json:"error"`
}

// ErrorResponse describes a failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// MessagesMiddleware gives each request its own messenger collector.
func MessagesMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := simpleentity.WithMessages(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func collectedMessages(ctx context.Context) MessagesResponse {
	resp := MessagesResponse{Status: []string{}, Error: []string{}}
	if m, ok := simpleentity.MessagesFromContext(ctx); ok {
		resp.Status = append(resp.Status, m.Status()...)
		resp.Error = append(resp.Error, m.Errors()...)
	}
	return resp
}

// respond writes body with the collected messages added under "messages".
func respond(w http.ResponseWriter, r *http.Request, status int, body render.M) {
	if body == nil {
		body = render.M{}
	}
	body["messages"] = collectedMessages(r.Context())
	render.Status(r, status)
	render.JSON(w, r, body)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respond(w, r, status, render.M{
		"error": ErrorResponse{Code: code, Message: message},
	})
}

// respondServiceError maps service errors to HTTP statuses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	respondError(w, r, status, code, err.Error())
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, simpleentity.ErrInvalidArgument),
		errors.Is(err, simpleentity.ErrInvalidFieldType),
		errors.Is(err, simpleentity.ErrUnknownField):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, simpleentity.ErrVocabularyNotFound),
		errors.Is(err, simpleentity.ErrTermNotFound),
		errors.Is(err, simpleentity.ErrNodeNotFound),
		errors.Is(err, simpleentity.ErrParagraphNotFound),
		errors.Is(err, simpleentity.ErrFieldNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, simpleentity.ErrVocabularyExists),
		errors.Is(err, simpleentity.ErrTermExists),
		errors.Is(err, simpleentity.ErrFieldExists),
		errors.Is(err, simpleentity.ErrFieldTypeMismatch):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeAndValidate reads a JSON body into v and checks its validate tags.
// On failure it writes a 400 response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	if err := validate.Struct(v); err != nil {
		respondError(w, r, http.StatusBadRequest, "validation_error", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "oneof":
			parts = append(parts, fe.Field()+" must be one of: "+fe.Param())
		case "uuid":
			parts = append(parts, fe.Field()+" must be a UUID")
		default:
			parts = append(parts, fe.Field()+" failed "+fe.Tag()+" validation")
		}
	}
	return strings.Join(parts, "; ")
}
