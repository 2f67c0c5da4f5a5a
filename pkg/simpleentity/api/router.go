package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-entity/pkg/simpleentity"
)

// Routes returns every entity route, ready to be mounted under /api/v1.
// Each request gets its own messenger collector; extra middleware (auth)
// runs before the handlers.
func Routes(service simpleentity.Service, middlewares ...Middleware) chi.Router {
	terms := NewTermHandler(service)
	nodes := NewNodeHandler(service)
	fields := NewFieldHandler(service)

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware, RecoveryMiddleware, MessagesMiddleware)
	for _, m := range middlewares {
		r.Use(m)
	}

	r.Mount("/vocabularies", terms.VocabularyRoutes())
	r.Mount("/terms", terms.TermRoutes())
	r.Mount("/nodes", nodes.NodeRoutes())
	r.Mount("/paragraphs", nodes.ParagraphRoutes())
	r.Mount("/bundles", fields.Routes())

	return r
}
