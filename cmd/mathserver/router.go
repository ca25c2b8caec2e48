package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dekarrin/mathexpr/cmd/mathserver/api"
	"github.com/dekarrin/mathexpr/cmd/mathserver/middle"
)

// newRouter builds the chi.Mux serving mathserver's endpoints. /healthz is
// reachable without a bearer token; every other route requires one unless
// secret is empty (auth disabled entirely).
func newRouter(a api.API, secret []byte) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middle.DontPanic())

	r.Get("/healthz", a.HTTPHealthz())

	r.Group(func(r chi.Router) {
		r.Use(middle.RequireBearer(secret))
		r.Post("/evaluate", a.HTTPEvaluate())
		r.Post("/derive", a.HTTPDerive())
		r.Get("/history", a.HTTPHistory())
	})

	return r
}

// newServer wraps r in an http.Server with the same conservative timeouts
// the teacher's TunaQuestServer applies via http.ListenAndServe's defaults
// made explicit.
func newServer(addr string, r http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
