package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/link-service/internal/middleware"
)

func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger(h.logger))

	r.Get("/ping", h.PingHandler)
	r.Get("/{shortCode}", h.RedirectHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users/{userID}/links", func(r chi.Router) {
			r.Post("/", h.CreateLinkHandler)
			r.Get("/", h.UserLinksHandler)
		})
		r.Route("/links/{shortCode}", func(r chi.Router) {
			r.Get("/stats", h.LinkStatsHandler)
			r.Delete("/", h.DeleteLinkHandler)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	return r
}
