package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/link-service/internal/repository"
)

func (h *Handler) RedirectHandler(rw http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")
	if shortCode == "" {
		http.Error(rw, "Empty short code", http.StatusBadRequest)
		return
	}

	targetURL, err := h.service.Resolve(r.Context(), shortCode, r.UserAgent(), clientIP(r))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(rw, "Not Found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to resolve short code",
			zap.String("shortCode", shortCode),
			zap.Error(err))
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rw.Header().Set("Location", targetURL)
	rw.WriteHeader(http.StatusTemporaryRedirect)
}
