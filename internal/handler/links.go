package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/link-service/internal/models"
	"github.com/mmeshcher/link-service/internal/repository"
	"github.com/mmeshcher/link-service/internal/service"
)

func (h *Handler) CreateLinkHandler(rw http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(rw, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var req models.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(rw, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	link, err := h.service.CreateLink(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyURL), errors.Is(err, service.ErrInvalidURL):
			http.Error(rw, err.Error(), http.StatusBadRequest)
		case errors.Is(err, repository.ErrConflict):
			http.Error(rw, "Short code already exists", http.StatusConflict)
		default:
			h.logger.Error("Failed to create link",
				zap.Int64("userID", userID),
				zap.Error(err))
			http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(rw, h.logger, http.StatusCreated, link)
}

func (h *Handler) UserLinksHandler(rw http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(rw, "Invalid user ID", http.StatusBadRequest)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := h.service.UserLinks(r.Context(), userID, page, limit)
	if err != nil {
		h.logger.Error("Failed to list user links",
			zap.Int64("userID", userID),
			zap.Error(err))
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(rw, h.logger, http.StatusOK, resp)
}

func (h *Handler) LinkStatsHandler(rw http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	resp, err := h.service.LinkStats(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(rw, "Not Found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get link stats",
			zap.String("shortCode", shortCode),
			zap.Error(err))
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(rw, h.logger, http.StatusOK, resp)
}

func (h *Handler) DeleteLinkHandler(rw http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	if err := h.service.DeleteLink(r.Context(), shortCode); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(rw, "Not Found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to delete link",
			zap.String("shortCode", shortCode),
			zap.Error(err))
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rw.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PingHandler(rw http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Error("Database ping failed", zap.Error(err))
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rw.WriteHeader(http.StatusOK)
}

func writeJSON(rw http.ResponseWriter, logger *zap.Logger, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	if err := json.NewEncoder(rw).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
