package handler

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/link-service/internal/service"
)

type Handler struct {
	service *service.LinksService
	logger  *zap.Logger
}

func NewHandler(service *service.LinksService, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
