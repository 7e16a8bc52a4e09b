package handler

import (
	"log/slog"
	"net/http"

	"oem-seo-api/internal/service"
)

// AdminHandler exposes prefix cache diagnostics
type AdminHandler struct {
	svc    *service.OemService
	logger *slog.Logger
}

func NewAdminHandler(svc *service.OemService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger}
}

func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.CacheStats())
}

func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	before := h.svc.CacheStats().Size
	h.svc.ClearCache()
	h.logger.Info("oem prefix cache cleared via admin", "entries", before, "remote_addr", r.RemoteAddr)

	w.WriteHeader(http.StatusNoContent)
}
