package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"oem-seo-api/internal/model"
	"oem-seo-api/internal/service"
)

type OemRefHandler struct {
	svc    *service.OemService
	logger *slog.Logger
}

func NewOemRefHandler(svc *service.OemService, logger *slog.Logger) *OemRefHandler {
	return &OemRefHandler{svc: svc, logger: logger}
}

// Filter runs the pipeline on refs posted by the caller
func (h *OemRefHandler) Filter(w http.ResponseWriter, r *http.Request) {
	var req model.FilterRefsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.TypeID <= 0 || req.GammeID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "type_id and gamme_id must be positive numbers")
		return
	}

	if strings.TrimSpace(req.Marque) == "" {
		writeError(w, http.StatusBadRequest, "missing_param", "field 'marque' is required")
		return
	}

	writeJSON(w, http.StatusOK, h.svc.Filter(req.Refs, req.TypeID, req.GammeID, req.Marque))
}

// ForVehicle loads the refs of /{typeId}/{gammeId}?marque= and filters them
func (h *OemRefHandler) ForVehicle(w http.ResponseWriter, r *http.Request) {
	typeID, err := strconv.Atoi(chi.URLParam(r, "typeId"))
	if err != nil || typeID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "typeId must be a positive number")
		return
	}

	gammeID, err := strconv.Atoi(chi.URLParam(r, "gammeId"))
	if err != nil || gammeID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "gammeId must be a positive number")
		return
	}

	marque := r.URL.Query().Get("marque")
	if strings.TrimSpace(marque) == "" {
		writeError(w, http.StatusBadRequest, "missing_param", "query parameter 'marque' is required")
		return
	}

	result, err := h.svc.FilterForVehicle(r.Context(), typeID, gammeID, marque)
	if err != nil {
		h.logger.Error("failed to filter oem refs",
			"type_id", typeID,
			"gamme_id", gammeID,
			"marque", marque,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "database_error", "failed to load oem refs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// FilterByPrefixes filters refs against caller-supplied prefixes
func (h *OemRefHandler) FilterByPrefixes(w http.ResponseWriter, r *http.Request) {
	var req model.FilterByPrefixesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	refs := h.svc.FilterByPrefixes(req.Refs, req.Prefixes)
	writeJSON(w, http.StatusOK, model.FilterByPrefixesResponse{
		Refs:  refs,
		Total: len(refs),
	})
}
