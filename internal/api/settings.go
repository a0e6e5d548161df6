package api

import (
	"encoding/json"
	"net/http"

	"monolithgo/pkg/config"
)

// SettingsHandler reads and writes runtime settings through the config provider.
type SettingsHandler struct {
	cfgProv config.Provider
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(cfg config.Provider) *SettingsHandler {
	return &SettingsHandler{cfgProv: cfg}
}

func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfgProv.Settings(r.Context()))
}

// HandleUpdate applies every key of a JSON object. Nothing is written if any value is invalid.
func (h *SettingsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	ctx := r.Context()
	// Validate all before persisting any.
	for k, v := range req {
		if err := config.ValidateSetting(k, v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	for k, v := range req {
		if err := h.cfgProv.Set(ctx, k, v); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, h.cfgProv.Settings(ctx))
}
