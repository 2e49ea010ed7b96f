package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/embedding"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config   *config.Config
	provider embedding.Provider
	settings config.ProviderSettings
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, settings config.ProviderSettings, provider embedding.Provider) *ConfigHandler {
	return &ConfigHandler{
		config:   cfg,
		provider: provider,
		settings: settings,
	}
}

// ProviderResponse describes the active embedding provider
type ProviderResponse struct {
	Name             string       `json:"name"`
	Kind             string       `json:"kind"`
	Model            string       `json:"model,omitempty"`
	Metric           string       `json:"metric"`
	Convention       string       `json:"convention"`
	DefaultThreshold float64      `json:"default_threshold"`
	Status           string       `json:"status"`
	StatusError      string       `json:"status_error,omitempty"`
	Presets          []PresetInfo `json:"presets"`
}

// PresetInfo represents one configured provider preset
type PresetInfo struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Metric      string `json:"metric"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// Provider returns the active provider and the available presets
func (h *ConfigHandler) Provider(w http.ResponseWriter, r *http.Request) {
	metric := h.provider.Metric()
	response := ProviderResponse{
		Name:             h.provider.Name(),
		Kind:             h.settings.Kind,
		Model:            h.settings.Model,
		Metric:           metric.Name,
		Convention:       metric.Convention.String(),
		DefaultThreshold: h.config.Match.Threshold,
		Status:           "ok",
	}

	if checker, ok := h.provider.(embedding.HealthChecker); ok {
		if err := checker.Health(r.Context()); err != nil {
			response.Status = "unavailable"
			response.StatusError = err.Error()
		}
	}

	for _, name := range h.config.PresetNames() {
		preset := h.config.Providers.Presets[name]
		response.Presets = append(response.Presets, PresetInfo{
			Name:        name,
			Kind:        preset.Kind,
			Metric:      preset.Metric,
			Description: preset.Description,
			Active:      name == h.settings.Name,
		})
	}

	respondJSON(w, http.StatusOK, response)
}
