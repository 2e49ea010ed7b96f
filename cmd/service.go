package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-compare/internal/compare"
	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/embedding"
)

// loadConfig loads the environment configuration, applies the --provider
// flag and rejects invalid settings.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if providerName != "" {
		cfg.Embedding.Provider = providerName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newComparisonService resolves the active provider and builds a comparison
// service around it. The caller owns the provider and must close it.
func newComparisonService(cfg *config.Config, opts ...compare.Option) (*compare.Service, config.ProviderSettings, error) {
	settings, err := cfg.ResolveProvider()
	if err != nil {
		return nil, config.ProviderSettings{}, err
	}

	provider, err := embedding.New(settings)
	if err != nil {
		return nil, config.ProviderSettings{}, fmt.Errorf("failed to create face provider %s: %w", settings.Name, err)
	}

	return compare.New(provider, opts...), settings, nil
}
