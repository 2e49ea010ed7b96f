package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/embedding"
	"github.com/kozaktomas/face-compare/internal/facematch"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List face provider presets and the active provider",
	Long: `List the configured face provider presets and show which one is active.

The active preset is chosen with FACE_PROVIDER or --provider. Use --check to
also create the provider and probe its health.

Examples:
  face-compare providers
  face-compare providers --check
  face-compare providers --provider face-recognition --json`,
	RunE: runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)

	providersCmd.Flags().Bool("check", false, "Create the active provider and probe its health")
	providersCmd.Flags().Bool("json", false, "Output as JSON")
}

// ProviderInfo describes one provider preset
type ProviderInfo struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Metric      string `json:"metric"`
	Convention  string `json:"convention,omitempty"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// ProvidersResult is the output of the providers command
type ProvidersResult struct {
	Active      string         `json:"active"`
	URL         string         `json:"url,omitempty"`
	ModelDir    string         `json:"model_dir,omitempty"`
	Metric      string         `json:"metric,omitempty"`
	Threshold   float64        `json:"default_threshold"`
	Status      string         `json:"status,omitempty"`
	StatusError string         `json:"status_error,omitempty"`
	Presets     []ProviderInfo `json:"presets"`
}

func runProviders(cmd *cobra.Command, args []string) error {
	check := mustGetBool(cmd, "check")
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	result := ProvidersResult{
		Active:    cfg.Embedding.Provider,
		Threshold: cfg.Match.Threshold,
	}

	for _, name := range cfg.PresetNames() {
		preset := cfg.Providers.Presets[name]
		info := ProviderInfo{
			Name:        name,
			Kind:        preset.Kind,
			Metric:      preset.Metric,
			Description: preset.Description,
			Active:      name == cfg.Embedding.Provider,
		}
		if m, err := facematch.MetricByName(preset.Metric); err == nil {
			info.Convention = m.Convention.String()
		}
		result.Presets = append(result.Presets, info)
	}

	settings, err := cfg.ResolveProvider()
	if err != nil {
		result.Status = "invalid"
		result.StatusError = err.Error()
	} else {
		result.URL = settings.URL
		result.ModelDir = settings.ModelDir
		result.Metric = settings.Metric.Name
		if check {
			result.Status, result.StatusError = checkProvider(settings)
		}
	}

	if jsonOutput {
		return outputJSON(result)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tNAME\tKIND\tMETRIC\tCONVENTION\tDESCRIPTION")
	for _, p := range result.Presets {
		marker := ""
		if p.Active {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", marker, p.Name, p.Kind, p.Metric, p.Convention, p.Description)
	}
	w.Flush()

	fmt.Println()
	fmt.Printf("Active provider:   %s\n", result.Active)
	if result.URL != "" {
		fmt.Printf("  URL:             %s\n", result.URL)
	}
	if result.ModelDir != "" {
		fmt.Printf("  Model directory: %s\n", result.ModelDir)
	}
	if result.Metric != "" {
		fmt.Printf("  Metric:          %s\n", result.Metric)
	}
	fmt.Printf("  Threshold:       %.2f\n", result.Threshold)
	if result.Status != "" {
		fmt.Printf("  Status:          %s\n", result.Status)
	}
	if result.StatusError != "" {
		fmt.Printf("  Error:           %s\n", result.StatusError)
	}
	return nil
}

// checkProvider creates the provider and probes it when it supports health checks.
func checkProvider(settings config.ProviderSettings) (string, string) {
	provider, err := embedding.New(settings)
	if err != nil {
		return "unavailable", err.Error()
	}
	defer provider.Close()

	checker, ok := provider.(embedding.HealthChecker)
	if !ok {
		return "ok", ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := checker.Health(ctx); err != nil {
		return "unavailable", err.Error()
	}
	return "ok", ""
}
