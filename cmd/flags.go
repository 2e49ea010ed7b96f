package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/facematch"
)

// mustFlag reads a flag registered in init(). A lookup error means the flag
// name or type is wrong in code, so it panics.
func mustFlag[T any](name string, get func(string) (T, error)) T {
	val, err := get(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	return mustFlag(name, cmd.Flags().GetBool)
}

func mustGetInt(cmd *cobra.Command, name string) int {
	return mustFlag(name, cmd.Flags().GetInt)
}

func mustGetString(cmd *cobra.Command, name string) string {
	return mustFlag(name, cmd.Flags().GetString)
}

// positiveIntFlag returns an int flag that must be at least 1.
func positiveIntFlag(cmd *cobra.Command, name string) (int, error) {
	val := mustGetInt(cmd, name)
	if val < 1 {
		return 0, fmt.Errorf("--%s must be at least 1, got %d", name, val)
	}
	return val, nil
}

// thresholdFlag returns --threshold when given and the configured default
// otherwise. Either way the value must lie in [0, 1].
func thresholdFlag(cmd *cobra.Command, cfg *config.Config) (float64, error) {
	threshold := cfg.Match.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = mustFlag("threshold", cmd.Flags().GetFloat64)
	}
	if err := facematch.ValidateThreshold(threshold); err != nil {
		return 0, fmt.Errorf("--threshold: %w", err)
	}
	return threshold, nil
}
