package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var providerName string

var rootCmd = &cobra.Command{
	Use:   "face-compare",
	Short: "Decide whether two photos show the same person",
	Long: `Face Compare extracts face embeddings from two images using a configured
embedding provider (an InsightFace-style HTTP server or a local dlib model),
selects the closest pair of faces across the two images, and reports their
similarity and whether it clears a threshold.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "Provider preset to use (overrides FACE_PROVIDER)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
