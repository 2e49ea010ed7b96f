package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-compare/internal/compare"
	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/imagefile"
)

var compareCmd = &cobra.Command{
	Use:   "compare <img1> <img2>",
	Short: "Compare the faces in two images",
	Long: `Compare two images and decide whether they show the same person.

Every face in the first image is compared with every face in the second one;
the closest pair decides the result. When an image contains several faces the
output also says which faces were matched.

Examples:
  # Compare two photos with the configured threshold (MATCH_THRESHOLD, default 0.6)
  face-compare compare alice.jpg group.jpg

  # Require a closer match
  face-compare compare alice.jpg group.jpg --threshold 0.75

  # Use the local dlib model instead of the embedding server
  face-compare compare alice.jpg group.jpg --provider dlib

  # Output as JSON
  face-compare compare alice.jpg group.jpg --json`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().Float64("threshold", constants.DefaultThreshold, "Minimum similarity for a match, in [0, 1]")
	compareCmd.Flags().Bool("json", false, "Output as JSON")
}

func runCompare(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	threshold, err := thresholdFlag(cmd, cfg)
	if err != nil {
		return err
	}

	imgA, err := loadImage(facematch.SideA, args[0])
	if err != nil {
		return err
	}
	imgB, err := loadImage(facematch.SideB, args[1])
	if err != nil {
		return err
	}

	service, settings, err := newComparisonService(cfg)
	if err != nil {
		return err
	}
	defer service.Provider().Close()

	if !jsonOutput {
		fmt.Printf("Comparing faces using %s (%s)...\n", settings.Name, settings.Metric.Name)
	}

	res, err := service.Compare(context.Background(), imgA, imgB, threshold)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(compare.ToResponse(res))
	}
	printMatchResult(res, threshold)
	return nil
}

// loadImage reads an image from disk, attributing failures to the given side.
func loadImage(side facematch.Side, path string) (imagefile.Image, error) {
	img, err := imagefile.Load(path)
	if err != nil {
		return imagefile.Image{}, facematch.NewImageError(side, path, facematch.ErrMissingInput, err)
	}
	return img, nil
}

func printMatchResult(res facematch.MatchResult, threshold float64) {
	fmt.Println()
	fmt.Printf("  Similarity:  %.4f\n", res.Similarity)
	fmt.Printf("  Threshold:   %.4f\n", threshold)
	fmt.Printf("  Same person: %s\n", yesNo(res.IsSame))

	if res.MultiFaceA || res.MultiFaceB {
		fmt.Println()
		fmt.Printf("  Faces in image A: %d (matched #%d at %s)\n", res.CountA, res.IndexA+1, res.BoxA)
		fmt.Printf("  Faces in image B: %d (matched #%d at %s)\n", res.CountB, res.IndexB+1, res.BoxB)
	}
}
