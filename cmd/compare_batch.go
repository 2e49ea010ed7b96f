package cmd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-compare/internal/compare"
	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/facematch"
)

var compareBatchCmd = &cobra.Command{
	Use:   "compare-batch",
	Short: "Compare many image pairs listed in a CSV file",
	Long: `Compare many image pairs listed in a CSV file.

Each row holds two image paths and an optional per-pair threshold:

  img1,img2,threshold
  alice.jpg,group.jpg,
  bob.jpg,bob-2019.jpg,0.7

A header row starting with "img1" is skipped, as are lines starting with '#'.
Relative paths are resolved against the directory of the CSV file. Every pair
is an independent comparison; failures are reported inline and do not stop
the batch. Results are written to stdout as a JSON array, progress to stderr.

Examples:
  # Compare all pairs with 4 workers
  face-compare compare-batch --pairs pairs.csv

  # More workers and a stricter default threshold
  face-compare compare-batch --pairs pairs.csv --concurrency 8 --threshold 0.7`,
	RunE: runCompareBatch,
}

func init() {
	rootCmd.AddCommand(compareBatchCmd)

	compareBatchCmd.Flags().String("pairs", "", "CSV file listing image pairs (required)")
	compareBatchCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Number of parallel comparisons")
	compareBatchCmd.Flags().Float64("threshold", constants.DefaultThreshold, "Default minimum similarity for a match, in [0, 1]")
	compareBatchCmd.Flags().Bool("no-progress", false, "Disable the progress bar")
	_ = compareBatchCmd.MarkFlagRequired("pairs")
}

// comparisonPair is one row of the pairs file.
type comparisonPair struct {
	Line      int
	ImageA    string
	ImageB    string
	Threshold *float64
}

// BatchResult is the outcome of one pair in a batch run
type BatchResult struct {
	Line      int               `json:"line"`
	ImageA    string            `json:"img1"`
	ImageB    string            `json:"img2"`
	Threshold float64           `json:"threshold"`
	Outcome   compare.Outcome   `json:"outcome"`
	Result    *compare.Response `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
}

func runCompareBatch(cmd *cobra.Command, args []string) error {
	pairsPath := mustGetString(cmd, "pairs")
	noProgress := mustGetBool(cmd, "no-progress")
	concurrency, err := positiveIntFlag(cmd, "concurrency")
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defaultThreshold, err := thresholdFlag(cmd, cfg)
	if err != nil {
		return err
	}

	pairs, err := readPairsFile(pairsPath)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		fmt.Fprintln(os.Stderr, "No image pairs found.")
		return outputJSON([]BatchResult{})
	}

	service, settings, err := newComparisonService(cfg)
	if err != nil {
		return err
	}
	defer service.Provider().Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(os.Stderr, "Comparing %d pairs using %s (%s)\n", len(pairs), settings.Name, settings.Metric.Name)

	var bar *progressbar.ProgressBar
	if !noProgress {
		bar = progressbar.NewOptions(len(pairs),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Comparing"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("pairs"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	startTime := time.Now()
	results := make([]BatchResult, len(pairs))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, pair := range pairs {
		wg.Add(1)
		go func(i int, pair comparisonPair) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			threshold := defaultThreshold
			if pair.Threshold != nil {
				threshold = *pair.Threshold
			}
			results[i] = comparePair(ctx, service, pair, threshold)

			if bar != nil {
				bar.Add(1)
			}
		}(i, pair)
	}

	wg.Wait()

	if bar != nil {
		fmt.Fprintln(os.Stderr)
	}
	printBatchSummary(results, time.Since(startTime))

	return outputJSON(results)
}

// comparePair runs one comparison and records any failure inline.
func comparePair(ctx context.Context, service *compare.Service, pair comparisonPair, threshold float64) BatchResult {
	result := BatchResult{
		Line:      pair.Line,
		ImageA:    pair.ImageA,
		ImageB:    pair.ImageB,
		Threshold: threshold,
	}

	res, err := func() (facematch.MatchResult, error) {
		if err := facematch.ValidateThreshold(threshold); err != nil {
			return facematch.MatchResult{}, err
		}
		imgA, err := loadImage(facematch.SideA, pair.ImageA)
		if err != nil {
			return facematch.MatchResult{}, err
		}
		imgB, err := loadImage(facematch.SideB, pair.ImageB)
		if err != nil {
			return facematch.MatchResult{}, err
		}
		return service.Compare(ctx, imgA, imgB, threshold)
	}()

	result.Outcome = compare.OutcomeOf(res, err)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	resp := compare.ToResponse(res)
	result.Result = &resp
	return result
}

func printBatchSummary(results []BatchResult, elapsed time.Duration) {
	counts := make(map[compare.Outcome]int)
	for _, r := range results {
		counts[r.Outcome]++
	}

	fmt.Fprintf(os.Stderr, "\nBatch complete in %s\n", formatDuration(elapsed))
	for _, outcome := range compare.Outcomes {
		if n := counts[outcome]; n > 0 {
			fmt.Fprintf(os.Stderr, "  %-18s %d\n", outcome+":", n)
		}
	}
}

// readPairsFile reads image pairs from a CSV file, resolving relative paths
// against the file's directory.
func readPairsFile(path string) ([]comparisonPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pairs file: %w", err)
	}
	defer f.Close()

	pairs, err := parsePairs(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	for i := range pairs {
		pairs[i].ImageA = resolvePath(baseDir, pairs[i].ImageA)
		pairs[i].ImageB = resolvePath(baseDir, pairs[i].ImageB)
	}
	return pairs, nil
}

func resolvePath(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// parsePairs parses "img1,img2[,threshold]" rows.
func parsePairs(r io.Reader) ([]comparisonPair, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var pairs []comparisonPair
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)

		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(record[0]), constants.FormImageA) {
				continue
			}
		}

		if len(record) < 2 || len(record) > 3 {
			return nil, fmt.Errorf("line %d: expected 2 or 3 columns, got %d", line, len(record))
		}

		pair := comparisonPair{
			Line:   line,
			ImageA: strings.TrimSpace(record[0]),
			ImageB: strings.TrimSpace(record[1]),
		}
		if pair.ImageA == "" || pair.ImageB == "" {
			return nil, fmt.Errorf("line %d: both image paths are required", line)
		}

		if len(record) == 3 {
			if raw := strings.TrimSpace(record[2]); raw != "" {
				t, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: threshold %q is not a number", line, raw)
				}
				pair.Threshold = &t
			}
		}

		pairs = append(pairs, pair)
	}
	return pairs, nil
}
