package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/claimharvest/internal/auth"
	"github.com/ppiankov/claimharvest/internal/cache"
	"github.com/ppiankov/claimharvest/internal/model"
	"github.com/ppiankov/claimharvest/internal/pipeline"
	"github.com/ppiankov/claimharvest/internal/registry"
	"github.com/ppiankov/claimharvest/internal/webpub"
)

var (
	outPath       string
	runLogPath    string
	cacheDir      string
	noCache       bool
	timeout       time.Duration
	userAgent     string
	sleepInterval time.Duration
	maxFail       int
	maxRetries    int
	noSecondary   bool
	noRobots      bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <seeds-file>",
	Short: "Extract claims for a list of publication identifiers",
	Long: `Extract resolves each publication identifier in the input file
(one per line, # comments allowed) to claims text and appends one JSON
record per seed to the output file.

For each seed: the registry is tried across the candidate list (direct
identifier first, then family fallbacks), fetched documents are checked
for claim structure, and on exhaustion the public page source is scraped
as a governed fallback. All fallback records carry provenance flags.

Requires OPS_KEY/OPS_SECRET (or EPO_OPS_KEY/EPO_OPS_SECRET) in the
environment.

Example:
  claimharvest extract seeds.txt --out claims_extraction.jsonl
  claimharvest extract seeds.txt --no-secondary --max-fail 25`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	// Output flags
	extractCmd.Flags().StringVar(&outPath, "out", "claims_extraction.jsonl", "output records path (JSONL, append-only)")
	extractCmd.Flags().StringVar(&runLogPath, "run-log", "", "run log path (default: <out>.runlog.jsonl)")

	// Cache flags
	extractCmd.Flags().StringVar(&cacheDir, "cache-dir", ".claimharvest-cache", "cache root directory")
	extractCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caches (force fresh fetches)")

	// HTTP flags
	extractCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "per-request HTTP timeout")
	extractCmd.Flags().StringVar(&userAgent, "ua", model.DefaultConfig().HTTP.UserAgent, "HTTP User-Agent for the page source")

	// Batch flags
	extractCmd.Flags().DurationVar(&sleepInterval, "sleep", time.Second, "inter-request delay after live fetches")
	extractCmd.Flags().IntVar(&maxFail, "max-fail", 0, "halt after this many failed records (0 = no ceiling)")
	extractCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "transient-failure retry ceiling per request")

	// Fallback flags
	extractCmd.Flags().BoolVar(&noSecondary, "no-secondary", false, "disable the public page fallback")
	extractCmd.Flags().BoolVar(&noRobots, "no-robots", false, "skip the robots.txt check before page fetches")
}

func runExtract(cmd *cobra.Command, args []string) error {
	creds, err := model.LoadCredentials()
	if err != nil {
		return err
	}

	seeds, err := readSeeds(args[0])
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return fmt.Errorf("no seeds found in %s", args[0])
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = timeout
	cfg.HTTP.UserAgent = userAgent
	cfg.Cache.Enabled = !noCache
	cfg.Cache.Dir = cacheDir
	cfg.Registry.MaxRetries = maxRetries
	cfg.Secondary.Enabled = !noSecondary
	cfg.Secondary.CheckRobots = !noRobots
	cfg.Batch.Sleep = sleepInterval
	cfg.Batch.MaxFail = maxFail
	cfg.Output.RecordsPath = outPath
	cfg.Output.RunLogPath = runLogPath
	cfg.Output.Verbose = verbose

	p, err := buildPipeline(cfg, creds, logger)
	if err != nil {
		return err
	}

	w, err := pipeline.NewWriter(cfg.Output.RecordsPath, cfg.Output.RunLogPath)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if verbose {
		fmt.Fprintf(os.Stderr, "Seeds: %d\n", len(seeds))
		fmt.Fprintf(os.Stderr, "Output: %s\n", cfg.Output.RecordsPath)
		fmt.Fprintf(os.Stderr, "Secondary fallback: %v\n\n", cfg.Secondary.Enabled)
	}

	sum, err := p.Run(context.Background(), seeds, w)
	if err != nil {
		return fmt.Errorf("batch run: %w", err)
	}

	printSummary(sum)
	logger.Info("batch complete",
		zap.Int("total", sum.Total),
		zap.Int("ok", sum.OK),
		zap.Int("fallback", sum.Fallback),
		zap.Int("failed", sum.Failed),
		zap.Bool("halted", sum.Halted))
	return nil
}

// buildPipeline wires the token source, caches, registry client and
// page fetcher into a batch pipeline.
func buildPipeline(cfg model.Config, creds model.Credentials, logger *zap.Logger) (*pipeline.Pipeline, error) {
	tokens := auth.NewTokenSource(cfg.Registry.TokenURL, creds.Key, creds.Secret, cfg.HTTP.Timeout, logger)

	if !cfg.Cache.Enabled {
		// Success-only caching still needs a scratch store within the run.
		dir, err := os.MkdirTemp("", "claimharvest-*")
		if err != nil {
			return nil, fmt.Errorf("create scratch cache: %w", err)
		}
		cfg.Cache.Dir = dir
	}

	claimsStore := cache.NewLayeredStore(cache.NewDiskStore(cfg.Cache.ClaimsDir(), ".xml"), 15*time.Minute)
	familyStore := cache.NewLayeredStore(cache.NewDiskStore(cfg.Cache.FamilyDir(), ".json"), 15*time.Minute)
	textStore := cache.NewLayeredStore(cache.NewDiskStore(cfg.Cache.SecondaryDir(), ".txt"), 15*time.Minute)

	reg := registry.NewClient(cfg.Registry.BaseURL, cfg.HTTP.Timeout, tokens, claimsStore, familyStore, cfg.Registry.MaxRetries, logger)

	var secondary pipeline.SecondarySource
	if cfg.Secondary.Enabled {
		var robots webpub.RobotsPolicy
		if cfg.Secondary.CheckRobots {
			robots = webpub.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
		}
		secondary = webpub.NewFetcher(cfg.Secondary.BaseURL, cfg.HTTP.Timeout, cfg.HTTP.UserAgent, textStore, cfg.Secondary.MaxRetries, robots, logger)
	}

	return pipeline.New(cfg, reg, secondary, claimsStore, textStore, logger), nil
}

// readSeeds loads one identifier per line, skipping blanks and comments.
func readSeeds(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seeds file: %w", err)
	}
	var seeds []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seeds = append(seeds, line)
	}
	return seeds, nil
}

func printSummary(sum pipeline.Summary) {
	fmt.Printf("Total:    %d\n", sum.Total)
	fmt.Printf("Primary:  %d\n", sum.OK)
	fmt.Printf("Fallback: %d\n", sum.Fallback)
	fmt.Printf("Failed:   %d\n", sum.Failed)
	if sum.Halted {
		fmt.Println("Halted:   failure ceiling reached")
	}
	if len(sum.ByReason) > 0 {
		reasons := make([]string, 0, len(sum.ByReason))
		for r := range sum.ByReason {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		fmt.Println("\nFailures by reason:")
		for _, r := range reasons {
			fmt.Printf("  %-40s %d\n", r, sum.ByReason[r])
		}
	}
}
