package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/adjudex/adjudex/internal/appeal"
	"github.com/adjudex/adjudex/internal/cache"
	"github.com/adjudex/adjudex/internal/judge"
	"github.com/adjudex/adjudex/internal/ledger"
	"github.com/adjudex/adjudex/internal/model"
	"github.com/adjudex/adjudex/internal/oracle"
	"github.com/adjudex/adjudex/internal/pipeline"
	"github.com/adjudex/adjudex/internal/taxonomy"
)

var (
	ledgerPath   string
	taxonomyPath string
	corpusDir    string
	statsPath    string

	provider    string
	oracleModel string
	baseURL     string
	timeout     time.Duration
	temperature float64

	callsPerMinute int
	maxAttempts    int

	noCache     bool
	noConsensus bool
	noAppeal    bool
	dryRun      bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Adjudicate all pending claims in a ledger",
	Long: `Run pulls every claim whose latest version is pending_judge_review,
adjudicates each against the requirement taxonomy, appeals the rejected
ones with fresh evidence from the source documents, judges the appeal
claims, and writes all transitions back as new ledger versions.

Example:
  adjudex run --ledger ledger.json --taxonomy taxonomy.json --corpus ./corpus
  adjudex run --provider ollama --model llama3.1:8b --no-appeal
  adjudex run --dry-run -v`,
	Args: cobra.NoArgs,
	RunE: runAdjudication,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Input/output flags
	runCmd.Flags().StringVar(&ledgerPath, "ledger", "ledger.json", "path to the version-history ledger")
	runCmd.Flags().StringVar(&taxonomyPath, "taxonomy", "taxonomy.json", "path to the requirement taxonomy")
	runCmd.Flags().StringVar(&corpusDir, "corpus", "corpus", "directory holding source documents for appeals")
	runCmd.Flags().StringVar(&statsPath, "stats", "", "optional run-stats JSON output path")

	// Oracle flags
	runCmd.Flags().StringVar(&provider, "provider", "openai", "oracle provider (openai, anthropic, ollama)")
	runCmd.Flags().StringVar(&oracleModel, "model", "", "oracle model name")
	runCmd.Flags().StringVar(&baseURL, "base-url", "", "custom oracle endpoint")
	runCmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "per-call oracle timeout")
	runCmd.Flags().Float64Var(&temperature, "temperature", 0.2, "sampling temperature for the initial judge")
	runCmd.Flags().IntVar(&callsPerMinute, "cpm", 30, "oracle calls-per-minute budget")
	runCmd.Flags().IntVar(&maxAttempts, "retries", 3, "max attempts per oracle call")

	// Behavior flags
	runCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the prompt cache (force fresh oracle calls)")
	runCmd.Flags().BoolVar(&noConsensus, "no-consensus", false, "disable borderline-score consensus escalation")
	runCmd.Flags().BoolVar(&noAppeal, "no-appeal", false, "disable the appeal phase")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "adjudicate but do not persist ledger changes")
}

func runAdjudication(cmd *cobra.Command, args []string) error {
	cfg := model.DefaultConfig()
	cfg.Paths.Ledger = ledgerPath
	cfg.Paths.Taxonomy = taxonomyPath
	cfg.Paths.Corpus = corpusDir
	cfg.Oracle.Provider = provider
	cfg.Oracle.Model = oracleModel
	cfg.Oracle.BaseURL = baseURL
	cfg.Oracle.Timeout = timeout
	cfg.Oracle.Temperature = temperature
	cfg.RateLimit.CallsPerMinute = callsPerMinute
	cfg.Retry.MaxAttempts = maxAttempts
	cfg.Consensus.Enabled = !noConsensus
	cfg.Appeal.Enabled = !noAppeal
	cfg.Output.Verbose = verbose

	// API keys come from the environment, the same way every provider
	// expects them.
	switch provider {
	case "openai":
		cfg.Oracle.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.Oracle.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.Oracle.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.Oracle.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		if url := os.Getenv("OLLAMA_BASE_URL"); url != "" && cfg.Oracle.BaseURL == "" {
			cfg.Oracle.BaseURL = url
		}
	}

	// Load inputs.
	defs, err := taxonomy.Load(cfg.Paths.Taxonomy)
	if err != nil {
		return err
	}
	index := taxonomy.NewIndex(defs)

	store, err := ledger.Open(cfg.Paths.Ledger)
	if err != nil {
		return err
	}

	// Wire the oracle stack.
	prov, err := oracle.NewProvider(cfg.Oracle)
	if err != nil {
		return err
	}

	var promptCache cache.Cache
	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolve cache dir: %w", err)
			}
			dir = filepath.Join(home, ".adjudex", "cache")
		}
		promptCache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, dir, cfg.Cache.DiskTTL)
	}

	client := oracle.NewClient(prov, cfg.RateLimit, cfg.Retry, promptCache, verbose)

	single := judge.NewSingleJudge(client, index, cfg.Oracle.Temperature, noCache, verbose)
	var adjudicator pipeline.Adjudicator = single
	if cfg.Consensus.Enabled {
		adjudicator = judge.NewCoordinator(single, cfg.Consensus)
	}

	var appealer pipeline.Appealer
	if cfg.Appeal.Enabled {
		loader := appeal.NewFSLoader(cfg.Paths.Corpus)
		appealer = appeal.NewBatcher(client, loader, cfg.Appeal.ChunkSize, noCache, verbose)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Ledger: %s (%d documents)\n", cfg.Paths.Ledger, len(store.Documents()))
		fmt.Fprintf(os.Stderr, "Oracle: %s", prov.Name())
		if cfg.Oracle.Model != "" {
			fmt.Fprintf(os.Stderr, " (%s)", cfg.Oracle.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	// Run.
	p := pipeline.New(store, adjudicator, appealer, dryRun, verbose)
	stats, err := p.Run(context.Background())
	if err != nil {
		return err
	}

	printStats(stats, dryRun)

	if statsPath != "" {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal stats: %w", err)
		}
		if err := os.WriteFile(statsPath, data, 0o644); err != nil {
			return fmt.Errorf("write stats: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote stats: %s\n", statsPath)
		}
	}

	return nil
}

func printStats(stats model.RunStats, dryRun bool) {
	fmt.Println("───────────────────────────────────────────")
	fmt.Printf("  Run %s\n", stats.RunID)
	fmt.Println("───────────────────────────────────────────")
	fmt.Printf("  Pending claims:     %d\n", stats.PendingClaims)
	fmt.Printf("  Initial approved:   %d\n", stats.InitialApproved)
	fmt.Printf("  Initial rejected:   %d\n", stats.InitialRejected)
	fmt.Printf("  Appeals submitted:  %d\n", stats.AppealsSubmitted)
	fmt.Printf("  Appeals approved:   %d\n", stats.AppealsApproved)
	fmt.Printf("  Appeals rejected:   %d\n", stats.AppealsRejected)
	fmt.Printf("  Skipped documents:  %d\n", stats.SkippedDocuments)
	fmt.Printf("  Left pending:       %d\n", stats.LeftPending)
	fmt.Printf("  Consensus votes:    %d\n", stats.ConsensusRuns)
	fmt.Printf("  Human review flags: %d\n", stats.HumanReviewFlags)
	fmt.Printf("  Duration:           %s\n", stats.FinishedAt.Sub(stats.StartedAt).Round(time.Millisecond))
	if dryRun {
		fmt.Println("  (dry run - ledger not modified)")
	}
	fmt.Println("───────────────────────────────────────────")
}
