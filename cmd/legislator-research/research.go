package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/civicdata/legislator-research/internal/ledger"
	"github.com/civicdata/legislator-research/internal/pipeline"
	"github.com/civicdata/legislator-research/internal/research"
	"github.com/civicdata/legislator-research/pkg/types"
)

const (
	defaultDataDir     = "openstates-people"
	defaultOutputDir   = "."
	defaultMaxPeople   = 10
	defaultDelay       = 1 * time.Second
	defaultClaudeModel = "claude-sonnet-4-20250514"
	defaultOpenAIModel = "gpt-4o-mini"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Run a research batch over the people dataset",
	Long: `Research walks the people dataset, skips legislators whose research
output already exists, and processes the rest one at a time through the
configured AI backend, writing one result file per person.

The run exits zero when it completes, even if individual people failed;
their error-variant result files and the run ledger record the failures.
A non-zero exit means a structural problem: unreadable dataset, unwritable
output root, or a missing API credential.`,
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().String("data-dir", defaultDataDir, "root of the OpenStates people dataset")
	researchCmd.Flags().String("output-dir", defaultOutputDir, "root of the research output tree")
	researchCmd.Flags().String("locale", "", "restrict the run to one jurisdiction code (empty = all)")
	researchCmd.Flags().Int("max", defaultMaxPeople, "maximum number of people to newly process")
	researchCmd.Flags().Bool("force", false, "reprocess people whose research output already exists")
	researchCmd.Flags().String("backend", string(types.BackendClaude), "research backend: claude or openai")
	researchCmd.Flags().String("model", "", "AI model identifier (default depends on backend)")
	researchCmd.Flags().String("api-key", "", "API key (default: .secrets/ file or environment)")
	researchCmd.Flags().Bool("web-search", false, "enable the backend's web-search tool (claude only)")
	researchCmd.Flags().Duration("delay", defaultDelay, "pause between consecutive backend calls")
	researchCmd.Flags().Duration("timeout", 0, "per-call API timeout (default 2m)")
	researchCmd.Flags().Bool("no-ledger", false, "skip recording the run in the SQLite ledger")

	rootCmd.AddCommand(researchCmd)
}

// runIdentifier tags results and ledger rows. CI runs carry their run
// number; everything else is "local".
func runIdentifier() string {
	if id := os.Getenv("GITHUB_RUN_ID"); id != "" {
		return id
	}
	return "local"
}

func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	locale, _ := cmd.Flags().GetString("locale")
	maxPeople, _ := cmd.Flags().GetInt("max")
	force, _ := cmd.Flags().GetBool("force")

	cfg := types.PipelineConfig{
		DataDir:   dataDir,
		OutputDir: outputDir,
		Locale:    locale,
		MaxPeople: maxPeople,
		Force:     force,
	}
	if delayFlag := cmd.Flags().Lookup("delay"); delayFlag != nil {
		cfg.RequestDelay, _ = cmd.Flags().GetDuration("delay")
	}
	return cfg
}

func researchConfig(cmd *cobra.Command) (types.ResearchConfig, error) {
	backend, _ := cmd.Flags().GetString("backend")
	model, _ := cmd.Flags().GetString("model")
	apiKey, _ := cmd.Flags().GetString("api-key")
	webSearch, _ := cmd.Flags().GetBool("web-search")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if model == "" {
		model = viper.GetString("model")
	}

	cfg := types.ResearchConfig{
		AIConfig: types.AIConfig{
			Model:   model,
			Timeout: timeout,
		},
		Backend:   types.BackendKind(backend),
		WebSearch: webSearch,
		RunID:     runIdentifier(),
	}

	switch cfg.Backend {
	case types.BackendClaude:
		if cfg.Model == "" {
			cfg.Model = defaultClaudeModel
		}
		cfg.APIKey = apiKeyFor(apiKey, "anthropic-api-key", "ANTHROPIC_API_KEY")
	case types.BackendOpenAI:
		if cfg.Model == "" {
			cfg.Model = defaultOpenAIModel
		}
		cfg.APIKey = apiKeyFor(apiKey, "openai-api-key", "OPENAI_API_KEY")
	default:
		return cfg, fmt.Errorf("unknown backend %q (want claude or openai)", backend)
	}

	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("no API key for backend %q: set --api-key, a .secrets/ file, or the environment variable", backend)
	}
	return cfg, nil
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)

	rcfg, err := researchConfig(cmd)
	if err != nil {
		return err
	}

	inv, err := research.NewInvoker(rcfg)
	if err != nil {
		return err
	}

	// Interrupts abort between items; already-written results stay valid.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder pipeline.Recorder
	var store *ledger.Store
	if noLedger, _ := cmd.Flags().GetBool("no-ledger"); !noLedger {
		store, err = ledger.Open(cfg.OutputDir, rcfg.RunID)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = store
	}

	started := time.Now()
	summary, runErr := pipeline.Run(ctx, cfg, inv, recorder, os.Stdout)

	if store != nil {
		if err := store.FinishRun(cfg.Locale, started, time.Now(), summary); err != nil {
			fmt.Fprintf(os.Stderr, "warning: recording run summary: %v\n", err)
		}
	}

	return runErr
}
