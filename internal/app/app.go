package app

import (
	"fmt"
	"log"
	"os"

	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/config"
	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/httpx"
	llm "github.com/Mindbaseeducation/khotwa-email-review-app/internal/integrations/llm"
	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/review"
	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// usageGenerator is a review.Generator that also reports token usage.
type usageGenerator interface {
	review.Generator
	Usage() llm.LLMUsage
}

var (
	loadConfig   = config.Load
	newGenerator = func(cfg config.Config) (usageGenerator, error) {
		return llm.NewClient(cfg)
	}
)

func Main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "email-review",
		Short: "Review Khotwa case emails into a structured spreadsheet",
		Long: `email-review sends each email thread of a spreadsheet to a language model,
parses the structured case records it returns and exports one row per case.

Configuration is read from config.yaml (or CONFIG_PATH) with environment
overrides.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newReviewCmd(),
		newPromptCmd(),
		newScheduleCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration and builds the generation client shared by
// the run commands.
func setup() (config.Config, usageGenerator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.Config{}, nil, err
	}
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Provider=%s Model=%s Concurrency=%d CallTimeout=%s Backfill=%t HandoverPolicy=%q OutputDir=%s Slack=%t ExternalHTTPTimeout=%s",
		cfg.LLMProvider,
		cfg.LLMModel,
		cfg.LLMConcurrency,
		cfg.LLMCallTimeout(),
		cfg.BackfillSharedFields,
		cfg.HandoverPolicy.String(),
		cfg.OutputDir,
		cfg.SlackConfigured(),
		appliedHTTPTimeout,
	)

	gen, err := newGenerator(cfg)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init llm client: %w", err)
	}
	return cfg, gen, nil
}
