package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/config"
	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/domain"
	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/extract"
	slackbot "github.com/Mindbaseeducation/khotwa-email-review-app/internal/integrations/slack"
	llm "github.com/Mindbaseeducation/khotwa-email-review-app/internal/integrations/llm"
	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/review"
	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/sheet"
	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/storage/sqlite"
	"github.com/slack-go/slack"
)

// DefaultOutputName is the export file name when none is given.
const DefaultOutputName = "Email_Reviewed.xlsx"

// slackOptions is extended by tests to point the notifier at a fake API.
var slackOptions []slack.Option

func promptBuilder(cfg config.Config) extract.PromptBuilder {
	return extract.PromptBuilder{
		Policy:          cfg.HandoverPolicy,
		SenderDomain:    cfg.SenderDomain,
		RecipientDomain: cfg.RecipientDomain,
		SummaryMinWords: cfg.SummaryMinWords,
	}
}

func reviewOptions(cfg config.Config) review.Options {
	return review.Options{
		Prompt:         promptBuilder(cfg),
		Concurrency:    cfg.LLMConcurrency,
		CallTimeout:    cfg.LLMCallTimeout(),
		BackfillShared: cfg.BackfillSharedFields,
	}
}

type runResult struct {
	OutputPath string
	Report     review.Report
	Usage      llm.LLMUsage
}

// runReview reads input, reviews every email and writes the export. Only
// input and export problems are errors; failed emails end up in the report.
func runReview(ctx context.Context, cfg config.Config, gen usageGenerator, input, output string) (runResult, error) {
	items, err := sheet.ReadInputItems(input, sheet.ReadOptions{Column: cfg.EmailColumn, Sheet: cfg.InputSheet})
	if err != nil {
		return runResult{}, fmt.Errorf("read %s: %w", input, err)
	}
	log.Printf("review input=%s items=%d", input, len(items))

	before := gen.Usage()
	rows, report := review.NewReviewer(gen, reviewOptions(cfg)).Run(ctx, items)
	usage := usageSince(before, gen.Usage())

	if output == "" {
		output = filepath.Join(cfg.OutputDir, DefaultOutputName)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return runResult{}, fmt.Errorf("create output dir: %w", err)
	}
	if err := exportRows(output, rows); err != nil {
		return runResult{}, fmt.Errorf("export %s: %w", output, err)
	}
	log.Printf("review export run=%s file=%s rows=%d calls=%d input_tokens=%d output_tokens=%d",
		report.RunID, output, len(rows), usage.Calls, usage.InputTokens, usage.OutputTokens)

	result := runResult{OutputPath: output, Report: report, Usage: usage}
	if cfg.SlackConfigured() {
		notifier := slackbot.NewNotifier(cfg.SlackBotToken, cfg.SlackChannelID, slackOptions...)
		if err := notifier.Deliver(ctx, output, report, usage); err != nil {
			// The export stays on disk either way.
			log.Printf("slack delivery error run=%s: %v", report.RunID, err)
		}
	}
	return result, nil
}

// exportRows picks the sink from the output file extension.
func exportRows(path string, rows []domain.OutputRow) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return sheet.WriteXLSX(path, rows)
	case ".csv":
		return sheet.WriteCSV(path, rows)
	case ".db", ".sqlite":
		return sqlite.WriteRows(path, rows)
	default:
		return fmt.Errorf("%w: %s", sheet.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func usageSince(before, after llm.LLMUsage) llm.LLMUsage {
	return llm.LLMUsage{
		Calls:                    after.Calls - before.Calls,
		InputTokens:              after.InputTokens - before.InputTokens,
		OutputTokens:             after.OutputTokens - before.OutputTokens,
		CacheCreationInputTokens: after.CacheCreationInputTokens - before.CacheCreationInputTokens,
		CacheReadInputTokens:     after.CacheReadInputTokens - before.CacheReadInputTokens,
	}
}

func scheduledOutputPath(dir string, firedAt time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("Email_Reviewed_%s.xlsx", firedAt.Format("20060102_1504")))
}
