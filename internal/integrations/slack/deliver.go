package slackbot

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	llm "github.com/Mindbaseeducation/khotwa-email-review-app/internal/integrations/llm"
	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/review"
	"github.com/slack-go/slack"
)

// maxListedFailures caps the failure lines posted after an upload.
const maxListedFailures = 20

// Notifier shares finished exports with a Slack channel.
type Notifier struct {
	api     *slack.Client
	channel string
}

func NewNotifier(token, channel string, options ...slack.Option) *Notifier {
	return &Notifier{
		api:     slack.New(token, options...),
		channel: channel,
	}
}

// Deliver uploads the export at path with the run summary as its comment,
// then posts the failed emails, if any, as a follow-up message.
func (n *Notifier) Deliver(ctx context.Context, path string, report review.Report, usage llm.LLMUsage) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat export: %w", err)
	}
	if fi.Size() <= 0 {
		return fmt.Errorf("export file is empty: %s", path)
	}

	_, err = n.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		File:           path,
		FileSize:       int(fi.Size()),
		Filename:       filepath.Base(path),
		Channel:        n.channel,
		Title:          "Email review " + report.StartedAt.Format("2006-01-02 15:04"),
		InitialComment: uploadComment(report, usage),
	})
	if err != nil {
		return fmt.Errorf("upload export: %w", err)
	}
	log.Printf("slack upload done run=%s channel=%s file=%s", report.RunID, n.channel, filepath.Base(path))

	if len(report.Failures) == 0 {
		return nil
	}
	if _, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(failureMessage(report), false)); err != nil {
		return fmt.Errorf("post failures: %w", err)
	}
	return nil
}

func uploadComment(report review.Report, usage llm.LLMUsage) string {
	return fmt.Sprintf("%s (run %s, tokens used: %s)", capitalize(report.Summary()), report.RunID, formatTokenCount(usage.TotalTokens()))
}

func failureMessage(report review.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d email(s) could not be reviewed and were written as Error rows:\n", len(report.Failures))
	for i, d := range report.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "...and %d more", len(report.Failures)-maxListedFailures)
			break
		}
		b.WriteString("• " + d.String() + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatTokenCount(tokens int64) string {
	if tokens < 1000 {
		return fmt.Sprintf("%d", tokens)
	}
	rounded := (tokens + 50) / 100
	whole := rounded / 10
	decimal := rounded % 10
	if decimal == 0 {
		return fmt.Sprintf("%dk", whole)
	}
	return fmt.Sprintf("%d.%dk", whole, decimal)
}
