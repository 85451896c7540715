package review

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/domain"
	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/extract"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Generator is the text-generation service: one prompt in, the full reply
// out. Implementations must honour ctx.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type Options struct {
	Prompt extract.PromptBuilder
	// Concurrency bounds in-flight Generate calls. Values below 2 keep the
	// strictly sequential behaviour.
	Concurrency int
	// CallTimeout bounds each Generate call; zero means no extra deadline.
	CallTimeout time.Duration
	// BackfillShared copies empty shared fields of the 2nd+ record of an
	// email from its first record.
	BackfillShared bool
}

func DefaultOptions() Options {
	return Options{
		Prompt:      extract.DefaultPromptBuilder(),
		Concurrency: 1,
	}
}

// Diagnostic describes one email whose generation call failed.
type Diagnostic struct {
	Index     int // 0-based position in the batch
	SourceRow int
	Err       error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("email %d (sheet row %d): review failed: %v", d.Index+1, d.SourceRow, d.Err)
}

type Report struct {
	RunID      string
	Items      int
	Rows       int
	Empty      int // emails that produced no case
	Failures   []Diagnostic
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r Report) Summary() string {
	return fmt.Sprintf("reviewed %d emails into %d rows (%d without a case, %d failed) in %s",
		r.Items, r.Rows, r.Empty, len(r.Failures), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}

type Reviewer struct {
	gen  Generator
	opts Options
}

func NewReviewer(gen Generator, opts Options) *Reviewer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if len(opts.Prompt.Policy.Priority) == 0 {
		opts.Prompt.Policy = domain.DefaultHandoverPolicy()
	}
	return &Reviewer{gen: gen, opts: opts}
}

type itemResult struct {
	rows []domain.OutputRow
	err  error
}

// Run reviews every item and returns the rows grouped by item in input
// order, each group in the order the model emitted its records. A failed
// generation call becomes a single all-"Error" row; Run itself never fails.
func (r *Reviewer) Run(ctx context.Context, items []domain.InputItem) ([]domain.OutputRow, Report) {
	report := Report{
		RunID:     uuid.NewString(),
		Items:     len(items),
		StartedAt: time.Now(),
	}
	log.Printf("review start run=%s items=%d concurrency=%d", report.RunID, len(items), r.opts.Concurrency)

	results := make([]itemResult, len(items))
	if r.opts.Concurrency < 2 {
		for i, item := range items {
			results[i] = r.reviewItem(ctx, report.RunID, i, item)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.opts.Concurrency)
		for i, item := range items {
			i, item := i, item
			g.Go(func() error {
				results[i] = r.reviewItem(ctx, report.RunID, i, item)
				return nil
			})
		}
		g.Wait()
	}

	var rows []domain.OutputRow
	for i, res := range results {
		if res.err != nil {
			report.Failures = append(report.Failures, Diagnostic{Index: i, SourceRow: items[i].Row, Err: res.err})
		} else if len(res.rows) == 0 {
			report.Empty++
		}
		rows = append(rows, res.rows...)
	}
	report.Rows = len(rows)
	report.FinishedAt = time.Now()
	log.Printf("review done run=%s %s", report.RunID, report.Summary())
	return rows, report
}

func (r *Reviewer) reviewItem(ctx context.Context, runID string, index int, item domain.InputItem) itemResult {
	prompt := r.opts.Prompt.Build(item.Email)

	response, err := r.generate(ctx, prompt)
	if err != nil {
		log.Printf("review item failed run=%s item=%d row=%d err=%v", runID, index, item.Row, err)
		return itemResult{
			rows: []domain.OutputRow{{Email: item.Email, Record: domain.ErrorRecord()}},
			err:  err,
		}
	}

	records := extract.ParseResponse(response)
	if len(records) == 0 {
		log.Printf("review item empty run=%s item=%d row=%d response_chars=%d", runID, index, item.Row, len(response))
		return itemResult{}
	}
	if r.opts.BackfillShared {
		backfillShared(records)
	}

	rows := make([]domain.OutputRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, domain.OutputRow{Email: item.Email, Record: normalize(rec, r.opts.Prompt.Policy)})
	}
	return itemResult{rows: rows}
}

func (r *Reviewer) generate(ctx context.Context, prompt string) (text string, err error) {
	if r.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.CallTimeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("generation panicked: %v", p)
		}
	}()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return r.gen.Generate(ctx, prompt)
}
