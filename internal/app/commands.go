package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/schedule"
	"github.com/spf13/cobra"
)

func newReviewCmd() *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "review --input <file> [--output <file>]",
		Short: "Review every email of a spreadsheet",
		Long: `Review reads the email column of an .xlsx or .csv file, sends each email to
the configured model and writes one row per extracted case.

The export format follows the output extension: .xlsx, .csv, or .db/.sqlite.
Emails whose review failed are written as a single row of "Error" values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gen, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := runReview(ctx, cfg, gen, input, output)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "spreadsheet holding the emails (.xlsx or .csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "export path (default <output_dir>/"+DefaultOutputName+")")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func printResult(w io.Writer, result runResult) {
	fmt.Fprintln(w, result.Report.Summary())
	for _, d := range result.Report.Failures {
		fmt.Fprintf(w, "  %s\n", d)
	}
	fmt.Fprintf(w, "Saved to: %s\n", result.OutputPath)
}

func newPromptCmd() *cobra.Command {
	var emailPath string
	cmd := &cobra.Command{
		Use:   "prompt --email <file|->",
		Short: "Print the review prompt built for one email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var data []byte
			if emailPath == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(emailPath)
			}
			if err != nil {
				return fmt.Errorf("reading email: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), promptBuilder(cfg).Build(string(data)))
			return nil
		},
	}
	cmd.Flags().StringVar(&emailPath, "email", "-", "file holding the email text, or - for stdin")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Review review_input_path on the review_schedule cron",
		Long: `Schedule runs a review of review_input_path every time review_schedule fires,
writing Email_Reviewed_<timestamp>.xlsx into output_dir and delivering it to
Slack when configured. It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gen, err := setup()
			if err != nil {
				return err
			}
			if cfg.ReviewSchedule == "" {
				return fmt.Errorf("review_schedule is not set")
			}
			if cfg.ReviewInputPath == "" {
				return fmt.Errorf("review_input_path is required by schedule")
			}
			runner, err := schedule.New(cfg.ReviewSchedule, cfg.Location)
			if err != nil {
				return fmt.Errorf("invalid review_schedule: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = runner.Run(ctx, func(ctx context.Context, firedAt time.Time) error {
				result, err := runReview(ctx, cfg, gen, cfg.ReviewInputPath, scheduledOutputPath(cfg.OutputDir, firedAt))
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), result)
				return nil
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "email-review %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
		},
	}
}
