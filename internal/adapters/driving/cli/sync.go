package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driving"
)

// progressInterval is how often a running pass is polled for progress.
var progressInterval = 500 * time.Millisecond

var syncMode string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass",
	Long: `Runs a single sync pass.

  push  uploads PDFs of items tagged to_sync to the tablet's Unread folder
  pull  renders documents in the tablet's Read folder and attaches them back
  both  push, then pull (default)`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List PDFs of items that have been read on the tablet",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var retryPendingCmd = &cobra.Command{
	Use:   "retry-pending",
	Short: "Retry uploading rendered files kept in the pending directory",
	Args:  cobra.NoArgs,
	RunE:  runRetryPending,
}

func init() {
	syncCmd.Flags().StringVarP(&syncMode, "mode", "m", string(domain.ModeBoth), "pass direction: push, pull or both")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(retryPendingCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	orch, err := requireSync()
	if err != nil {
		return err
	}
	mode, err := domain.ParseMode(syncMode)
	if err != nil {
		return err
	}

	cmd.Printf("Running %s pass...\n", mode)
	report, err := passWithProgress(cmd, orch, func(ctx context.Context) (*domain.PassReport, error) {
		return orch.RunPass(ctx, mode)
	})
	return finishPass(cmd, report, err)
}

func runRetryPending(cmd *cobra.Command, _ []string) error {
	orch, err := requireSync()
	if err != nil {
		return err
	}

	cmd.Println("Retrying pending files...")
	report, err := orch.RetryPending(cmd.Context())
	return finishPass(cmd, report, err)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	orch, err := requireSync()
	if err != nil {
		return err
	}

	names, err := orch.SyncStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}
	if len(names) == 0 {
		cmd.Println("No read items.")
		return nil
	}
	cmd.Printf("%d read PDF(s):\n", len(names))
	for _, name := range names {
		cmd.Printf("  %s\n", name)
	}
	return nil
}

// passWithProgress runs pass while displaying progress updates.
func passWithProgress(
	cmd *cobra.Command,
	orch driving.SyncOrchestrator,
	pass func(ctx context.Context) (*domain.PassReport, error),
) (*domain.PassReport, error) {
	ctx := cmd.Context()

	type result struct {
		report *domain.PassReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := pass(ctx)
		done <- result{report, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case res := <-done:
			return res.report, res.err
		case <-ticker.C:
			// Progress is best effort.
			status, err := orch.Status(ctx)
			if err == nil && status != nil && status.Running && status.Processed > lastCount {
				cmd.Printf("\rProcessing... %d done, %d errors", status.Processed, status.ErrorCount)
				lastCount = status.Processed
			}
		}
	}
}

// finishPass prints a pass summary and maps the pass error.
func finishPass(cmd *cobra.Command, report *domain.PassReport, err error) error {
	if errors.Is(err, domain.ErrPassInProgress) {
		return fmt.Errorf("another pass is running: %w", err)
	}
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("pass failed: %w", err)
	}
	return nil
}

func printReport(cmd *cobra.Command, report *domain.PassReport) {
	processed, advanced, skipped, failed := report.Snapshot()
	cmd.Printf("\nPass %s (%s): %d processed, %d advanced, %d skipped, %d failed\n",
		report.ID, report.Mode, processed, advanced, skipped, failed)
	for _, f := range report.Failures {
		cmd.Printf("  - %s\n", f)
	}
}
