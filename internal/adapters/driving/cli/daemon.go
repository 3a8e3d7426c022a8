package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driving"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/logger"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run passes on a schedule and retry pending files as they appear",
	Long: `Runs a both-direction pass on start and then every sync interval.
Rendered files dropped into the pending directory are retried as soon as
they land. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	orch, err := requireSync()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	if pendingDir != "" {
		g.Go(func() error {
			return watchPending(ctx, pendingDir, func(ctx context.Context) bool {
				return retryPending(ctx, orch)
			})
		})
	}

	if scheduler != nil {
		g.Go(func() error {
			// Cancellation is the normal way out.
			if err := scheduler.Start(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return scheduler.Stop()
		})
	}

	cmd.Println("Daemon running. Press Ctrl+C to stop.")
	err = g.Wait()
	cmd.Println("Daemon stopped.")
	return err
}

// retryPending reports false when the retry should be attempted again later.
func retryPending(ctx context.Context, orch driving.SyncOrchestrator) bool {
	report, err := orch.RetryPending(ctx)
	switch {
	case errors.Is(err, domain.ErrPassInProgress):
		logger.Debug("pending retry deferred: %v", err)
		return false
	case err != nil:
		logger.Warn("pending retry failed: %v", err)
	case report != nil:
		_, advanced, _, failed := report.Snapshot()
		logger.Info("Pending retry: %d uploaded, %d failed", advanced, failed)
	}
	return true
}
