package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync passes",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of passes to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if historyStore == nil {
		return errors.New("history store not configured")
	}

	passes, err := historyStore.ListPasses(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list passes: %w", err)
	}
	if len(passes) == 0 {
		cmd.Println("No passes recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tMODE\tDURATION\tPROCESSED\tADVANCED\tSKIPPED\tFAILED\tERROR")
	for _, p := range passes {
		duration := "-"
		if !p.EndedAt.IsZero() {
			duration = p.EndedAt.Sub(p.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			p.StartedAt.Local().Format(time.DateTime), p.Mode, duration,
			p.Processed, p.Advanced, p.Skipped, p.Failed, p.Error)
	}
	return tw.Flush()
}
