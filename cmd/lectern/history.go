package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history <file>",
	Short: "Show the recorded score history of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print the history as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	hs, err := newHistory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer hs.Close()

	h, err := hs.Load(ctx, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(h)
	}

	if len(h.Snapshots) == 0 {
		fmt.Fprintf(out, "No history recorded for %s\n", args[0])
		return nil
	}
	fmt.Fprintf(out, "History for %s (%d runs)\n\n", args[0], len(h.Snapshots))
	for _, s := range h.Snapshots {
		fmt.Fprintf(out, "%s  quality %5.1f  detection %5.1f  words %6d  %s\n",
			s.Timestamp.Local().Format(time.DateTime), s.Quality, s.Detection, s.TotalWords, s.Notes)
	}
	t := h.Trend()
	fmt.Fprintf(out, "\nTrend: quality %s (%+.1f), detection %s (%+.1f)\n",
		t.Quality, t.QualityChange, t.Detection, t.DetectionChange)
	return nil
}
