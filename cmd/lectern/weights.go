package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/scoring"
)

var weightsFlags struct {
	profile string
	json    bool
}

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Validate the declared weights of a dimension profile",
	Args:  cobra.NoArgs,
	RunE:  runWeights,
}

func init() {
	weightsCmd.Flags().StringVar(&weightsFlags.profile, "profile", "", "Dimension profile (fast, balanced, full)")
	weightsCmd.Flags().BoolVar(&weightsFlags.json, "json", false, "Print the validation report as JSON")
}

func runWeights(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("profile") {
		cfg.Analysis.Profile = weightsFlags.profile
	}
	sc, err := cfg.Sampling()
	if err != nil {
		return err
	}
	comp, err := newComponents(cfg, sc, nil, nil, nil, logger)
	if err != nil {
		return err
	}

	rep := comp.Analyzer.Weights()
	out := cmd.OutOrStdout()
	if weightsFlags.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printWeights(out, string(sc.Profile), rep)
	return nil
}

func printWeights(w io.Writer, profile string, rep scoring.ValidationReport) {
	status := "VALID"
	if !rep.IsValid {
		status = "INVALID"
	}
	fmt.Fprintf(w, "Profile %s: %s (total %.2f, expected %.2f, tolerance %.2f)\n\n",
		profile, status, rep.TotalWeight, rep.ExpectedWeight, rep.Tolerance)

	names := make([]string, 0, len(rep.DimensionWeights))
	width := 0
	for name := range rep.DimensionWeights {
		names = append(names, name)
		if n := runewidth.StringWidth(name); n > width {
			width = n
		}
	}
	sort.Strings(names)

	for _, tier := range dimension.Tiers {
		tw, ok := rep.DimensionsByTier[tier]
		if !ok || tw.DimensionCount == 0 {
			continue
		}
		fmt.Fprintf(w, "%s (%.2f)\n", tier, tw.TotalWeight)
		for _, name := range tw.Dimensions {
			fmt.Fprintf(w, "  %s %6.2f\n", runewidth.FillRight(name, width), rep.DimensionWeights[name])
		}
	}

	for _, v := range rep.Errors {
		fmt.Fprintf(w, "\nerror: %s", v)
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintf(w, "\nwarning: %s", warn)
	}
	if len(rep.SuggestedRebalancing) > 0 {
		fmt.Fprintln(w, "\n\nSuggested rebalancing:")
		for _, name := range names {
			fmt.Fprintf(w, "  %s %6.2f\n", runewidth.FillRight(name, width), rep.SuggestedRebalancing[name])
		}
	} else if len(rep.Errors)+len(rep.Warnings) > 0 {
		fmt.Fprintln(w)
	}
}
