package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Lectern/internal/analyzer"
	"github.com/MikeSquared-Agency/Lectern/internal/config"
	"github.com/MikeSquared-Agency/Lectern/internal/report"
	"github.com/MikeSquared-Agency/Lectern/internal/store"
)

var analyzeFlags struct {
	format          string
	mode            string
	samples         int
	sampleChars     int
	strategy        string
	profile         string
	overrides       []string
	tolerance       float64
	qualityTarget   float64
	detectionTarget float64
	history         bool
	notes           string
	raw             bool
	width           int
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a document and print the report",
	Long: `Analyze runs every dimension of the selected profile over a document and
prints the full report. Use "-" to read from stdin.

Examples:
  lectern analyze draft.md
  lectern analyze --format text --mode full draft.md
  lectern analyze --profile full --override predictability=4000 --history draft.md`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.format, "format", "f", "markdown", "Output format (json, markdown, text)")
	f.StringVar(&analyzeFlags.mode, "mode", "", "Analysis mode (fast, adaptive, sampling, full)")
	f.IntVar(&analyzeFlags.samples, "samples", 0, "Number of samples in sampling mode")
	f.IntVar(&analyzeFlags.sampleChars, "sample-chars", 0, "Characters per sample")
	f.StringVar(&analyzeFlags.strategy, "strategy", "", "Sampling strategy (even, weighted, adaptive)")
	f.StringVar(&analyzeFlags.profile, "profile", "", "Dimension profile (fast, balanced, full)")
	f.StringSliceVar(&analyzeFlags.overrides, "override", nil, "Per-dimension character limit, as name=chars")
	f.Float64Var(&analyzeFlags.tolerance, "tolerance", 0, "Accepted deviation of the weight total from 100")
	f.Float64Var(&analyzeFlags.qualityTarget, "quality-target", 0, "Quality score to plan towards")
	f.Float64Var(&analyzeFlags.detectionTarget, "detection-target", 0, "Detection risk to plan towards")
	f.BoolVar(&analyzeFlags.history, "history", false, "Record this run in the document's score history")
	f.StringVar(&analyzeFlags.notes, "notes", "", "Notes stored with the history entry")
	f.BoolVar(&analyzeFlags.raw, "raw", false, "Print markdown without terminal styling")
	f.IntVar(&analyzeFlags.width, "width", 100, "Word wrap width for styled markdown")
}

// applyAnalyzeFlags overlays the flags the user set onto c.
func applyAnalyzeFlags(cmd *cobra.Command, c *config.Config) error {
	f := cmd.Flags()
	if f.Changed("mode") {
		c.Analysis.Mode = analyzeFlags.mode
	}
	if f.Changed("samples") {
		c.Analysis.Samples = analyzeFlags.samples
	}
	if f.Changed("sample-chars") {
		c.Analysis.SampleChars = analyzeFlags.sampleChars
	}
	if f.Changed("strategy") {
		c.Analysis.Strategy = analyzeFlags.strategy
	}
	if f.Changed("profile") {
		c.Analysis.Profile = analyzeFlags.profile
	}
	if f.Changed("tolerance") {
		c.Scoring.Tolerance = analyzeFlags.tolerance
	}
	if f.Changed("quality-target") {
		c.Scoring.QualityTarget = analyzeFlags.qualityTarget
	}
	if f.Changed("detection-target") {
		c.Scoring.DetectionTarget = analyzeFlags.detectionTarget
	}
	overrides, err := parseOverrides(analyzeFlags.overrides)
	if err != nil {
		return err
	}
	if len(overrides) > 0 && c.Analysis.Overrides == nil {
		c.Analysis.Overrides = make(map[string]int, len(overrides))
	}
	for k, v := range overrides {
		c.Analysis.Overrides[k] = v
	}
	return nil
}

func parseOverrides(pairs []string) (map[string]int, error) {
	out := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid override %q: want name=chars", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid override %q: chars must be a positive integer", pair)
		}
		out[strings.ToLower(strings.TrimSpace(name))] = n
	}
	return out, nil
}

func readDocument(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := report.ParseFormat(analyzeFlags.format)
	if err != nil {
		return err
	}
	if err := applyAnalyzeFlags(cmd, cfg); err != nil {
		return err
	}
	sc, err := cfg.Sampling()
	if err != nil {
		return err
	}

	var hs store.Store
	if analyzeFlags.history {
		hs, err = newHistory(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer hs.Close()
	}

	comp, err := newComponents(cfg, sc, hs, nil, nil, logger)
	if err != nil {
		return err
	}

	path := args[0]
	text, err := readDocument(path, cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	docPath := path
	if path == "-" {
		docPath = ""
	}

	res, err := comp.Analyzer.Analyze(ctx, analyzer.Document{Path: docPath, Text: text}, analyzer.Options{
		RecordHistory: analyzeFlags.history,
		Notes:         analyzeFlags.notes,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := printReport(out, res.Report, format); err != nil {
		return err
	}
	if res.Trend != nil && format != report.FormatJSON {
		fmt.Fprintf(out, "\nTrend: quality %s (%+.1f), detection %s (%+.1f)\n",
			res.Trend.Quality, res.Trend.QualityChange, res.Trend.Detection, res.Trend.DetectionChange)
	}
	if !res.Certified {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: dimension weights failed validation, score is not certified")
	}
	return nil
}

func printReport(w io.Writer, rep *report.Report, format report.Format) error {
	if format != report.FormatMarkdown || analyzeFlags.raw {
		return report.Render(w, rep, format)
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(analyzeFlags.width),
	)
	if err != nil {
		return report.Render(w, rep, format)
	}
	styled, err := renderer.Render(report.Markdown(rep))
	if err != nil {
		return report.Render(w, rep, format)
	}
	_, err = io.WriteString(w, styled)
	return err
}
