package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Lectern/internal/config"
	"github.com/MikeSquared-Agency/Lectern/internal/report"
	"github.com/MikeSquared-Agency/Lectern/internal/scoring"
	"github.com/MikeSquared-Agency/Lectern/internal/store"
)

const draft = `# Release notes

We finally shipped it. Honestly, the last week was rough, and I'm glad it's over.

Moreover, it is important to note that the migration was seamless. Furthermore, the
team delivered a robust and comprehensive solution that leverages every tool we had.

- faster startup
- smaller binary
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestParseOverrides(t *testing.T) {
	got, err := parseOverrides([]string{"Predictability=4000", " voice = 800 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"predictability": 4000, "voice": 800}, got)

	for _, bad := range []string{"voice", "=10", "voice=abc", "voice=0"} {
		_, err := parseOverrides([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestServerHistoryIsRooted(t *testing.T) {
	c := &config.Config{History: config.HistoryConfig{Backend: config.HistoryFile}}
	hs, err := newServerHistory(context.Background(), c)
	require.NoError(t, err)
	fs, ok := hs.(*store.FileStore)
	require.True(t, ok)
	assert.True(t, fs.Rooted())
	assert.True(t, strings.HasPrefix(fs.Path("/srv/docs/a.md"), filepath.Join(config.DefaultServerHistoryDir, store.HistoryDirName)))

	c.History.Dir = t.TempDir()
	hs, err = newServerHistory(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hs.(*store.FileStore).Path("../../etc/a.md"), c.History.Dir))
}

func TestAnalyzeCommand(t *testing.T) {
	t.Setenv("LECTERN_INFERENCE_URL", "")
	dir := t.TempDir()
	doc := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(doc, []byte(draft), 0o644))

	stdout, _, err := execute(t, "analyze", "--format", "json", "--profile", "full", "--mode", "full", doc)
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.Equal(t, doc, rep.Metadata.DocumentPath)
	assert.Equal(t, 9, rep.Metadata.DimensionsLoaded)
	assert.Contains(t, rep.Metadata.Failed, "predictability")
	assert.True(t, rep.Overall.Certified)
	assert.Len(t, rep.Tiers, 4)
	assert.Equal(t, scoring.DefaultQualityTarget, rep.Plan.QualityTarget)
	assert.Equal(t, scoring.DefaultDetectionTarget, rep.Plan.DetectionTarget)
	assert.GreaterOrEqual(t, rep.Plan.ProjectedQuality, rep.Overall.Score)

	stdout, _, err = execute(t, "analyze", "--format", "text", doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "==="), stdout)
	assert.Contains(t, stdout, "--- Improvement Plan ---")
	assert.Contains(t, stdout, "PATH TO TARGET:")
}

func TestWeightsCommand(t *testing.T) {
	stdout, _, err := execute(t, "weights", "--json", "--profile", "balanced")
	require.NoError(t, err)

	var rep scoring.ValidationReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.True(t, rep.IsValid)
	assert.Equal(t, 100.0, rep.TotalWeight)
	assert.Empty(t, rep.SuggestedRebalancing)

	var buf bytes.Buffer
	printWeights(&buf, "balanced", rep)
	assert.Contains(t, buf.String(), "Profile balanced: VALID")
	assert.NotContains(t, buf.String(), "Suggested rebalancing:")

	rep.IsValid = false
	rep.TotalWeight = 80
	rep.SuggestedRebalancing = map[string]float64{"voice": 100}
	buf.Reset()
	printWeights(&buf, "custom", rep)
	assert.Contains(t, buf.String(), "Profile custom: INVALID")
	assert.Contains(t, buf.String(), "Suggested rebalancing:")
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LECTERN_HISTORY_BACKEND", "file")
	t.Setenv("LECTERN_HISTORY_DIR", dir)
	doc := filepath.Join(dir, "essay.md")
	require.NoError(t, os.WriteFile(doc, []byte(draft), 0o644))

	stdout, _, err := execute(t, "history", doc)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No history recorded")

	_, _, err = execute(t, "analyze", "--format", "json", "--profile", "fast", "--history", "--notes", "first", doc)
	require.NoError(t, err)

	stdout, _, err = execute(t, "history", doc)
	require.NoError(t, err)
	assert.Contains(t, stdout, "(1 runs)")
	assert.Contains(t, stdout, "first")
	assert.Contains(t, stdout, "Trend: quality N/A")
}
