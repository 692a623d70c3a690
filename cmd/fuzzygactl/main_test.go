package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuzzyga/internal/config"
	"fuzzyga/internal/stats"
	"fuzzyga/pkg/fuzzyga"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	workdir := t.TempDir()
	if err := os.Chdir(workdir); err != nil {
		t.Fatalf("chdir tempdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origWD)
	})
	return workdir
}

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	out, err := captureStdout(func() error {
		return run(context.Background(), args)
	})
	if err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestRunAndQueryCommands(t *testing.T) {
	workdir := chdirTemp(t)
	dbPath := filepath.Join(workdir, "fuzzyga.db")

	out := runCommand(t, "generate", "--out", "grid.txt", "--min", "-1", "--max", "1", "--step", "1")
	assert.Contains(t, out, "points=9")

	out = runCommand(t, "run",
		"--dataset", "grid.txt",
		"--store", "sqlite",
		"--db-path", dbPath,
		"--run-id", "cli-run",
		"--sets", "2",
		"-p", "6",
		"-g", "2",
		"--seed", "5",
		"--workers", "2",
		"--fitness-threshold", "1.1",
		"--tune-attempts", "5",
		"--progress",
	)
	assert.Contains(t, out, "generation=0 ")
	assert.Contains(t, out, "generation=1 ")
	assert.Contains(t, out, "run_id=cli-run generations=2 stop_reason=max_generations")
	assert.Contains(t, out, "seed=5")
	assert.Contains(t, out, "tuning attempts=5 ")

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected sqlite db at %s: %v", dbPath, err)
	}
	entries, err := stats.ListRunIndex("artifacts")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cli-run", entries[0].RunID)

	store := []string{"--store", "sqlite", "--db-path", dbPath}

	out = runCommand(t, append([]string{"runs"}, store...)...)
	assert.Contains(t, out, "run_id=cli-run")
	assert.Contains(t, out, "points=9")

	out = runCommand(t, append([]string{"fitness", "--latest"}, store...)...)
	assert.Equal(t, 2, strings.Count(out, "best_fitness="))

	out = runCommand(t, append([]string{"diagnostics", "--run-id", "cli-run", "--limit", "1"}, store...)...)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.True(t, strings.HasPrefix(out, "generation=0 "))

	out = runCommand(t, append([]string{"rules", "--latest", "--json"}, store...)...)
	var rules []fuzzyga.RuleItem
	require.NoError(t, json.Unmarshal([]byte(out), &rules))
	require.Len(t, rules, 4)
	assert.Equal(t, "x", rules[3].Antecedent[0].Variable)
	assert.Equal(t, 1, rules[3].Antecedent[1].Set)

	out = runCommand(t, append([]string{"rules", "--latest"}, store...)...)
	assert.Contains(t, out, "rule 0: IF x is S0(")

	out = runCommand(t, append([]string{"predict", "--latest", "--input", "x=0,y=0", "--input", "x=1, y=-1"}, store...)...)
	assert.Contains(t, out, "input=x=0,y=0 prediction=")
	assert.Equal(t, 2, strings.Count(out, "prediction="))

	out = runCommand(t, append([]string{"predict", "--run-id", "cli-run", "--dataset", "grid.txt"}, store...)...)
	assert.Equal(t, 9, strings.Count(out, "expected="))
	assert.Contains(t, out, "mse=")

	out = runCommand(t, append([]string{"show", "--latest"}, store...)...)
	assert.Contains(t, out, "run_id=cli-run dataset=grid.txt variables=x,y output=z")
	assert.Contains(t, out, "fuzzy_sets=2 shape=triangular tnorm=einstein population=6")

	out = runCommand(t, append([]string{"export", "--latest", "--out", "exports"}, store...)...)
	assert.Contains(t, out, "exported run_id=cli-run")
	assert.FileExists(t, filepath.Join("exports", "cli-run", "best_solution.json"))
}

func TestRunCommandUsesConfigFile(t *testing.T) {
	chdirTemp(t)

	runCommand(t, "generate", "--out", "grid.txt", "--min", "0", "--max", "1", "--step", "0.5")

	cfg := config.Default()
	cfg.Run.Dataset = "grid.txt"
	cfg.Run.Seed = 3
	cfg.GA.PopulationSize = 5
	cfg.GA.MaxGenerations = 10
	cfg.GA.FitnessThreshold = 1.1
	cfg.System.FuzzySets = 1
	cfg.Store.Kind = "memory"
	require.NoError(t, config.WriteFile("fuzzyga.yaml", cfg))

	// the flag wins over the file
	out := runCommand(t, "run", "--config", "fuzzyga.yaml", "-g", "1", "--json")
	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, float64(1), summary["generations"])
	assert.Equal(t, float64(3), summary["seed"])

	// a memory store is gone after the run; queries read the artifacts
	out = runCommand(t, "fitness", "--latest", "--store", "memory")
	assert.Equal(t, 1, strings.Count(out, "best_fitness="))
}

func TestInitWritesDefaultConfig(t *testing.T) {
	chdirTemp(t)

	out := runCommand(t, "init")
	assert.Contains(t, out, "wrote fuzzyga.yaml")
	cfg, err := config.LoadFile("fuzzyga.yaml")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = captureStdout(func() error { return run(context.Background(), []string{"init"}) })
	assert.ErrorContains(t, err, "already exists")

	runCommand(t, "init", "--force")
}

func TestCommandErrors(t *testing.T) {
	chdirTemp(t)
	ctx := context.Background()

	cases := map[string][]string{
		"missing command":   nil,
		"unknown command":   {"train"},
		"run without data":  {"run", "--store", "memory"},
		"bad run flag":      {"run", "--population", "many"},
		"fitness ref":       {"fitness", "--store", "memory"},
		"both refs":         {"rules", "--run-id", "a", "--latest", "--store", "memory"},
		"predict no inputs": {"predict", "--latest", "--store", "memory"},
		"predict bad input": {"predict", "--latest", "--store", "memory", "--input", "x"},
		"no runs":           {"show", "--latest", "--store", "memory"},
		"runs limit":        {"runs", "--limit", "0", "--store", "memory"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := captureStdout(func() error { return run(ctx, args) })
			assert.Error(t, err)
		})
	}
}

func TestParseInput(t *testing.T) {
	got, err := parseInput("x=1.5, y=-2,")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"x": 1.5, "y": -2}, got)

	for _, raw := range []string{"", "x", "x=abc"} {
		_, err := parseInput(raw)
		assert.Error(t, err, raw)
	}
}
