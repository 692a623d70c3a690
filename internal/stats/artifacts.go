package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"fuzzyga/internal/model"
)

const (
	runIndexFile       = "run_index.json"
	configFile         = "config.json"
	fitnessHistoryFile = "fitness_history.json"
	diagnosticsFile    = "generation_diagnostics.json"
	bestSolutionFile   = "best_solution.json"
	fitnessSeriesFile  = "fitness_series.csv"
	runSummaryFile     = "run_summary.json"
)

// RunConfig is the effective configuration of one run.
type RunConfig struct {
	RunID              string                       `json:"run_id"`
	DatasetPath        string                       `json:"dataset_path,omitempty"`
	Variables          []string                     `json:"variables"`
	Output             string                       `json:"output,omitempty"`
	FuzzySets          int                          `json:"fuzzy_sets"`
	Shape              string                       `json:"shape"`
	TNorm              string                       `json:"tnorm"`
	Ranges             map[string]model.RangeRecord `json:"ranges"`
	PopulationSize     int                          `json:"population_size"`
	MaxGenerations     int                          `json:"max_generations"`
	ElitismCount       int                          `json:"elitism_count"`
	CrossoverRate      float64                      `json:"crossover_rate"`
	MutationRate       float64                      `json:"mutation_rate"`
	MutationStrength   float64                      `json:"mutation_strength"`
	TournamentSize     int                          `json:"tournament_size"`
	FitnessThreshold   float64                      `json:"fitness_threshold"`
	Selection          string                       `json:"selection"`
	Crossover          string                       `json:"crossover"`
	Mutation           string                       `json:"mutation"`
	ClampGenes         bool                         `json:"clamp_genes"`
	TuneAttempts       int                          `json:"tune_attempts,omitempty"`
	TuneSteps          int                          `json:"tune_steps,omitempty"`
	TuneStepSize       float64                      `json:"tune_step_size,omitempty"`
	TuneAnnealing      float64                      `json:"tune_annealing,omitempty"`
	Seed               int64                        `json:"seed"`
	Workers            int                          `json:"workers"`
	ValidationFraction float64                      `json:"validation_fraction"`
}

type RunArtifacts struct {
	Config                RunConfig                     `json:"config"`
	BestByGeneration      []float64                     `json:"best_by_generation"`
	BestEverByGeneration  []float64                     `json:"best_ever_by_generation"`
	GenerationDiagnostics []model.GenerationDiagnostics `json:"generation_diagnostics,omitempty"`
	FinalBestFitness      float64                       `json:"final_best_fitness"`
	StopReason            string                        `json:"stop_reason"`
	BestSolution          model.Solution                `json:"best_solution"`
}

// FitnessHistory is the content of fitness_history.json.
type FitnessHistory struct {
	BestByGeneration     []float64 `json:"best_by_generation"`
	BestEverByGeneration []float64 `json:"best_ever_by_generation"`
	FinalBestFitness     float64   `json:"final_best_fitness"`
	StopReason           string    `json:"stop_reason"`
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	DatasetPath      string  `json:"dataset_path,omitempty"`
	Variables        int     `json:"variables"`
	FuzzySets        int     `json:"fuzzy_sets"`
	PopulationSize   int     `json:"population_size"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	Workers          int     `json:"workers"`
	StopReason       string  `json:"stop_reason"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

// WriteRunArtifacts writes every artifact of a run under baseDir/<run id>
// and returns that directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	history := FitnessHistory{
		BestByGeneration:     artifacts.BestByGeneration,
		BestEverByGeneration: artifacts.BestEverByGeneration,
		FinalBestFitness:     artifacts.FinalBestFitness,
		StopReason:           artifacts.StopReason,
	}
	if err := writeJSON(filepath.Join(runDir, fitnessHistoryFile), history); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, diagnosticsFile), artifacts.GenerationDiagnostics); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, bestSolutionFile), artifacts.BestSolution); err != nil {
		return "", err
	}
	if err := WriteFitnessSeries(runDir, artifacts.BestByGeneration, artifacts.BestEverByGeneration); err != nil {
		return "", err
	}
	summary := SummarizeRun(artifacts.Config.RunID, artifacts.BestByGeneration, artifacts.FinalBestFitness)
	if err := writeJSON(filepath.Join(runDir, runSummaryFile), summary); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first. Entries with equal
// timestamps keep the later appended one first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		c := model.CompareTimestamps(indexed[i].entry.CreatedAtUTC, indexed[j].entry.CreatedAtUTC)
		if c == 0 {
			return indexed[i].idx > indexed[j].idx
		}
		return c > 0
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies the artifacts of runID into outDir/<run id>.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	required := []string{configFile, fitnessHistoryFile, diagnosticsFile, bestSolutionFile}
	for _, file := range required {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	for _, file := range []string{fitnessSeriesFile, runSummaryFile} {
		path := filepath.Join(src, file)
		if _, err := os.Stat(path); err == nil {
			if err := copyFile(path, filepath.Join(dst, file)); err != nil {
				return "", err
			}
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	if err != nil || !ok {
		return RunConfig{}, ok, err
	}
	return cfg, true, nil
}

func ReadFitnessHistory(baseDir, runID string) (FitnessHistory, bool, error) {
	var history FitnessHistory
	ok, err := readJSON(filepath.Join(baseDir, runID, fitnessHistoryFile), &history)
	if err != nil || !ok {
		return FitnessHistory{}, ok, err
	}
	return history, true, nil
}

func ReadGenerationDiagnostics(baseDir, runID string) ([]model.GenerationDiagnostics, bool, error) {
	var diagnostics []model.GenerationDiagnostics
	ok, err := readJSON(filepath.Join(baseDir, runID, diagnosticsFile), &diagnostics)
	if err != nil || !ok {
		return nil, ok, err
	}
	return diagnostics, true, nil
}

func ReadBestSolution(baseDir, runID string) (model.Solution, bool, error) {
	var solution model.Solution
	ok, err := readJSON(filepath.Join(baseDir, runID, bestSolutionFile), &solution)
	if err != nil || !ok {
		return model.Solution{}, ok, err
	}
	return solution, true, nil
}

func ReadRunSummary(baseDir, runID string) (RunSummary, bool, error) {
	var summary RunSummary
	ok, err := readJSON(filepath.Join(baseDir, runID, runSummaryFile), &summary)
	if err != nil || !ok {
		return RunSummary{}, ok, err
	}
	return summary, true, nil
}

// WriteFitnessSeries writes one csv row per generation with the best and
// best-ever fitness. Generations are numbered from 1.
func WriteFitnessSeries(runDir string, bestByGeneration, bestEverByGeneration []float64) error {
	path := filepath.Join(runDir, fitnessSeriesFile)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best_fitness", "best_ever_fitness"}); err != nil {
		return err
	}
	for i, best := range bestByGeneration {
		bestEver := best
		if i < len(bestEverByGeneration) {
			bestEver = bestEverByGeneration[i]
		}
		if err := writer.Write([]string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(best, 'f', -1, 64),
			strconv.FormatFloat(bestEver, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
