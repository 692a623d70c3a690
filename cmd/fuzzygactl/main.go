package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"fuzzyga/internal/config"
	"fuzzyga/internal/dataset"
	"fuzzyga/internal/evo"
	"fuzzyga/internal/fuzzy"
	"fuzzyga/internal/model"
	"fuzzyga/pkg/fuzzyga"
)

const (
	defaultConfigPath = "fuzzyga.yaml"
	defaultExportsDir = "exports"
)

func main() {
	defer klog.Flush()
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "generate":
		return runGenerate(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "rules":
		return runRules(ctx, args[1:])
	case "predict":
		return runPredict(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// newFlagSet returns a flag set for one command with the klog flags
// (-v, --vmodule, ...) attached.
func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	klogFlags := flag.NewFlagSet(name, flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	fs.AddGoFlagSet(klogFlags)
	return fs
}

type storeFlags struct {
	kind         *string
	dbPath       *string
	artifactsDir *string
}

func addStoreFlags(fs *pflag.FlagSet) storeFlags {
	defaults := config.Default()
	return storeFlags{
		kind:         fs.String("store", defaults.Store.Kind, "store backend: memory|sqlite"),
		dbPath:       fs.String("db-path", defaults.Store.Path, "sqlite database path"),
		artifactsDir: fs.String("artifacts-dir", defaults.Run.ArtifactsDir, "directory holding per-run artifacts"),
	}
}

func (f storeFlags) client() (*fuzzyga.Client, error) {
	return fuzzyga.New(fuzzyga.Options{
		StoreKind:    *f.kind,
		DBPath:       *f.dbPath,
		ArtifactsDir: *f.artifactsDir,
	})
}

type refFlags struct {
	runID  *string
	latest *bool
}

func addRefFlags(fs *pflag.FlagSet) refFlags {
	return refFlags{
		runID:  fs.String("run-id", "", "run id"),
		latest: fs.Bool("latest", false, "use the most recent run"),
	}
}

func (f refFlags) ref(command string) (fuzzyga.RunRef, error) {
	if *f.runID != "" && *f.latest {
		return fuzzyga.RunRef{}, errors.New("use either --run-id or --latest, not both")
	}
	if *f.runID == "" && !*f.latest {
		return fuzzyga.RunRef{}, fmt.Errorf("%s requires --run-id or --latest", command)
	}
	return fuzzyga.RunRef{RunID: *f.runID, Latest: *f.latest}, nil
}

func runInit(_ context.Context, args []string) error {
	fs := newFlagSet("init")
	path := fs.String("config", defaultConfigPath, "config file to write")
	force := fs.Bool("force", false, "overwrite an existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(*path); err == nil && !*force {
		return fmt.Errorf("%s already exists, use --force to overwrite", *path)
	} else if err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := config.WriteFile(*path, config.Default()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *path)
	return nil
}

func runGenerate(_ context.Context, args []string) error {
	fs := newFlagSet("generate")
	out := fs.String("out", "3dfunc.txt", "dataset file to write as a whitespace table")
	lo := fs.Float64("min", -5, "grid minimum for x and y")
	hi := fs.Float64("max", 5, "grid maximum for x and y")
	step := fs.Float64("step", 0.5, "grid step")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := dataset.Grid([]string{"x", "y"}, "z", *lo, *hi, *step, dataset.Benchmark3D)
	if err != nil {
		return err
	}
	if err := dataset.WriteFile(*out, data); err != nil {
		return err
	}
	fmt.Printf("wrote %s points=%s\n", *out, humanize.Comma(int64(data.Size())))
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := newFlagSet("run")
	configPath := fs.String("config", "", "YAML config file; flags override its values")
	runID := fs.String("run-id", "", "explicit run id (default: random)")
	datasetPath := fs.String("dataset", "", "dataset file (whitespace table or .csv)")
	sets := fs.Int("sets", 0, "fuzzy sets per input variable")
	shape := fs.String("shape", "", "membership shape: "+choices(fuzzy.ListShapes()))
	tnorm := fs.String("tnorm", "", "t-norm: "+choices(fuzzy.ListTNorms()))
	population := fs.IntP("population", "p", 0, "population size")
	generations := fs.IntP("generations", "g", 0, "max generations")
	elitism := fs.Int("elitism", 0, "elites copied per generation")
	crossoverRate := fs.Float64("crossover-rate", 0, "crossover probability")
	mutationRate := fs.Float64("mutation-rate", 0, "per-gene mutation probability")
	mutationStrength := fs.Float64("mutation-strength", 0, "gaussian mutation sigma")
	tournament := fs.Int("tournament", 0, "tournament size")
	threshold := fs.Float64("fitness-threshold", 0, "stop once best fitness reaches this value")
	selection := fs.String("selection", "", "selection operator: "+choices(evo.ListOperators(evo.KindSelection)))
	crossover := fs.String("crossover", "", "crossover operator: "+choices(evo.ListOperators(evo.KindCrossover)))
	mutation := fs.String("mutation", "", "mutation operator: "+choices(evo.ListOperators(evo.KindMutation)))
	clamp := fs.Bool("clamp-genes", false, "clamp bred genes into their sampling ranges")
	tuneAttempts := fs.Int("tune-attempts", 0, "hill climbing attempts on the best solution (0: off)")
	tuneSteps := fs.Int("tune-steps", 0, "genes perturbed per tuning attempt")
	tuneStepSize := fs.Float64("tune-step-size", 0, "tuning perturbation spread")
	seed := fs.Int64("seed", 0, "random seed (0: derive from clock)")
	workers := fs.Int("workers", 0, "parallel evaluation workers (0 or 1: serial)")
	validation := fs.Float64("validation", 0, "fraction of points held out for validation")
	progress := fs.Bool("progress", false, "print every generation")
	jsonOut := fs.Bool("json", false, "emit the run summary as JSON")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	overrideString(fs, "dataset", &cfg.Run.Dataset, *datasetPath)
	overrideInt(fs, "sets", &cfg.System.FuzzySets, *sets)
	overrideString(fs, "shape", &cfg.System.Shape, *shape)
	overrideString(fs, "tnorm", &cfg.System.TNorm, *tnorm)
	overrideInt(fs, "population", &cfg.GA.PopulationSize, *population)
	overrideInt(fs, "generations", &cfg.GA.MaxGenerations, *generations)
	overrideInt(fs, "elitism", &cfg.GA.ElitismCount, *elitism)
	overrideFloat(fs, "crossover-rate", &cfg.GA.CrossoverRate, *crossoverRate)
	overrideFloat(fs, "mutation-rate", &cfg.GA.MutationRate, *mutationRate)
	overrideFloat(fs, "mutation-strength", &cfg.GA.MutationStrength, *mutationStrength)
	overrideInt(fs, "tournament", &cfg.GA.TournamentSize, *tournament)
	overrideFloat(fs, "fitness-threshold", &cfg.GA.FitnessThreshold, *threshold)
	overrideString(fs, "selection", &cfg.GA.Selection, *selection)
	overrideString(fs, "crossover", &cfg.GA.Crossover, *crossover)
	overrideString(fs, "mutation", &cfg.GA.Mutation, *mutation)
	if fs.Changed("clamp-genes") {
		cfg.GA.ClampGenes = *clamp
	}
	overrideInt(fs, "tune-attempts", &cfg.Tune.Attempts, *tuneAttempts)
	overrideInt(fs, "tune-steps", &cfg.Tune.Steps, *tuneSteps)
	overrideFloat(fs, "tune-step-size", &cfg.Tune.StepSize, *tuneStepSize)
	if fs.Changed("seed") {
		cfg.Run.Seed = *seed
	}
	overrideInt(fs, "workers", &cfg.Run.Workers, *workers)
	overrideFloat(fs, "validation", &cfg.Run.ValidationFraction, *validation)
	overrideString(fs, "store", &cfg.Store.Kind, *store.kind)
	overrideString(fs, "db-path", &cfg.Store.Path, *store.dbPath)
	overrideString(fs, "artifacts-dir", &cfg.Run.ArtifactsDir, *store.artifactsDir)

	if cfg.Run.Dataset == "" {
		return errors.New("run requires --dataset or a config with run.dataset")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := fuzzyga.New(fuzzyga.Options{
		StoreKind:    cfg.Store.Kind,
		DBPath:       cfg.Store.Path,
		ArtifactsDir: cfg.Run.ArtifactsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	req := fuzzyga.RunRequestFromConfig(cfg)
	req.RunID = *runID
	if *progress {
		req.Progress = func(d model.GenerationDiagnostics) {
			fmt.Printf("generation=%d best_fitness=%.6f best_ever=%.6f mean=%.6f distinct=%d\n",
				d.Generation, d.BestFitness, d.BestEverFitness, d.MeanFitness, d.DistinctGenotypes)
		}
	}

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"run_id":             summary.RunID,
			"artifacts_dir":      summary.ArtifactsDir,
			"seed":               summary.Seed,
			"generations":        summary.Generations,
			"evaluations":        summary.Evaluations,
			"stop_reason":        summary.StopReason,
			"final_best_fitness": summary.FinalBestFitness,
			"best_mse":           summary.BestMSE,
			"validation_mse":     summary.ValidationMSE,
			"tuning":             summary.Tuning,
			"elapsed_ms":         summary.Elapsed.Milliseconds(),
		})
	}

	fmt.Printf("run_id=%s generations=%d stop_reason=%s best_fitness=%.6f mse=%.6g evaluations=%s elapsed=%s\n",
		summary.RunID,
		summary.Generations,
		summary.StopReason,
		summary.FinalBestFitness,
		summary.BestMSE,
		humanize.Comma(int64(summary.Evaluations)),
		summary.Elapsed.Round(time.Millisecond),
	)
	if cfg.Tune.Attempts > 0 {
		fmt.Printf("tuning attempts=%d accepted=%d improvement=%.6g\n",
			summary.Tuning.AttemptsExecuted, summary.Tuning.AcceptedCandidates, summary.Tuning.Improvement())
	}
	if cfg.Run.ValidationFraction > 0 {
		fmt.Printf("validation_mse=%.6g\n", summary.ValidationMSE)
	}
	fmt.Printf("seed=%d artifacts=%s\n", summary.Seed, summary.ArtifactsDir)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := newFlagSet("runs")
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := store.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, fuzzyga.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("run_id=%s created=%q points=%s generations=%d best_fitness=%.6f mse=%.6g stop_reason=%s\n",
			r.RunID,
			relativeTime(r.CreatedAtUTC),
			humanize.Comma(int64(r.DatasetSize)),
			r.Generations,
			r.FinalBestFitness,
			r.BestMSE,
			r.StopReason,
		)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := newFlagSet("fitness")
	refs := addRefFlags(fs)
	limit := fs.Int("limit", 50, "max generations to print (0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ref, err := refs.ref("fitness")
	if err != nil {
		return err
	}

	client, err := store.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, fuzzyga.FitnessHistoryRequest{RunRef: ref, Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(history)
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	for i, best := range history {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i, best)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := newFlagSet("diagnostics")
	refs := addRefFlags(fs)
	limit := fs.Int("limit", 50, "max generations to print (0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ref, err := refs.ref("diagnostics")
	if err != nil {
		return err
	}

	client, err := store.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, fuzzyga.DiagnosticsRequest{RunRef: ref, Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(diagnostics)
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%.6f best_ever=%.6f mean=%.6f std=%.6f min=%.6f evaluated=%d distinct=%d\n",
			d.Generation, d.BestFitness, d.BestEverFitness, d.MeanFitness, d.StdDevFitness, d.MinFitness,
			d.EvaluatedCount, d.DistinctGenotypes)
	}
	return nil
}

func runRules(ctx context.Context, args []string) error {
	fs := newFlagSet("rules")
	refs := addRefFlags(fs)
	jsonOut := fs.Bool("json", false, "emit rules as JSON")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ref, err := refs.ref("rules")
	if err != nil {
		return err
	}

	client, err := store.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	rules, err := client.Rules(ctx, fuzzyga.RulesRequest{RunRef: ref})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(rules)
	}
	for _, rule := range rules {
		fmt.Println(formatRule(rule))
	}
	return nil
}

func formatRule(rule fuzzyga.RuleItem) string {
	clauses := make([]string, 0, len(rule.Antecedent))
	for _, c := range rule.Antecedent {
		params := make([]string, 0, len(c.Params))
		for _, p := range c.Params {
			params = append(params, strconv.FormatFloat(p, 'g', 4, 64))
		}
		clauses = append(clauses, fmt.Sprintf("%s is S%d(%s)", c.Variable, c.Set, strings.Join(params, ", ")))
	}
	terms := make([]string, 0, len(rule.Terms)+1)
	for _, term := range rule.Terms {
		terms = append(terms, fmt.Sprintf("%.4g*%s", term.Coefficient, term.Variable))
	}
	terms = append(terms, fmt.Sprintf("%.4g", rule.Constant))
	return fmt.Sprintf("rule %d: IF %s THEN %s", rule.Index, strings.Join(clauses, " AND "), strings.Join(terms, " + "))
}

func runPredict(ctx context.Context, args []string) error {
	fs := newFlagSet("predict")
	refs := addRefFlags(fs)
	inputs := fs.StringArray("input", nil, "input values as name=value[,name=value]; repeatable")
	datasetPath := fs.String("dataset", "", "predict every point of a dataset file and report its error")
	jsonOut := fs.Bool("json", false, "emit predictions as JSON")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ref, err := refs.ref("predict")
	if err != nil {
		return err
	}
	if len(*inputs) == 0 && *datasetPath == "" {
		return errors.New("predict requires --input or --dataset")
	}

	var (
		values   []map[string]float64
		expected []float64
	)
	for _, raw := range *inputs {
		v, err := parseInput(raw)
		if err != nil {
			return err
		}
		values = append(values, v)
	}
	if *datasetPath != "" {
		data, err := dataset.LoadFile(*datasetPath)
		if err != nil {
			return err
		}
		for _, p := range data.All() {
			v := make(map[string]float64, len(p.Inputs))
			for variable, x := range p.Inputs {
				v[variable.Name()] = x
			}
			values = append(values, v)
			expected = append(expected, p.Expected)
		}
	}

	client, err := store.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	predictions, err := client.Predict(ctx, fuzzyga.PredictRequest{RunRef: ref, Inputs: values})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(predictions)
	}

	offset := len(*inputs)
	sum := 0.0
	for i, y := range predictions {
		if i < offset {
			fmt.Printf("input=%s prediction=%.6g\n", (*inputs)[i], y)
			continue
		}
		target := expected[i-offset]
		diff := target - y
		sum += diff * diff
		fmt.Printf("point=%d prediction=%.6g expected=%.6g\n", i-offset, y, target)
	}
	if len(expected) > 0 {
		fmt.Printf("mse=%.6g points=%s\n", sum/float64(len(expected)), humanize.Comma(int64(len(expected))))
	}
	return nil
}

// parseInput reads "x=1.5,y=-2" into a name-keyed map.
func parseInput(raw string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		name, value, ok := strings.Cut(field, "=")
		if !ok {
			return nil, fmt.Errorf("input %q: expected name=value", field)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", field, err)
		}
		out[strings.TrimSpace(name)] = x
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("input %q: no values", raw)
	}
	return out, nil
}

func runShow(ctx context.Context, args []string) error {
	fs := newFlagSet("show")
	refs := addRefFlags(fs)
	jsonOut := fs.Bool("json", false, "emit run details as JSON")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ref, err := refs.ref("show")
	if err != nil {
		return err
	}

	client, err := store.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	details, err := client.Details(ctx, ref)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(details)
	}

	cfg, s := details.Config, details.Summary
	fmt.Printf("run_id=%s dataset=%s variables=%s output=%s\n",
		cfg.RunID, cfg.DatasetPath, strings.Join(cfg.Variables, ","), cfg.Output)
	fmt.Printf("fuzzy_sets=%d shape=%s tnorm=%s population=%d max_generations=%d seed=%d workers=%d\n",
		cfg.FuzzySets, cfg.Shape, cfg.TNorm, cfg.PopulationSize, cfg.MaxGenerations, cfg.Seed, cfg.Workers)
	fmt.Printf("selection=%s crossover=%s mutation=%s clamp_genes=%t\n",
		cfg.Selection, cfg.Crossover, cfg.Mutation, cfg.ClampGenes)
	fmt.Printf("generations=%d initial_best=%.6f final_best=%.6f improvement=%.6f peak_generation=%d\n",
		s.Generations, s.InitialBest, s.FinalBest, s.Improvement, s.PeakGeneration)
	fmt.Printf("best_mean=%.6f best_std=%.6f best_min=%.6f best_max=%.6f\n",
		s.BestMean, s.BestStd, s.BestMin, s.BestMax)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := newFlagSet("export")
	refs := addRefFlags(fs)
	outDir := fs.String("out", defaultExportsDir, "export directory")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ref, err := refs.ref("export")
	if err != nil {
		return err
	}

	client, err := store.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, fuzzyga.ExportRequest{RunRef: ref, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
	return nil
}

func overrideString(fs *pflag.FlagSet, name string, dst *string, value string) {
	if fs.Changed(name) {
		*dst = value
	}
}

func overrideInt(fs *pflag.FlagSet, name string, dst *int, value int) {
	if fs.Changed(name) {
		*dst = value
	}
}

func overrideFloat(fs *pflag.FlagSet, name string, dst *float64, value float64) {
	if fs.Changed(name) {
		*dst = value
	}
}

func choices(names []string) string {
	return strings.Join(names, "|")
}

func relativeTime(createdAtUTC string) string {
	t, err := time.Parse(time.RFC3339Nano, createdAtUTC)
	if err != nil {
		return createdAtUTC
	}
	return humanize.Time(t)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: fuzzygactl <init|generate|run|runs|fitness|diagnostics|rules|predict|show|export> [flags]", msg)
}
