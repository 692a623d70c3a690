package fuzzyga

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"k8s.io/klog/v2"

	"fuzzyga/internal/codec"
	"fuzzyga/internal/config"
	"fuzzyga/internal/dataset"
	"fuzzyga/internal/evo"
	"fuzzyga/internal/fitness"
	"fuzzyga/internal/fuzzy"
	"fuzzyga/internal/model"
	"fuzzyga/internal/stats"
	"fuzzyga/internal/storage"
	"fuzzyga/internal/tuning"
)

const (
	defaultArtifactsDir = "artifacts"
	systemCacheTTL      = 10 * time.Minute
)

var (
	ErrNoRuns      = errors.New("no runs available")
	ErrRunNotFound = errors.New("run not found")
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	// Logger receives run logs. The klog global logger is used when unset.
	Logger logr.Logger
}

// Client runs evolutions and queries their results. Results are written to
// the configured store and mirrored as files under ArtifactsDir, which also
// serves reads when the store does not know a run.
type Client struct {
	store        storage.Store
	artifactsDir string
	logger       logr.Logger
	// systems caches decoded best solutions by run id.
	systems *cache.Cache

	initOnce sync.Once
	initErr  error
}

type Range struct {
	Min float64
	Max float64
}

type RunRequest struct {
	// RunID defaults to a random UUID.
	RunID string
	// DatasetPath is read when Dataset is nil.
	DatasetPath string
	Dataset     *dataset.Dataset

	FuzzySets       int
	Shape           string
	TNorm           string
	CenterRange     Range
	WidthRange      Range
	ConsequentRange Range

	PopulationSize   int
	MaxGenerations   int
	ElitismCount     int
	CrossoverRate    float64
	MutationRate     float64
	MutationStrength float64
	TournamentSize   int
	FitnessThreshold float64
	Selection        string
	Crossover        string
	Mutation         string
	ClampGenes       bool

	// TuneAttempts > 0 hill climbs the best solution after evolution.
	TuneAttempts  int
	TuneSteps     int
	TuneStepSize  float64
	TuneAnnealing float64

	// Seed 0 draws a seed from the clock.
	Seed               int64
	Workers            int
	ValidationFraction float64

	// Progress, when set, is called after every generation.
	Progress func(model.GenerationDiagnostics)
}

type RunSummary struct {
	RunID                string
	ArtifactsDir         string
	Seed                 int64
	Generations          int
	Evaluations          int
	StopReason           string
	BestByGeneration     []float64
	BestEverByGeneration []float64
	FinalBestFitness     float64
	BestMSE              float64
	// ValidationMSE is zero when no validation split was requested.
	ValidationMSE float64
	// Tuning is zero when tuning was disabled.
	Tuning  tuning.Report
	Elapsed time.Duration
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	DatasetPath      string
	DatasetSize      int
	Seed             int64
	Population       int
	Generations      int
	Evaluations      int
	StopReason       string
	FinalBestFitness float64
	BestMSE          float64
	ValidationMSE    float64
	Elapsed          time.Duration
}

// RunRef names a run by id or asks for the most recent one.
type RunRef struct {
	RunID  string
	Latest bool
}

type FitnessHistoryRequest struct {
	RunRef
	Limit int
}

type DiagnosticsRequest struct {
	RunRef
	Limit int
}

type RulesRequest struct {
	RunRef
}

type ClauseItem struct {
	Variable string
	Set      int
	Shape    string
	Params   []float64
}

type TermItem struct {
	Variable    string
	Coefficient float64
}

type RuleItem struct {
	Index      int
	Antecedent []ClauseItem
	Terms      []TermItem
	Constant   float64
}

type PredictRequest struct {
	RunRef
	// Inputs holds one map of variable name to value per prediction.
	Inputs []map[string]float64
}

type ExportRequest struct {
	RunRef
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type RunDetails struct {
	Config  stats.RunConfig
	Summary stats.RunSummary
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = storage.DefaultSQLitePath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		logger:       opts.Logger,
		systems:      cache.New(systemCacheTTL, 2*systemCacheTTL),
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init prepares the store. Other methods call it on first use.
func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

// DefaultRunRequest returns a request carrying the default configuration.
func DefaultRunRequest() RunRequest {
	return RunRequestFromConfig(config.Default())
}

func RunRequestFromConfig(cfg config.Config) RunRequest {
	return RunRequest{
		DatasetPath:        cfg.Run.Dataset,
		FuzzySets:          cfg.System.FuzzySets,
		Shape:              cfg.System.Shape,
		TNorm:              cfg.System.TNorm,
		CenterRange:        Range(cfg.System.Center),
		WidthRange:         Range(cfg.System.Width),
		ConsequentRange:    Range(cfg.System.Consequent),
		PopulationSize:     cfg.GA.PopulationSize,
		MaxGenerations:     cfg.GA.MaxGenerations,
		ElitismCount:       cfg.GA.ElitismCount,
		CrossoverRate:      cfg.GA.CrossoverRate,
		MutationRate:       cfg.GA.MutationRate,
		MutationStrength:   cfg.GA.MutationStrength,
		TournamentSize:     cfg.GA.TournamentSize,
		FitnessThreshold:   cfg.GA.FitnessThreshold,
		Selection:          cfg.GA.Selection,
		Crossover:          cfg.GA.Crossover,
		Mutation:           cfg.GA.Mutation,
		ClampGenes:         cfg.GA.ClampGenes,
		TuneAttempts:       cfg.Tune.Attempts,
		TuneSteps:          cfg.Tune.Steps,
		TuneStepSize:       cfg.Tune.StepSize,
		TuneAnnealing:      cfg.Tune.Annealing,
		Seed:               cfg.Run.Seed,
		Workers:            cfg.Run.Workers,
		ValidationFraction: cfg.Run.ValidationFraction,
	}
}

func (r RunRequest) config() config.Config {
	cfg := config.Default()
	cfg.GA = config.GA{
		PopulationSize:   r.PopulationSize,
		MaxGenerations:   r.MaxGenerations,
		ElitismCount:     r.ElitismCount,
		CrossoverRate:    r.CrossoverRate,
		MutationRate:     r.MutationRate,
		MutationStrength: r.MutationStrength,
		TournamentSize:   r.TournamentSize,
		FitnessThreshold: r.FitnessThreshold,
		Selection:        r.Selection,
		Crossover:        r.Crossover,
		Mutation:         r.Mutation,
		ClampGenes:       r.ClampGenes,
	}
	cfg.System = config.System{
		FuzzySets:  r.FuzzySets,
		Shape:      r.Shape,
		TNorm:      r.TNorm,
		Center:     config.Range(r.CenterRange),
		Width:      config.Range(r.WidthRange),
		Consequent: config.Range(r.ConsequentRange),
	}
	if cfg.System.Shape == "" {
		cfg.System.Shape = fuzzy.ShapeTriangular
	}
	if cfg.System.TNorm == "" {
		cfg.System.TNorm = fuzzy.TNormEinstein
	}
	cfg.Tune = config.Tune{
		Attempts:  r.TuneAttempts,
		Steps:     r.TuneSteps,
		StepSize:  r.TuneStepSize,
		Annealing: r.TuneAnnealing,
	}
	cfg.Run.Dataset = r.DatasetPath
	cfg.Run.Seed = r.Seed
	cfg.Run.Workers = r.Workers
	cfg.Run.ValidationFraction = r.ValidationFraction
	return cfg
}

// Run evolves a TSK system for the requested dataset and records the result.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	ctx = c.withLogger(ctx)
	logger := klog.FromContext(ctx)

	cfg := req.config()
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, err
	}

	data := req.Dataset
	if data == nil {
		if req.DatasetPath == "" {
			return RunSummary{}, errors.New("run requires a dataset or dataset path")
		}
		loaded, err := dataset.LoadFile(req.DatasetPath)
		if err != nil {
			return RunSummary{}, err
		}
		data = loaded
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger = logger.WithValues("runID", runID)

	train, validation, err := data.Split(req.ValidationFraction, seed)
	if err != nil {
		return RunSummary{}, err
	}

	desc, err := codec.NewDescriptor(data.Variables(), cfg.System.FuzzySets, cfg.System.Ranges(),
		codec.WithShape(cfg.System.Shape),
		codec.WithTNorm(cfg.System.TNorm),
	)
	if err != nil {
		return RunSummary{}, err
	}
	evaluator, err := fitness.NewEvaluator(codec.New(desc), train, seed)
	if err != nil {
		return RunSummary{}, err
	}

	evoCfg := cfg.Evo()
	selector, err := evo.ResolveSelector(cfg.GA.Selection, evoCfg)
	if err != nil {
		return RunSummary{}, err
	}
	crossover, err := evo.ResolveCrossover(cfg.GA.Crossover, evoCfg)
	if err != nil {
		return RunSummary{}, err
	}
	mutation, err := evo.ResolveMutation(cfg.GA.Mutation, evoCfg)
	if err != nil {
		return RunSummary{}, err
	}

	opts := []evo.Option{
		evo.WithSeed(seed),
		evo.WithExecutor(evo.NewExecutor(req.Workers)),
		evo.WithSelector(selector),
		evo.WithCrossover(crossover),
		evo.WithMutation(mutation),
	}
	if req.ClampGenes {
		opts = append(opts, evo.WithGeneBounds(evaluator.GeneBounds()))
	}
	if req.Progress != nil {
		opts = append(opts, evo.WithObserver(req.Progress))
	}
	engine, err := evo.NewEngine(evoCfg, evaluator, opts...)
	if err != nil {
		return RunSummary{}, err
	}

	logger.V(1).Info("run started",
		"points", train.Size(),
		"validation", validation.Size(),
		"variables", desc.VariableCount(),
		"rules", desc.RuleCount(),
		"genes", desc.ChromosomeLength(),
		"seed", seed,
	)
	started := time.Now()
	result, err := engine.Evolve(ctx, nil)
	if err != nil {
		return RunSummary{}, fmt.Errorf("run %s: %w", runID, err)
	}

	best := result.Best
	generation := firstGenerationReaching(result.BestEverByGeneration, best.Score(), result.Generations)
	var tuneReport tuning.Report
	if cfg.Tune.Attempts > 0 {
		tuner := &tuning.HillClimber{
			Rand:            rand.New(rand.NewSource(seed)),
			Steps:           cfg.Tune.Steps,
			StepSize:        cfg.Tune.StepSize,
			AnnealingFactor: cfg.Tune.Annealing,
			GoalFitness:     evoCfg.FitnessThreshold,
		}
		if req.ClampGenes {
			tuner.Bounds = evaluator.GeneBounds()
		}
		score := func(_ context.Context, genes []float64) (float64, error) {
			mse, err := evaluator.MSE(evo.NewChromosome(genes))
			if err != nil {
				return 0, err
			}
			return fitness.FromMSE(mse), nil
		}
		genes, report, err := tuner.Tune(ctx, best.Chromosome.Genes(), cfg.Tune.Attempts, score)
		if err != nil {
			return RunSummary{}, fmt.Errorf("run %s: tune: %w", runID, err)
		}
		tuneReport = report
		if report.FinalFitness > best.Score() {
			best = evo.Individual{Chromosome: evo.NewChromosome(genes), Fitness: evo.Evaluated(report.FinalFitness)}
			generation = result.Generations
		}
	}
	elapsed := time.Since(started)

	bestMSE, err := evaluator.MSE(best.Chromosome)
	if err != nil {
		return RunSummary{}, err
	}
	var validationMSE float64
	if validation.Size() > 0 {
		sys, err := evaluator.Decode(best.Chromosome)
		if err != nil {
			return RunSummary{}, err
		}
		validationMSE = fitness.MSE(sys, validation)
	}

	createdAt := model.FormatTimestamp(time.Now())
	run := model.RunRecord{
		VersionedRecord: storage.Stamp(),
		ID:              runID,
		DatasetPath:     req.DatasetPath,
		DatasetSize:     data.Size(),
		ValidationSize:  validation.Size(),
		PopulationSize:  evoCfg.PopulationSize,
		MaxGenerations:  evoCfg.MaxGenerations,
		Generations:     result.Generations,
		Evaluations:     result.Evaluations,
		Seed:            seed,
		Workers:         req.Workers,
		StopReason:      result.StopReason,
		BestFitness:     best.Score(),
		BestMSE:         bestMSE,
		ValidationMSE:   validationMSE,
		CreatedAtUTC:    createdAt,
		ElapsedMillis:   elapsed.Milliseconds(),
	}
	solution := model.Solution{
		VersionedRecord: storage.Stamp(),
		RunID:           runID,
		Descriptor:      desc.Record(),
		Genes:           best.Chromosome.Genes(),
		Fitness:         best.Score(),
		MSE:             bestMSE,
		Generation:      generation,
	}

	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveFitnessHistory(ctx, runID, result.BestByGeneration); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, result.Diagnostics); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveBestSolution(ctx, solution); err != nil {
		return RunSummary{}, err
	}
	c.systems.Delete(runID)

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config:                runConfig(runID, cfg, desc, data.OutputName(), seed),
		BestByGeneration:      result.BestByGeneration,
		BestEverByGeneration:  result.BestEverByGeneration,
		GenerationDiagnostics: result.Diagnostics,
		FinalBestFitness:      best.Score(),
		StopReason:            result.StopReason,
		BestSolution:          solution,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:            runID,
		DatasetPath:      req.DatasetPath,
		Variables:        desc.VariableCount(),
		FuzzySets:        desc.SetCount(),
		PopulationSize:   evoCfg.PopulationSize,
		Generations:      result.Generations,
		Seed:             seed,
		Workers:          req.Workers,
		StopReason:       result.StopReason,
		FinalBestFitness: best.Score(),
		CreatedAtUTC:     createdAt,
	}); err != nil {
		return RunSummary{}, err
	}

	logger.V(1).Info("run finished",
		"generations", result.Generations,
		"stopReason", result.StopReason,
		"bestFitness", best.Score(),
		"mse", bestMSE,
		"elapsed", elapsed,
	)
	return RunSummary{
		RunID:                runID,
		ArtifactsDir:         filepath.Clean(runDir),
		Seed:                 seed,
		Generations:          result.Generations,
		Evaluations:          result.Evaluations,
		StopReason:           result.StopReason,
		BestByGeneration:     append([]float64(nil), result.BestByGeneration...),
		BestEverByGeneration: append([]float64(nil), result.BestEverByGeneration...),
		FinalBestFitness:     best.Score(),
		BestMSE:              bestMSE,
		ValidationMSE:        validationMSE,
		Tuning:               tuneReport,
		Elapsed:              elapsed,
	}, nil
}

// Runs lists stored runs, newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RunItem, 0, min(len(runs), req.Limit))
	for i := len(runs) - 1; i >= 0 && len(out) < req.Limit; i-- {
		r := runs[i]
		out = append(out, RunItem{
			RunID:            r.ID,
			CreatedAtUTC:     r.CreatedAtUTC,
			DatasetPath:      r.DatasetPath,
			DatasetSize:      r.DatasetSize,
			Seed:             r.Seed,
			Population:       r.PopulationSize,
			Generations:      r.Generations,
			Evaluations:      r.Evaluations,
			StopReason:       r.StopReason,
			FinalBestFitness: r.BestFitness,
			BestMSE:          r.BestMSE,
			ValidationMSE:    r.ValidationMSE,
			Elapsed:          time.Duration(r.ElapsedMillis) * time.Millisecond,
		})
	}
	return out, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunRef)
	if err != nil {
		return nil, err
	}

	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		artifact, found, err := stats.ReadFitnessHistory(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: fitness history for %s", ErrRunNotFound, runID)
		}
		history = artifact.BestByGeneration
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunRef)
	if err != nil {
		return nil, err
	}

	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		diagnostics, ok, err = stats.ReadGenerationDiagnostics(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: diagnostics for %s", ErrRunNotFound, runID)
		}
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

// Rules decodes the best solution of a run into its rule base.
func (c *Client) Rules(ctx context.Context, req RulesRequest) ([]RuleItem, error) {
	desc, sys, err := c.loadSystem(ctx, req.RunRef)
	if err != nil {
		return nil, err
	}

	rules := sys.Rules()
	out := make([]RuleItem, 0, len(rules))
	for i, rule := range rules {
		sets := desc.RuleSets(i)
		item := RuleItem{Index: i, Constant: rule.Consequent().Constant()}
		for v, variable := range desc.Variables() {
			mf, _ := rule.Set(variable)
			item.Antecedent = append(item.Antecedent, ClauseItem{
				Variable: variable.Name(),
				Set:      sets[v],
				Shape:    mf.Shape(),
				Params:   mf.Params(),
			})
			coefficient, _ := rule.Consequent().Coefficient(variable)
			item.Terms = append(item.Terms, TermItem{Variable: variable.Name(), Coefficient: coefficient})
		}
		out = append(out, item)
	}
	return out, nil
}

// Predict evaluates the best solution of a run on every input map. Missing
// variables read as 0.
func (c *Client) Predict(ctx context.Context, req PredictRequest) ([]float64, error) {
	_, sys, err := c.loadSystem(ctx, req.RunRef)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(req.Inputs))
	for i, values := range req.Inputs {
		inputs, err := fuzzy.InputsFromNames(values)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		out[i] = sys.Calculate(inputs)
	}
	return out, nil
}

// Details reads the recorded configuration and series summary of a run.
func (c *Client) Details(ctx context.Context, ref RunRef) (RunDetails, error) {
	runID, err := c.resolveRunID(ctx, ref)
	if err != nil {
		return RunDetails{}, err
	}
	cfg, ok, err := stats.ReadRunConfig(c.artifactsDir, runID)
	if err != nil {
		return RunDetails{}, err
	}
	if !ok {
		return RunDetails{}, fmt.Errorf("%w: artifacts for %s", ErrRunNotFound, runID)
	}
	summary, ok, err := stats.ReadRunSummary(c.artifactsDir, runID)
	if err != nil {
		return RunDetails{}, err
	}
	if !ok {
		history, err := c.FitnessHistory(ctx, FitnessHistoryRequest{RunRef: RunRef{RunID: runID}})
		if err != nil {
			return RunDetails{}, err
		}
		final := 0.0
		if len(history) > 0 {
			final = history[len(history)-1]
		}
		summary = stats.SummarizeRun(runID, history, final)
	}
	return RunDetails{Config: cfg, Summary: summary}, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		return ExportSummary{}, errors.New("export requires an output directory")
	}
	runID, err := c.resolveRunID(ctx, req.RunRef)
	if err != nil {
		return ExportSummary{}, err
	}
	dir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(dir)}, nil
}

type decodedSystem struct {
	desc codec.Descriptor
	sys  *fuzzy.TskSystem
}

func (c *Client) loadSystem(ctx context.Context, ref RunRef) (codec.Descriptor, *fuzzy.TskSystem, error) {
	runID, err := c.resolveRunID(ctx, ref)
	if err != nil {
		return codec.Descriptor{}, nil, err
	}
	if cached, ok := c.systems.Get(runID); ok {
		d := cached.(decodedSystem)
		return d.desc, d.sys, nil
	}
	solution, ok, err := c.store.GetBestSolution(ctx, runID)
	if err != nil {
		return codec.Descriptor{}, nil, err
	}
	if !ok {
		solution, ok, err = stats.ReadBestSolution(c.artifactsDir, runID)
		if err != nil {
			return codec.Descriptor{}, nil, err
		}
		if !ok {
			return codec.Descriptor{}, nil, fmt.Errorf("%w: best solution for %s", ErrRunNotFound, runID)
		}
	}

	desc, err := codec.DescriptorFromRecord(solution.Descriptor)
	if err != nil {
		return codec.Descriptor{}, nil, fmt.Errorf("run %s: %w", runID, err)
	}
	sys, err := codec.New(desc).Decode(solution.Genes)
	if err != nil {
		return codec.Descriptor{}, nil, fmt.Errorf("run %s: %w", runID, err)
	}
	c.systems.SetDefault(runID, decodedSystem{desc: desc, sys: sys})
	return desc, sys, nil
}

// resolveRunID maps a RunRef to a run id. Latest prefers the store and falls
// back to the artifacts index.
func (c *Client) resolveRunID(ctx context.Context, ref RunRef) (string, error) {
	if ref.RunID != "" && ref.Latest {
		return "", errors.New("use either run id or latest")
	}
	if err := c.Init(ctx); err != nil {
		return "", err
	}
	if ref.RunID != "" {
		return ref.RunID, nil
	}
	if !ref.Latest {
		return "", errors.New("run id or latest is required")
	}

	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) > 0 {
		return runs[len(runs)-1].ID, nil
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", ErrNoRuns
	}
	return entries[0].RunID, nil
}

func (c *Client) withLogger(ctx context.Context) context.Context {
	if c.logger.GetSink() == nil {
		return ctx
	}
	return logr.NewContext(ctx, c.logger)
}

func runConfig(runID string, cfg config.Config, desc codec.Descriptor, output string, seed int64) stats.RunConfig {
	record := desc.Record()
	return stats.RunConfig{
		RunID:              runID,
		DatasetPath:        cfg.Run.Dataset,
		Variables:          record.Variables,
		Output:             output,
		FuzzySets:          record.FuzzySets,
		Shape:              record.Shape,
		TNorm:              record.TNorm,
		Ranges:             record.Ranges,
		PopulationSize:     cfg.GA.PopulationSize,
		MaxGenerations:     cfg.GA.MaxGenerations,
		ElitismCount:       cfg.GA.ElitismCount,
		CrossoverRate:      cfg.GA.CrossoverRate,
		MutationRate:       cfg.GA.MutationRate,
		MutationStrength:   cfg.GA.MutationStrength,
		TournamentSize:     cfg.GA.TournamentSize,
		FitnessThreshold:   cfg.GA.FitnessThreshold,
		Selection:          cfg.GA.Selection,
		Crossover:          cfg.GA.Crossover,
		Mutation:           cfg.GA.Mutation,
		ClampGenes:         cfg.GA.ClampGenes,
		TuneAttempts:       cfg.Tune.Attempts,
		TuneSteps:          cfg.Tune.Steps,
		TuneStepSize:       cfg.Tune.StepSize,
		TuneAnnealing:      cfg.Tune.Annealing,
		Seed:               seed,
		Workers:            cfg.Run.Workers,
		ValidationFraction: cfg.Run.ValidationFraction,
	}
}

// firstGenerationReaching returns the first generation whose best-ever
// fitness reached score. A solution found only by the final evaluation
// belongs to generation fallback.
func firstGenerationReaching(bestEver []float64, score float64, fallback int) int {
	for i, v := range bestEver {
		if v >= score {
			return i
		}
	}
	return fallback
}
