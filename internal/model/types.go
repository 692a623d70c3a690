package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RangeRecord is a closed [Min, Max] parameter range.
type RangeRecord struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DescriptorRecord is the persisted form of a fuzzy system descriptor. A
// chromosome is only meaningful together with the descriptor it was
// encoded against.
type DescriptorRecord struct {
	VersionedRecord
	Variables []string               `json:"variables"`
	FuzzySets int                    `json:"fuzzy_sets"`
	Shape     string                 `json:"shape"`
	TNorm     string                 `json:"tnorm"`
	Ranges    map[string]RangeRecord `json:"ranges"`
}

// Solution pairs the best chromosome of a run with its descriptor.
type Solution struct {
	VersionedRecord
	RunID      string           `json:"run_id"`
	Descriptor DescriptorRecord `json:"descriptor"`
	Genes      []float64        `json:"genes"`
	Fitness    float64          `json:"fitness"`
	MSE        float64          `json:"mse"`
	Generation int              `json:"generation"`
}

type RunRecord struct {
	VersionedRecord
	ID             string  `json:"id"`
	DatasetPath    string  `json:"dataset_path,omitempty"`
	DatasetSize    int     `json:"dataset_size"`
	ValidationSize int     `json:"validation_size,omitempty"`
	PopulationSize int     `json:"population_size"`
	MaxGenerations int     `json:"max_generations"`
	Generations    int     `json:"generations"`
	Evaluations    int     `json:"evaluations"`
	Seed           int64   `json:"seed"`
	Workers        int     `json:"workers"`
	StopReason     string  `json:"stop_reason"`
	BestFitness    float64 `json:"best_fitness"`
	BestMSE        float64 `json:"best_mse"`
	ValidationMSE  float64 `json:"validation_mse,omitempty"`
	CreatedAtUTC   string  `json:"created_at_utc"`
	ElapsedMillis  int64   `json:"elapsed_millis"`
}

type GenerationDiagnostics struct {
	Generation        int     `json:"generation"`
	BestFitness       float64 `json:"best_fitness"`
	BestEverFitness   float64 `json:"best_ever_fitness"`
	MeanFitness       float64 `json:"mean_fitness"`
	StdDevFitness     float64 `json:"stddev_fitness"`
	MinFitness        float64 `json:"min_fitness"`
	PopulationSize    int     `json:"population_size"`
	EvaluatedCount    int     `json:"evaluated_count"`
	DistinctGenotypes int     `json:"distinct_genotypes"`
}
