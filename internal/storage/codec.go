package storage

import (
	"encoding/json"
	"errors"
	"sort"

	"fuzzyga/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp returns the current record version.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(run model.RunRecord) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeSolution(s model.Solution) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSolution(data []byte) (model.Solution, error) {
	var solution model.Solution
	if err := json.Unmarshal(data, &solution); err != nil {
		return model.Solution{}, err
	}
	if err := checkVersion(solution.VersionedRecord); err != nil {
		return model.Solution{}, err
	}
	return solution, nil
}

func EncodeFitnessHistory(history []float64) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeFitnessHistory(data []byte) ([]float64, error) {
	var history []float64
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func EncodeGenerationDiagnostics(diagnostics []model.GenerationDiagnostics) ([]byte, error) {
	return json.Marshal(diagnostics)
}

func DecodeGenerationDiagnostics(data []byte) ([]model.GenerationDiagnostics, error) {
	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, err
	}
	return diagnostics, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

// sortRuns orders runs oldest first by creation time, breaking ties by id.
func sortRuns(runs []model.RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if c := model.CompareTimestamps(runs[i].CreatedAtUTC, runs[j].CreatedAtUTC); c != 0 {
			return c < 0
		}
		return runs[i].ID < runs[j].ID
	})
}

func copySolution(s model.Solution) model.Solution {
	s.Genes = append([]float64(nil), s.Genes...)
	s.Descriptor.Variables = append([]string(nil), s.Descriptor.Variables...)
	if s.Descriptor.Ranges != nil {
		ranges := make(map[string]model.RangeRecord, len(s.Descriptor.Ranges))
		for k, v := range s.Descriptor.Ranges {
			ranges[k] = v
		}
		s.Descriptor.Ranges = ranges
	}
	return s
}
