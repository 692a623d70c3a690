package evo

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidConfig = errors.New("invalid ga config")

type Config struct {
	PopulationSize   int
	MaxGenerations   int
	ElitismCount     int
	CrossoverRate    float64
	MutationRate     float64
	MutationStrength float64
	TournamentSize   int
	FitnessThreshold float64
}

func (c Config) Validate() error {
	if c.PopulationSize <= 0 {
		return fmt.Errorf("%w: population size must be > 0", ErrInvalidConfig)
	}
	if c.MaxGenerations < 0 {
		return fmt.Errorf("%w: max generations must be >= 0", ErrInvalidConfig)
	}
	if c.ElitismCount < 0 || c.ElitismCount > c.PopulationSize {
		return fmt.Errorf("%w: elitism count must be in [0, population size]", ErrInvalidConfig)
	}
	if !unitInterval(c.CrossoverRate) {
		return fmt.Errorf("%w: crossover rate must be in [0, 1]", ErrInvalidConfig)
	}
	if !unitInterval(c.MutationRate) {
		return fmt.Errorf("%w: mutation rate must be in [0, 1]", ErrInvalidConfig)
	}
	if math.IsNaN(c.MutationStrength) || c.MutationStrength < 0 {
		return fmt.Errorf("%w: mutation strength must be >= 0", ErrInvalidConfig)
	}
	if c.TournamentSize < 1 {
		return fmt.Errorf("%w: tournament size must be >= 1", ErrInvalidConfig)
	}
	if math.IsNaN(c.FitnessThreshold) {
		return fmt.Errorf("%w: fitness threshold must be a number", ErrInvalidConfig)
	}
	return nil
}

func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}
