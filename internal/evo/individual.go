package evo

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"sort"
	"strconv"
)

// Chromosome is an immutable, fixed-length vector of real-valued genes.
type Chromosome struct {
	genes []float64
}

func NewChromosome(genes []float64) Chromosome {
	return Chromosome{genes: append([]float64(nil), genes...)}
}

// Genes returns a copy of the gene vector.
func (c Chromosome) Genes() []float64 {
	return append([]float64(nil), c.genes...)
}

func (c Chromosome) Gene(i int) float64 {
	return c.genes[i]
}

func (c Chromosome) Len() int {
	return len(c.genes)
}

// Fingerprint hashes the exact gene bits. Equal chromosomes share a
// fingerprint.
func (c Chromosome) Fingerprint() string {
	h := fnv.New64a()
	var buf [8]byte
	for _, g := range c.genes {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(g))
		_, _ = h.Write(buf[:])
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Fitness is either pending or an evaluated score.
type Fitness struct {
	value     float64
	evaluated bool
}

func Pending() Fitness {
	return Fitness{}
}

func Evaluated(value float64) Fitness {
	return Fitness{value: value, evaluated: true}
}

func (f Fitness) IsEvaluated() bool {
	return f.evaluated
}

// Value returns the score and whether it has been evaluated.
func (f Fitness) Value() (float64, bool) {
	return f.value, f.evaluated
}

// rank orders fitness values; pending and NaN scores sort below everything.
func (f Fitness) rank() float64 {
	if !f.evaluated || math.IsNaN(f.value) {
		return math.Inf(-1)
	}
	return f.value
}

// Better reports whether f ranks strictly above other.
func (f Fitness) Better(other Fitness) bool {
	return f.rank() > other.rank()
}

func (f Fitness) String() string {
	if !f.evaluated {
		return "pending"
	}
	return strconv.FormatFloat(f.value, 'g', -1, 64)
}

type Individual struct {
	Chromosome Chromosome
	Fitness    Fitness
}

func NewIndividual(c Chromosome) Individual {
	return Individual{Chromosome: c, Fitness: Pending()}
}

// Score returns the evaluated fitness, or 0 for a pending individual.
func (i Individual) Score() float64 {
	value, _ := i.Fitness.Value()
	return value
}

// SortByFitness orders individuals by descending fitness in place. Pending
// individuals sort last and ties keep their relative order.
func SortByFitness(population []Individual) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].Fitness.Better(population[j].Fitness)
	})
}

func cloneIndividuals(population []Individual) []Individual {
	out := make([]Individual, len(population))
	copy(out, population)
	return out
}
