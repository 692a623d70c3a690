package evo

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrOperatorExists   = errors.New("operator already registered")
	ErrOperatorNotFound = errors.New("operator not found")
)

const (
	KindSelection = "selection"
	KindCrossover = "crossover"
	KindMutation  = "mutation"

	SelectionTournament = "tournament"
	SelectionRoulette   = "roulette"
	CrossoverBlend      = "blx"
	CrossoverUniform    = "uniform"
	MutationGaussian    = "gaussian"
)

// Factories build operators from the run configuration so that rates and
// sizes stay in one place.
type (
	SelectorFactory  func(cfg Config) Selector
	CrossoverFactory func(cfg Config) Crossover
	MutationFactory  func(cfg Config) Mutation
)

var operatorRegistry = struct {
	mu         sync.RWMutex
	selectors  map[string]SelectorFactory
	crossovers map[string]CrossoverFactory
	mutations  map[string]MutationFactory
}{
	selectors:  make(map[string]SelectorFactory),
	crossovers: make(map[string]CrossoverFactory),
	mutations:  make(map[string]MutationFactory),
}

func init() {
	initializeBuiltInOperators()
}

func initializeBuiltInOperators() {
	MustRegisterSelector(SelectionTournament, func(cfg Config) Selector {
		return TournamentSelector{Size: cfg.TournamentSize}
	})
	MustRegisterSelector(SelectionRoulette, func(Config) Selector {
		return RouletteSelector{}
	})
	MustRegisterCrossover(CrossoverBlend, func(Config) Crossover {
		return BlendCrossover{Alpha: DefaultBlendAlpha}
	})
	MustRegisterCrossover(CrossoverUniform, func(Config) Crossover {
		return UniformCrossover{}
	})
	MustRegisterMutation(MutationGaussian, func(cfg Config) Mutation {
		return GaussianMutation{Rate: cfg.MutationRate, Strength: cfg.MutationStrength}
	})
}

func RegisterSelector(name string, factory SelectorFactory) error {
	if name == "" {
		return errors.New("selector name is required")
	}
	if factory == nil {
		return errors.New("selector factory is required")
	}
	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.selectors[name]; exists {
		return fmt.Errorf("%w: %s %s", ErrOperatorExists, KindSelection, name)
	}
	operatorRegistry.selectors[name] = factory
	return nil
}

func RegisterCrossover(name string, factory CrossoverFactory) error {
	if name == "" {
		return errors.New("crossover name is required")
	}
	if factory == nil {
		return errors.New("crossover factory is required")
	}
	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.crossovers[name]; exists {
		return fmt.Errorf("%w: %s %s", ErrOperatorExists, KindCrossover, name)
	}
	operatorRegistry.crossovers[name] = factory
	return nil
}

func RegisterMutation(name string, factory MutationFactory) error {
	if name == "" {
		return errors.New("mutation name is required")
	}
	if factory == nil {
		return errors.New("mutation factory is required")
	}
	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.mutations[name]; exists {
		return fmt.Errorf("%w: %s %s", ErrOperatorExists, KindMutation, name)
	}
	operatorRegistry.mutations[name] = factory
	return nil
}

func MustRegisterSelector(name string, factory SelectorFactory) {
	if err := RegisterSelector(name, factory); err != nil {
		panic(err)
	}
}

func MustRegisterCrossover(name string, factory CrossoverFactory) {
	if err := RegisterCrossover(name, factory); err != nil {
		panic(err)
	}
}

func MustRegisterMutation(name string, factory MutationFactory) {
	if err := RegisterMutation(name, factory); err != nil {
		panic(err)
	}
}

// ResolveSelector builds the named selector. An empty name selects
// tournament.
func ResolveSelector(name string, cfg Config) (Selector, error) {
	if name == "" {
		name = SelectionTournament
	}
	operatorRegistry.mu.RLock()
	factory, ok := operatorRegistry.selectors[name]
	operatorRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrOperatorNotFound, KindSelection, name)
	}
	return factory(cfg), nil
}

// ResolveCrossover builds the named crossover. An empty name selects blx.
func ResolveCrossover(name string, cfg Config) (Crossover, error) {
	if name == "" {
		name = CrossoverBlend
	}
	operatorRegistry.mu.RLock()
	factory, ok := operatorRegistry.crossovers[name]
	operatorRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrOperatorNotFound, KindCrossover, name)
	}
	return factory(cfg), nil
}

// ResolveMutation builds the named mutation. An empty name selects gaussian.
func ResolveMutation(name string, cfg Config) (Mutation, error) {
	if name == "" {
		name = MutationGaussian
	}
	operatorRegistry.mu.RLock()
	factory, ok := operatorRegistry.mutations[name]
	operatorRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrOperatorNotFound, KindMutation, name)
	}
	return factory(cfg), nil
}

// ListOperators returns the registered operator names of kind.
func ListOperators(kind string) []string {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()

	var names []string
	switch kind {
	case KindSelection:
		for name := range operatorRegistry.selectors {
			names = append(names, name)
		}
	case KindCrossover:
		for name := range operatorRegistry.crossovers {
			names = append(names, name)
		}
	case KindMutation:
		for name := range operatorRegistry.mutations {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func resetOperatorRegistryForTests() {
	operatorRegistry.mu.Lock()
	operatorRegistry.selectors = make(map[string]SelectorFactory)
	operatorRegistry.crossovers = make(map[string]CrossoverFactory)
	operatorRegistry.mutations = make(map[string]MutationFactory)
	operatorRegistry.mu.Unlock()
	initializeBuiltInOperators()
}
