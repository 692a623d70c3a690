package fuzzy

// TskSystem is a Takagi-Sugeno-Kang inference system over an ordered rule
// base. It holds no mutable state and is safe for concurrent use.
type TskSystem struct {
	rules []FuzzyRule
	tnorm TNorm
}

type SystemOption func(*TskSystem)

// WithTNorm replaces the default Einstein product.
func WithTNorm(t TNorm) SystemOption {
	return func(s *TskSystem) {
		if t != nil {
			s.tnorm = t
		}
	}
}

func NewTskSystem(rules []FuzzyRule, opts ...SystemOption) *TskSystem {
	s := &TskSystem{
		rules: append([]FuzzyRule(nil), rules...),
		tnorm: EinsteinProduct,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TskSystem) Rules() []FuzzyRule {
	return append([]FuzzyRule(nil), s.rules...)
}

func (s *TskSystem) RuleCount() int {
	return len(s.rules)
}

// Strengths returns the firing strength of every rule, in rule order.
func (s *TskSystem) Strengths(in Inputs) []float64 {
	out := make([]float64, len(s.rules))
	for i, rule := range s.rules {
		out[i] = rule.FiringStrength(in, s.tnorm)
	}
	return out
}

// Calculate returns the firing-strength weighted average of the rule
// consequents. An empty rule base or zero total strength yields 0.
func (s *TskSystem) Calculate(in Inputs) float64 {
	if len(s.rules) == 0 {
		return 0
	}

	var totalStrength, weighted float64
	for _, rule := range s.rules {
		strength := rule.FiringStrength(in, s.tnorm)
		if strength == 0 {
			continue
		}
		totalStrength += strength
		weighted += strength * rule.consequent.Evaluate(in)
	}
	if totalStrength == 0 {
		return 0
	}
	return weighted / totalStrength
}
