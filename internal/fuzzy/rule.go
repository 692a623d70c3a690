package fuzzy

import (
	"errors"
	"fmt"
	"sort"
)

// Clause is one "variable is set" condition of a rule antecedent.
type Clause struct {
	Variable InputVariable
	Set      MembershipFunction
}

// Term is one coefficient of a linear consequent.
type Term struct {
	Variable    InputVariable
	Coefficient float64
}

// TskConsequent is the linear THEN part of a TSK rule:
// z = sum(coefficient * input) + constant. Terms are kept ordered by
// variable name.
type TskConsequent struct {
	terms    []Term
	constant float64
}

func NewConsequent(terms []Term, constant float64) (TskConsequent, error) {
	sorted := append([]Term(nil), terms...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Variable.Compare(sorted[j].Variable) < 0
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Variable == sorted[i-1].Variable {
			return TskConsequent{}, fmt.Errorf("consequent: %w: %s", ErrDuplicateVariable, sorted[i].Variable)
		}
	}
	return TskConsequent{terms: sorted, constant: constant}, nil
}

func (c TskConsequent) Terms() []Term {
	return append([]Term(nil), c.terms...)
}

func (c TskConsequent) Constant() float64 {
	return c.constant
}

func (c TskConsequent) Coefficient(v InputVariable) (float64, bool) {
	for _, term := range c.terms {
		if term.Variable == v {
			return term.Coefficient, true
		}
	}
	return 0, false
}

// Evaluate computes the consequent output. Absent inputs count as 0.
func (c TskConsequent) Evaluate(in Inputs) float64 {
	sum := 0.0
	for _, term := range c.terms {
		sum += term.Coefficient * in.Value(term.Variable)
	}
	return sum + c.constant
}

// FuzzyRule is an immutable IF-THEN rule. Antecedent clauses are kept
// ordered by variable name.
type FuzzyRule struct {
	antecedent []Clause
	consequent TskConsequent
}

func NewRule(antecedent []Clause, consequent TskConsequent) (FuzzyRule, error) {
	sorted := append([]Clause(nil), antecedent...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Variable.Compare(sorted[j].Variable) < 0
	})
	for i := range sorted {
		if sorted[i].Set == nil {
			return FuzzyRule{}, errors.New("antecedent clause requires a membership function")
		}
		if i > 0 && sorted[i].Variable == sorted[i-1].Variable {
			return FuzzyRule{}, fmt.Errorf("antecedent: %w: %s", ErrDuplicateVariable, sorted[i].Variable)
		}
	}
	return FuzzyRule{antecedent: sorted, consequent: consequent}, nil
}

func (r FuzzyRule) Antecedent() []Clause {
	return append([]Clause(nil), r.antecedent...)
}

func (r FuzzyRule) Consequent() TskConsequent {
	return r.consequent
}

// Set returns the membership function the rule uses for v.
func (r FuzzyRule) Set(v InputVariable) (MembershipFunction, bool) {
	for _, clause := range r.antecedent {
		if clause.Variable == v {
			return clause.Set, true
		}
	}
	return nil, false
}

// FiringStrength aggregates clause memberships with t. An empty antecedent
// fires with strength 1.
func (r FuzzyRule) FiringStrength(in Inputs, t TNorm) float64 {
	memberships := make([]float64, len(r.antecedent))
	for i, clause := range r.antecedent {
		memberships[i] = clause.Set.Membership(in.Value(clause.Variable))
	}
	return Aggregate(memberships, t)
}
