package codec

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"fuzzyga/internal/fuzzy"
)

var (
	ErrLengthMismatch       = errors.New("chromosome length mismatch")
	ErrInconsistentRuleBase = errors.New("rule base inconsistent with descriptor")
)

// Codec maps flat gene vectors to TSK rule bases and back.
//
// Layout: the antecedent segment holds, per variable in descriptor order and
// per fuzzy set, the shape parameters (center, width). The consequent segment
// holds, per rule in canonical order, one coefficient per variable followed
// by the constant.
type Codec struct {
	desc Descriptor
}

func New(desc Descriptor) *Codec {
	return &Codec{desc: desc}
}

func (c *Codec) Descriptor() Descriptor {
	return c.desc
}

func (c *Codec) Length() int {
	return c.desc.ChromosomeLength()
}

// Decode builds a TSK system from genes. Membership parameters are used as
// found; nothing is clamped.
func (c *Codec) Decode(genes []float64) (*fuzzy.TskSystem, error) {
	rules, err := c.DecodeRules(genes)
	if err != nil {
		return nil, err
	}
	return fuzzy.NewTskSystem(rules, fuzzy.WithTNorm(c.desc.tnorm)), nil
}

// DecodeRules returns the rule base encoded by genes in canonical order.
func (c *Codec) DecodeRules(genes []float64) ([]fuzzy.FuzzyRule, error) {
	d := c.desc
	if len(genes) != d.ChromosomeLength() {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrLengthMismatch, len(genes), d.ChromosomeLength())
	}

	paramCount := d.shape.ParamCount()
	sets := make([][]fuzzy.MembershipFunction, len(d.variables))
	for v := range d.variables {
		sets[v] = make([]fuzzy.MembershipFunction, d.sets)
		for s := 0; s < d.sets; s++ {
			offset := d.AntecedentOffset(v, s)
			params := append([]float64(nil), genes[offset:offset+paramCount]...)
			fn, err := d.shape.New(params)
			if err != nil {
				return nil, err
			}
			sets[v][s] = fn
		}
	}

	ruleCount := d.RuleCount()
	rules := make([]fuzzy.FuzzyRule, 0, ruleCount)
	for i := 0; i < ruleCount; i++ {
		indices := d.RuleSets(i)
		clauses := make([]fuzzy.Clause, len(d.variables))
		for v, variable := range d.variables {
			clauses[v] = fuzzy.Clause{Variable: variable, Set: sets[v][indices[v]]}
		}

		offset := d.ConsequentOffset(i)
		terms := make([]fuzzy.Term, len(d.variables))
		for v, variable := range d.variables {
			terms[v] = fuzzy.Term{Variable: variable, Coefficient: genes[offset+v]}
		}
		consequent, err := fuzzy.NewConsequent(terms, genes[offset+len(d.variables)])
		if err != nil {
			return nil, err
		}

		rule, err := fuzzy.NewRule(clauses, consequent)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Encode is the inverse of DecodeRules for rule bases in canonical order.
// Rules that share a fuzzy set must agree on its parameters.
func (c *Codec) Encode(rules []fuzzy.FuzzyRule) ([]float64, error) {
	d := c.desc
	if len(rules) != d.RuleCount() {
		return nil, fmt.Errorf("%w: got %d rules want %d", ErrInconsistentRuleBase, len(rules), d.RuleCount())
	}

	genes := make([]float64, d.ChromosomeLength())
	paramCount := d.shape.ParamCount()
	written := make([]bool, d.AntecedentLength())

	for i, rule := range rules {
		if got := len(rule.Antecedent()); got != len(d.variables) {
			return nil, fmt.Errorf("%w: rule %d has %d clauses", ErrInconsistentRuleBase, i, got)
		}
		indices := d.RuleSets(i)
		for v, variable := range d.variables {
			set, ok := rule.Set(variable)
			if !ok {
				return nil, fmt.Errorf("%w: rule %d lacks variable %s", ErrInconsistentRuleBase, i, variable)
			}
			if set.Shape() != d.shape.Name {
				return nil, fmt.Errorf("%w: rule %d variable %s has shape %s", ErrInconsistentRuleBase, i, variable, set.Shape())
			}
			params := set.Params()
			if len(params) != paramCount {
				return nil, fmt.Errorf("%w: rule %d variable %s has %d params", ErrInconsistentRuleBase, i, variable, len(params))
			}
			offset := d.AntecedentOffset(v, indices[v])
			for p, value := range params {
				if written[offset+p] && math.Float64bits(genes[offset+p]) != math.Float64bits(value) {
					return nil, fmt.Errorf("%w: rule %d disagrees on set %d of %s", ErrInconsistentRuleBase, i, indices[v], variable)
				}
				genes[offset+p] = value
				written[offset+p] = true
			}
		}

		consequent := rule.Consequent()
		if got := len(consequent.Terms()); got != len(d.variables) {
			return nil, fmt.Errorf("%w: rule %d consequent has %d terms", ErrInconsistentRuleBase, i, got)
		}
		offset := d.ConsequentOffset(i)
		for v, variable := range d.variables {
			coef, ok := consequent.Coefficient(variable)
			if !ok {
				return nil, fmt.Errorf("%w: rule %d consequent lacks %s", ErrInconsistentRuleBase, i, variable)
			}
			genes[offset+v] = coef
		}
		genes[offset+len(d.variables)] = consequent.Constant()
	}
	return genes, nil
}

// Random samples a chromosome whose every gene lies in its descriptor range.
func (c *Codec) Random(rng *rand.Rand) []float64 {
	bounds := c.desc.GeneBounds()
	genes := make([]float64, len(bounds))
	for i, r := range bounds {
		genes[i] = r.Sample(rng)
	}
	return genes
}

func (c *Codec) GeneBounds() []Range {
	return c.desc.GeneBounds()
}
