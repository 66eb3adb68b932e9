package pattern

import "fmt"

// MaxDisjuncts bounds the size of a disjunctive normal form. Distributing
// conjunctions over disjunctions is exponential in the number of nested
// disjunctions.
const MaxDisjuncts = 1024

// DisjunctiveNormalForm rewrites a pattern as a disjunction of conjunctions of
// atoms. Every returned conjunction contains only atoms.
func DisjunctiveNormalForm(p Pattern) ([]Conjunction, error) {
	switch p := p.(type) {
	case nil:
		return nil, fmt.Errorf("nil pattern")
	case Atom:
		return []Conjunction{{Patterns: []Pattern{p}}}, nil

	case Disjunction:
		var out []Conjunction
		for _, child := range p.Patterns {
			conjs, err := DisjunctiveNormalForm(child)
			if err != nil {
				return nil, err
			}
			out = append(out, conjs...)
			if len(out) > MaxDisjuncts {
				return nil, fmt.Errorf("pattern expands to more than %d disjuncts", MaxDisjuncts)
			}
		}
		return out, nil

	case Conjunction:
		// Start from the empty conjunction and distribute each child over it
		out := []Conjunction{{}}
		for _, child := range p.Patterns {
			conjs, err := DisjunctiveNormalForm(child)
			if err != nil {
				return nil, err
			}
			if len(out)*len(conjs) > MaxDisjuncts {
				return nil, fmt.Errorf("pattern expands to more than %d disjuncts", MaxDisjuncts)
			}
			next := make([]Conjunction, 0, len(out)*len(conjs))
			for _, left := range out {
				for _, right := range conjs {
					merged := make([]Pattern, 0, len(left.Patterns)+len(right.Patterns))
					merged = append(merged, left.Patterns...)
					merged = append(merged, right.Patterns...)
					next = append(next, Conjunction{Patterns: merged})
				}
			}
			out = next
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported pattern type %T", p)
	}
}
