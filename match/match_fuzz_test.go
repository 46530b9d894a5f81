package match

// Fuzz patterns and facts.  Unify and then verify the results against
// a straightforward oracle.

import (
	"fmt"
	"math/rand"
	"testing"
	"time"
)

// Fuzz has parameters used to generate random patterns and facts.
type Fuzz struct {
	Width       int
	Attrs       string
	Alphabet    string
	VarAlphabet string

	Constants float64
	Vars      float64
	Anons     float64
	Negations float64

	// generated counts the number of slots generated.
	generated int64
}

// NoVars sets Vars, Anons, and Negations to zero so that only ground
// facts will be generated.
func (f *Fuzz) NoVars() {
	f.Vars = 0
	f.Anons = 0
	f.Negations = 0
}

// NewFuzz returns a reasonable, general-purpose Fuzz.
func NewFuzz() *Fuzz {
	return &Fuzz{
		Width:       4,
		Attrs:       "abcdef",
		Alphabet:    "xyz",
		VarAlphabet: "UVW",

		Constants: 4,
		Vars:      3,
		Anons:     0.5,
		Negations: 1,
	}
}

// Gen generates a random pattern (or, with NoVars, a random fact).
//
// Attributes are unique within the result.
func (f *Fuzz) Gen(r *rand.Rand) Pattern {
	n := r.Intn(f.Width) + 1
	perm := r.Perm(len(f.Attrs))
	acc := make(Pattern, 0, n)
	for i := 0; i < n && i < len(perm); i++ {
		f.generated++
		acc = append(acc, Slot{
			Attr:  string(f.Attrs[perm[i]]),
			Value: f.genValue(r),
		})
	}
	return acc
}

func (f *Fuzz) genValue(r *rand.Rand) string {
	total := f.Constants + f.Vars + f.Anons + f.Negations
	t := r.Float64() * total
	switch {
	case t < f.Constants:
		return f.genConstant(r)
	case t < f.Constants+f.Vars:
		return f.genVar(r)
	case t < f.Constants+f.Vars+f.Anons:
		return "?"
	default:
		if r.Intn(2) == 0 {
			return "!" + f.genConstant(r)
		}
		return "!" + f.genVar(r)
	}
}

func (f *Fuzz) genConstant(r *rand.Rand) string {
	return string(f.Alphabet[r.Intn(len(f.Alphabet))])
}

func (f *Fuzz) genVar(r *rand.Rand) string {
	return "?" + string(f.VarAlphabet[r.Intn(len(f.VarAlphabet))])
}

func asFact(p Pattern) MapFact {
	m := make(MapFact, len(p))
	for _, s := range p {
		m[s.Attr] = s.Value
	}
	return m
}

// oracle decides a unification the slow and obvious way.
//
// Returns matched, expectError.
func oracle(p Pattern, fact MapFact) (bool, bool) {
	values := make(map[string]string)
	for _, s := range p {
		fv, have := fact[s.Attr]
		if !have {
			return false, false
		}
		if IsNegated(s.Value) || IsAnonymousVariable(s.Value) {
			continue
		}
		if IsVariable(s.Value) {
			if v, seen := values[s.Value]; seen && v != fv {
				return false, false
			}
			values[s.Value] = fv
			continue
		}
		if s.Value != fv {
			return false, false
		}
	}
	for _, s := range p {
		if !IsNegated(s.Value) {
			continue
		}
		not := Negated(s.Value)
		if IsVariable(not) {
			v, have := values[not]
			if !have {
				return false, true
			}
			not = v
		}
		if fact[s.Attr] == not {
			return false, false
		}
	}
	return true, false
}

// TestUnifyFuzz unifies a bunch of patterns against a bunch of facts.
//
// Verifies every result against the oracle.
func TestUnifyFuzz(t *testing.T) {
	var (
		pats        = 500
		factsPerPat = 500

		r = rand.New(rand.NewSource(42))
		p = NewFuzz()
		m = NewFuzz()

		matched   = 0
		attempted = 0
		errs      = 0
	)
	m.NoVars()
	m.Width = 6

	then := time.Now()
	for i := 0; i < pats; i++ {
		pat := p.Gen(r)
		for j := 0; j < factsPerPat; j++ {
			fact := asFact(m.Gen(r))
			attempted++

			want, wantErr := oracle(pat, fact)
			bs, err := Unify(pat, fact, nil)
			if err != nil {
				errs++
				if !wantErr {
					t.Fatalf("unexpected error %v for %v against %v", err, pat, fact)
				}
				continue
			}
			if wantErr {
				t.Fatalf("expected an error for %v against %v", pat, fact)
			}
			if (bs != nil) != want {
				t.Fatalf("unify %v against %v: got %v, oracle says %v", pat, fact, bs, want)
			}
			if bs == nil {
				continue
			}
			matched++

			// Every positive variable is bound, and the bound
			// pattern matches without further binding.
			for _, v := range PositiveVars(pat) {
				if _, have := bs[v]; !have {
					t.Fatalf("%s not bound by %v against %v", v, pat, fact)
				}
			}
			check, err := Unify(pat, fact, bs)
			if err != nil {
				t.Fatal(err)
			}
			if len(check) != len(bs) {
				t.Fatalf("rematch changed bindings: %v vs %v", check, bs)
			}
		}
	}
	elapsed := time.Now().Sub(then)

	fmt.Printf(`fuzzed      %d
matched     %f%%
errors      %f%% (%d)
elapsed     %fms
generated   %d
`,
		attempted,
		100*float64(matched)/float64(attempted),
		100*float64(errs)/float64(attempted), errs,
		elapsed.Seconds()*1000,
		p.generated+m.generated)
}
