package match

import (
	"reflect"
	"testing"
)

func p(kvs ...string) Pattern {
	acc := make(Pattern, 0, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		acc = append(acc, Slot{Attr: kvs[i], Value: kvs[i+1]})
	}
	return acc
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		pattern  Pattern
		fact     MapFact
		bindings Bindings
		want     Bindings
		err      bool
	}{
		{
			name:    "constants",
			pattern: p("coffee", "cappuccino"),
			fact:    MapFact{"coffee": "cappuccino", "pu": "cappuccino"},
			want:    Bindings{},
		},
		{
			name:    "constant mismatch",
			pattern: p("coffee", "latte"),
			fact:    MapFact{"coffee": "cappuccino"},
		},
		{
			name:    "variable binds",
			pattern: p("coffee", "cappuccino", "pu", "?plan"),
			fact:    MapFact{"coffee": "cappuccino", "pu": "cappuccino"},
			want:    Bindings{"?plan": "cappuccino"},
		},
		{
			name:    "repeated variable consistent",
			pattern: p("drink", "?d", "called", "?d", "isa", "milk"),
			fact:    MapFact{"drink": "oat_milk", "called": "oat_milk", "isa": "milk"},
			want:    Bindings{"?d": "oat_milk"},
		},
		{
			name:    "repeated variable inconsistent",
			pattern: p("drink", "?d", "called", "?d"),
			fact:    MapFact{"drink": "cow_milk", "called": "milk"},
		},
		{
			name:     "bound variable must agree",
			pattern:  p("drink", "?d"),
			fact:     MapFact{"drink": "cow_milk"},
			bindings: Bindings{"?d": "oat_milk"},
		},
		{
			name:     "bound variable agrees",
			pattern:  p("drink", "?d", "isa", "?k"),
			fact:     MapFact{"drink": "cow_milk", "isa": "milk"},
			bindings: Bindings{"?d": "cow_milk"},
			want:     Bindings{"?d": "cow_milk", "?k": "milk"},
		},
		{
			name:    "absent attribute fails",
			pattern: p("drink", "?d", "color", "?c"),
			fact:    MapFact{"drink": "cow_milk"},
		},
		{
			name:    "anonymous",
			pattern: p("drink", "?"),
			fact:    MapFact{"drink": "cow_milk"},
			want:    Bindings{},
		},
		{
			name:    "negation ignored by Match but presence required",
			pattern: p("drink", "!cow_milk"),
			fact:    MapFact{"isa": "milk"},
		},
		{
			name:    "empty pattern",
			pattern: p(),
			fact:    MapFact{"drink": "cow_milk"},
			want:    Bindings{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before Bindings
			if tt.bindings != nil {
				before = tt.bindings.Copy()
			}
			got, err := Match(tt.pattern, tt.fact, tt.bindings)
			if (err != nil) != tt.err {
				t.Fatalf("error %v", err)
			}
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected no match but got %v", got)
				}
			} else if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if tt.bindings != nil && !reflect.DeepEqual(before, tt.bindings) {
				t.Fatalf("input bindings modified: %v", tt.bindings)
			}
		})
	}
}

func TestUnifyNegation(t *testing.T) {
	fact := MapFact{"milk": "cow_milk", "called": "milk", "isa": "default"}

	if bs, err := Unify(p("milk", "?m", "isa", "!alternative"), fact, nil); err != nil || bs == nil {
		t.Fatalf("expected match: %v %v", bs, err)
	}
	if bs, err := Unify(p("milk", "?m", "isa", "!default"), fact, nil); err != nil || bs != nil {
		t.Fatalf("expected no match: %v %v", bs, err)
	}
	if bs, err := Unify(p("milk", "?m", "called", "!?m"), fact, nil); err != nil || bs == nil {
		t.Fatalf("expected match: %v %v", bs, err)
	}
	if bs, err := Unify(p("called", "?c", "isa", "!?c"), MapFact{"called": "x", "isa": "x"}, nil); err != nil || bs != nil {
		t.Fatalf("expected no match: %v %v", bs, err)
	}
	_, err := Unify(p("isa", "!?nope"), fact, nil)
	if _, is := err.(*UnboundNegation); !is {
		t.Fatalf("expected UnboundNegation, got %v", err)
	}
}

func TestMatcherSwitches(t *testing.T) {
	m := &Matcher{}
	if _, err := m.Match(p("drink", "?"), MapFact{"drink": "x"}, nil); err == nil {
		t.Fatal("expected an error for a disabled anonymous variable")
	}
	if _, err := m.Match(p("drink", "!x"), MapFact{"drink": "y"}, nil); err == nil {
		t.Fatal("expected an error for a disabled negation")
	}
}

func TestSubstitute(t *testing.T) {
	got, err := Substitute(p("milk", "?d", "called", "?n", "isa", "alternative"), Bindings{"?d": "oat_milk", "?n": "oat"})
	if err != nil {
		t.Fatal(err)
	}
	if want := p("milk", "oat_milk", "called", "oat", "isa", "alternative"); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}

	if _, err = Substitute(p("milk", "?d"), NewBindings()); err == nil {
		t.Fatal("expected UnboundVariable")
	} else if _, is := err.(*UnboundVariable); !is {
		t.Fatalf("wrong error %T", err)
	}

	if _, err = Substitute(p("milk", "!x"), nil); err == nil {
		t.Fatal("expected BadValue")
	}
}

func TestBind(t *testing.T) {
	got := Bind(p("ut", "?plan", "ut0", "?task0", "mtd", "!?plan"), Bindings{"?plan": "cappuccino"})
	want := p("ut", "cappuccino", "ut0", "?task0", "mtd", "!cappuccino")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}
}

func TestVars(t *testing.T) {
	pat := p("a", "?x", "b", "?", "c", "?y", "d", "?x", "e", "!?z", "f", "!k")
	if got := PositiveVars(pat); !reflect.DeepEqual(got, []string{"?x", "?y"}) {
		t.Fatalf("positive %v", got)
	}
	if got := NegatedVars(pat); !reflect.DeepEqual(got, []string{"?z"}) {
		t.Fatalf("negated %v", got)
	}
	if got := Vars(pat); !reflect.DeepEqual(got, []string{"?x", "?y", "?z"}) {
		t.Fatalf("all %v", got)
	}
}
