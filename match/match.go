/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package match implements the core pattern matcher.
//
// A pattern is an ordered list of attribute/value slots.  A value is
// either a constant symbol, a variable (a string starting with '?'),
// or a negation (a string starting with '!') of a constant or a
// variable.  A pattern is matched against a fact, which is anything
// that can look up the value of an attribute.
package match

import (
	"strings"
)

// Slot is an attribute/value pair.
type Slot struct {
	Attr  string `json:"attr"`
	Value string `json:"value"`
}

// Pattern is an ordered list of Slots that might contain variables.
type Pattern []Slot

// Fact is something a Pattern can be matched against.
type Fact interface {
	// Value returns the value for the given attribute (if any).
	Value(attr string) (string, bool)
}

// MapFact is a Fact backed by a plain map.
type MapFact map[string]string

func (f MapFact) Value(attr string) (string, bool) {
	v, have := f[attr]
	return v, have
}

type Matcher struct {
	// Negation enables negated pattern values.
	//
	// With this feature, a pattern value "!x" matches any present
	// value other than "x", and a pattern value "!?x" matches any
	// present value other than the binding for "?x".  The
	// variable must already be bound when the negation is
	// checked.  Negations never create bindings.
	Negation bool

	// AnonymousVariables enables the variable '?', which matches
	// any present value and is never bound.
	AnonymousVariables bool
}

var DefaultMatcher = &Matcher{
	Negation:           true,
	AnonymousVariables: true,
}

// Bindings is a map from variables (strings starting with a '?') to
// their values.
type Bindings map[string]string

func NewBindings() Bindings {
	return make(Bindings, 8)
}

// Extend adds the binding; modifies and returns the Bindings.
//
// The Bindings are modified.
func (bs Bindings) Extend(p string, v string) Bindings {
	bs[p] = v
	return bs
}

// Remove removes the given keys.
//
// The Bindings are modified.
func (bs Bindings) Remove(ps ...string) Bindings {
	for _, p := range ps {
		delete(bs, p)
	}
	return bs
}

// Copy makes a shallow copy of the Bindings.
func (bs Bindings) Copy() Bindings {
	acc := make(Bindings, len(bs))
	for k, v := range bs {
		acc[k] = v
	}
	return acc
}

// IsVariable reports if the string represents a pattern variable.
//
// All pattern variables start with a '?".
func IsVariable(s string) bool {
	return strings.HasPrefix(s, "?")
}

// IsAnonymousVariable detects a variable of the form '?'.  A binding
// for an anonymous variable shouldn't ever make it into bindings.
func IsAnonymousVariable(s string) bool {
	return s == "?"
}

// IsNegated reports if the string represents a negated value.
func IsNegated(s string) bool {
	return strings.HasPrefix(s, "!")
}

// IsConstant reports if the string represents a constant (and not a
// pattern variable or a negation).
func IsConstant(s string) bool {
	return !IsVariable(s) && !IsNegated(s)
}

// Negated returns what a negated value negates.
func Negated(s string) string {
	return strings.TrimPrefix(s, "!")
}

// Match attempts to match the given fact with the positive
// (non-negated) slots of the given pattern.  The given Bindings are
// not modified.
//
// Returns nil Bindings if the match fails.  An error is returned only
// for a malformed pattern.
func (m *Matcher) Match(pattern Pattern, fact Fact, bindings Bindings) (Bindings, error) {
	if bindings == nil {
		bindings = NewBindings()
	}
	return m.match(pattern, fact, bindings.Copy())
}

// match is a version of Match that can modify the given bindings.
func (m *Matcher) match(pattern Pattern, fact Fact, bs Bindings) (Bindings, error) {
	for _, s := range pattern {
		if IsNegated(s.Value) {
			if !m.Negation {
				return nil, &BadValue{s}
			}
			// Presence is still required.
			if _, have := fact.Value(s.Attr); !have {
				return nil, nil
			}
			continue
		}

		fv, have := fact.Value(s.Attr)
		if !have {
			return nil, nil
		}

		if IsConstant(s.Value) {
			if s.Value != fv {
				return nil, nil
			}
			continue
		}

		if IsAnonymousVariable(s.Value) {
			if !m.AnonymousVariables {
				return nil, &BadValue{s}
			}
			continue
		}

		if bound, have := bs[s.Value]; have {
			if bound != fv {
				return nil, nil
			}
			continue
		}

		bs[s.Value] = fv
	}

	return bs, nil
}

// Check verifies the negated slots of the given pattern against the
// fact.  Every negated variable must be bound in the given bindings.
//
// Returns false (and no error) if a negation is violated.
func (m *Matcher) Check(pattern Pattern, fact Fact, bs Bindings) (bool, error) {
	for _, s := range pattern {
		if !IsNegated(s.Value) {
			continue
		}
		if !m.Negation {
			return false, &BadValue{s}
		}
		fv, have := fact.Value(s.Attr)
		if !have {
			return false, nil
		}
		not := Negated(s.Value)
		if IsVariable(not) {
			if IsAnonymousVariable(not) {
				return false, &BadValue{s}
			}
			bound, have := bs[not]
			if !have {
				return false, &UnboundNegation{not}
			}
			not = bound
		}
		if fv == not {
			return false, nil
		}
	}
	return true, nil
}

// Unify is Match followed by Check.
func (m *Matcher) Unify(pattern Pattern, fact Fact, bindings Bindings) (Bindings, error) {
	bs, err := m.Match(pattern, fact, bindings)
	if err != nil || bs == nil {
		return nil, err
	}
	ok, err := m.Check(pattern, fact, bs)
	if err != nil || !ok {
		return nil, err
	}
	return bs, nil
}

// Substitute replaces every variable in the pattern with its binding.
//
// Negated slots are not allowed since the result should be ground.
func Substitute(pattern Pattern, bs Bindings) (Pattern, error) {
	acc := make(Pattern, 0, len(pattern))
	for _, s := range pattern {
		switch {
		case IsNegated(s.Value):
			return nil, &BadValue{s}
		case IsAnonymousVariable(s.Value):
			return nil, &UnboundVariable{s.Value}
		case IsVariable(s.Value):
			v, have := bs[s.Value]
			if !have {
				return nil, &UnboundVariable{s.Value}
			}
			s.Value = v
		}
		acc = append(acc, s)
	}
	return acc, nil
}

// Bind replaces the variables that have bindings, including negated
// ones, and leaves the others alone.  Never fails.
func Bind(pattern Pattern, bs Bindings) Pattern {
	acc := make(Pattern, 0, len(pattern))
	for _, s := range pattern {
		v := s.Value
		neg := IsNegated(v)
		if neg {
			v = Negated(v)
		}
		if IsVariable(v) {
			if bound, have := bs[v]; have {
				v = bound
			}
		}
		if neg {
			v = "!" + v
		}
		s.Value = v
		acc = append(acc, s)
	}
	return acc
}

// PositiveVars returns the (non-anonymous) variables in non-negated
// slots in order of first appearance.
func PositiveVars(pattern Pattern) []string {
	acc := make([]string, 0, len(pattern))
	for _, s := range pattern {
		if IsVariable(s.Value) && !IsAnonymousVariable(s.Value) {
			acc = appendNew(acc, s.Value)
		}
	}
	return acc
}

// NegatedVars returns the variables referenced by negated slots.
func NegatedVars(pattern Pattern) []string {
	acc := make([]string, 0, 2)
	for _, s := range pattern {
		if !IsNegated(s.Value) {
			continue
		}
		if v := Negated(s.Value); IsVariable(v) && !IsAnonymousVariable(v) {
			acc = appendNew(acc, v)
		}
	}
	return acc
}

// Vars returns all variables referenced by the pattern.
func Vars(pattern Pattern) []string {
	acc := PositiveVars(pattern)
	for _, v := range NegatedVars(pattern) {
		acc = appendNew(acc, v)
	}
	return acc
}

func appendNew(acc []string, v string) []string {
	for _, have := range acc {
		if have == v {
			return acc
		}
	}
	return append(acc, v)
}

// BadValue is an error that includes the slot that's causing the
// trouble.
type BadValue struct {
	Slot Slot
}

func (e *BadValue) Error() string {
	return `bad pattern value "` + e.Slot.Value + `" at "` + e.Slot.Attr + `"`
}

// UnboundVariable occurs when a substitution needs a variable that
// has no binding.
type UnboundVariable struct {
	Variable string
}

func (e *UnboundVariable) Error() string {
	return `unbound variable "` + e.Variable + `"`
}

// UnboundNegation occurs when a negated variable is checked before
// it's bound.
type UnboundNegation struct {
	Variable string
}

func (e *UnboundNegation) Error() string {
	return `negated variable "` + e.Variable + `" is not bound`
}

func Match(pattern Pattern, fact Fact, bindings Bindings) (Bindings, error) {
	return DefaultMatcher.Match(pattern, fact, bindings)
}

func Unify(pattern Pattern, fact Fact, bindings Bindings) (Bindings, error) {
	return DefaultMatcher.Unify(pattern, fact, bindings)
}
