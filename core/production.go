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

package core

import (
	"context"
	"sort"

	"github.com/NicValentine/LoFi-Cafe/match"
)

// Production is a rule: conditions on buffers and the actions to take
// when they all hold.
//
// When maps a buffer name to a pattern.  A null pattern requires the
// buffer to be empty.  Buffers that aren't mentioned are not tested.
type Production struct {
	Name string `json:"name" yaml:"name"`

	// Doc is optional documentation in Markdown.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	When map[string]*string `json:"when,omitempty" yaml:"when,omitempty"`
	Then []*ActionSource    `json:"then,omitempty" yaml:"then,omitempty"`

	// Conditions is When after compilation, ordered by buffer
	// name.
	Conditions []*Condition `json:"-" yaml:"-"`

	// Actions is Then after compilation.
	Actions []Action `json:"-" yaml:"-"`
}

// Condition is a compiled test on one buffer.
type Condition struct {
	Buffer  string
	Pattern match.Pattern

	// Empty means the buffer must be empty.
	Empty bool
}

func (c *Condition) String() string {
	if c.Empty {
		return c.Buffer + "=<empty>"
	}
	return c.Buffer + "=" + RenderPattern(c.Pattern)
}

// compile parses the conditions and compiles the actions.  Names of
// buffers and memories are checked by Model.Compile.
func (p *Production) compile(ctx context.Context, interpreters InterpretersMap) error {
	buffers := make([]string, 0, len(p.When))
	for buffer := range p.When {
		buffers = append(buffers, buffer)
	}
	sort.Strings(buffers)

	p.Conditions = make([]*Condition, 0, len(buffers))
	for _, buffer := range buffers {
		src := p.When[buffer]
		if src == nil {
			p.Conditions = append(p.Conditions, &Condition{
				Buffer: buffer,
				Empty:  true,
			})
			continue
		}
		pat, err := ParsePattern(*src)
		if err != nil {
			return err
		}
		if len(pat) == 0 {
			return &BadChunk{
				Source:  *src,
				Problem: "empty pattern (use null to require an empty buffer)",
			}
		}
		p.Conditions = append(p.Conditions, &Condition{
			Buffer:  buffer,
			Pattern: pat,
		})
	}

	p.Actions = make([]Action, 0, len(p.Then))
	for i, src := range p.Then {
		if src == nil {
			return &BadAction{Production: p.Name, Action: i, Problem: "missing"}
		}
		a, err := src.Compile(ctx, interpreters)
		if err != nil {
			return &BadAction{Production: p.Name, Action: i, Problem: err.Error()}
		}
		p.Actions = append(p.Actions, a)
	}

	return nil
}

// BoundVars returns the variables that the conditions bind.
func (p *Production) BoundVars() []string {
	var acc []string
	for _, c := range p.Conditions {
		for _, v := range match.PositiveVars(c.Pattern) {
			acc = appendNew(acc, v)
		}
	}
	return acc
}

func appendNew(acc []string, s string) []string {
	for _, have := range acc {
		if have == s {
			return acc
		}
	}
	return append(acc, s)
}

// Matches determines whether this production is a candidate given the
// current buffers.
//
// The positive terms of every condition are unified first so that
// negated terms can refer to variables bound by any condition.
// Returns nil Bindings if the production isn't a candidate.
func (p *Production) Matches(m *match.Matcher, buffers *Buffers, bs Bindings) (Bindings, error) {
	if bs == nil {
		bs = NewBindings()
	}
	for _, c := range p.Conditions {
		b := buffers.Get(c.Buffer)
		if c.Empty {
			if !b.Empty() {
				return nil, nil
			}
			continue
		}
		if b.Empty() {
			return nil, nil
		}
		got, err := m.Match(c.Pattern, b.Chunk(), bs)
		if err != nil {
			return nil, err
		}
		if got == nil {
			return nil, nil
		}
		bs = got
	}

	for _, c := range p.Conditions {
		if c.Empty {
			continue
		}
		ok, err := m.Check(c.Pattern, buffers.Get(c.Buffer).Chunk(), bs)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}

	return bs, nil
}
