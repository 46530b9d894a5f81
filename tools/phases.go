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

// Package tools has utilities for examining, rendering, and checking
// models.
package tools

import (
	"sort"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/match"
)

// Any is the pseudo-phase for productions that don't test a
// constant phase.
const Any = "*"

// Transition is an edge in a model's phase graph: a production that
// sets the phase buffer.
type Transition struct {
	Production string `json:"production"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// phaseOf returns the constant phase tag in the source, or Any.
func phaseOf(src string) string {
	p, err := core.ParsePattern(src)
	if err != nil {
		return Any
	}
	for _, s := range p {
		if s.Attr == core.PhaseAttr && match.IsConstant(s.Value) {
			return s.Value
		}
	}
	return Any
}

// PhaseBuffer finds the phase declaration for the buffer.  The empty
// buffer means the model's first phase buffer.  Returns nil if the
// model declares no such phases.
func PhaseBuffer(m *core.Model, buffer string) *core.Phases {
	if buffer == "" {
		for _, ph := range m.Phases {
			if ph != nil {
				return ph
			}
		}
		return nil
	}
	return m.PhasesFor(buffer)
}

// Transitions finds the edges of the buffer's phase graph in
// production order.  Works from the model's source, so the model
// needn't be compiled.
func Transitions(m *core.Model, buffer string) []*Transition {
	ph := PhaseBuffer(m, buffer)
	if ph == nil {
		return nil
	}
	var acc []*Transition
	for _, p := range m.Productions {
		if p == nil {
			continue
		}
		from := Any
		if src, have := p.When[ph.Buffer]; have && src != nil {
			from = phaseOf(*src)
		}
		for _, a := range p.Then {
			if a == nil || a.Set == nil || a.Set.Buffer != ph.Buffer {
				continue
			}
			acc = append(acc, &Transition{
				Production: p.Name,
				From:       from,
				To:         phaseOf(a.Set.Chunk),
			})
		}
	}
	return acc
}

// PhaseNodes returns the buffer's declared phases plus any others
// that transitions mention, in a stable order.
func PhaseNodes(m *core.Model, buffer string, ts []*Transition) []string {
	ph := PhaseBuffer(m, buffer)
	if ph == nil {
		return nil
	}
	seen := make(map[string]bool)
	var acc []string
	for _, tag := range ph.Tags {
		if !seen[tag] {
			seen[tag] = true
			acc = append(acc, tag)
		}
	}
	var extra []string
	for _, t := range ts {
		for _, tag := range []string{t.From, t.To} {
			if !seen[tag] {
				extra = append(extra, tag)
				seen[tag] = true
			}
		}
	}
	sort.Strings(extra)
	return append(acc, extra...)
}
