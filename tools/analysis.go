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

package tools

import (
	"sort"

	"github.com/NicValentine/LoFi-Cafe/core"
)

// ModelAnalysis has some observations about a model.
type ModelAnalysis struct {
	model *core.Model

	Productions int `json:"productions"`
	Conditions  int `json:"conditions"`
	Actions     int `json:"actions"`
	Requests    int `json:"requests"`
	Scripts     int `json:"scripts"`

	// Phases has one entry per declared phase buffer.
	Phases []*PhaseAnalysis `json:"phases,omitempty"`

	// UnusedMemories are never requested or added to.
	UnusedMemories []string `json:"unusedMemories,omitempty"`

	Interpreters []string `json:"interpreters,omitempty"`
}

// PhaseAnalysis describes one phase buffer's graph.
type PhaseAnalysis struct {
	Buffer string `json:"buffer"`

	Transitions []*Transition `json:"transitions,omitempty"`

	// TerminalPhases are declared phases with no transition out.
	TerminalPhases []string `json:"terminalPhases,omitempty"`

	// OrphanPhases are declared phases that nothing sets.
	OrphanPhases []string `json:"orphanPhases,omitempty"`

	// UnreachableProductions test an orphan phase.
	UnreachableProductions []string `json:"unreachableProductions,omitempty"`

	// DanglingTransitions are "production:tag" for transitions to
	// undeclared phases.
	DanglingTransitions []string `json:"danglingTransitions,omitempty"`
}

// Phase returns the analysis for the buffer or nil.
func (a *ModelAnalysis) Phase(buffer string) *PhaseAnalysis {
	for _, pa := range a.Phases {
		if pa.Buffer == buffer {
			return pa
		}
	}
	return nil
}

// Analyze looks at the model's source.  The model needn't be
// compiled.
func Analyze(m *core.Model) (*ModelAnalysis, error) {
	a := ModelAnalysis{
		model:       m,
		Productions: len(m.Productions),
	}

	usedMemories := make(map[string]bool)
	interpreters := make(map[string]bool)
	for _, p := range m.Productions {
		if p == nil {
			continue
		}
		a.Conditions += len(p.When)
		for _, src := range p.Then {
			if src == nil {
				continue
			}
			a.Actions++
			switch {
			case src.Request != nil:
				a.Requests++
				usedMemories[src.Request.Memory] = true
			case src.Add != nil:
				usedMemories[src.Add.Memory] = true
			case src.Script != nil:
				a.Scripts++
				name := src.Script.Interpreter
				if name == "" {
					name = core.DefaultInterpreter
				}
				interpreters[name] = true
			}
		}
	}

	for _, s := range m.Memories {
		if s != nil && !usedMemories[s.Name] {
			a.UnusedMemories = append(a.UnusedMemories, s.Name)
		}
	}
	a.Interpreters = keysToStringSlice(interpreters)

	for _, ph := range m.Phases {
		if ph != nil {
			a.Phases = append(a.Phases, analyzePhases(m, ph))
		}
	}

	return &a, nil
}

func analyzePhases(m *core.Model, ph *core.Phases) *PhaseAnalysis {
	a := &PhaseAnalysis{
		Buffer:      ph.Buffer,
		Transitions: Transitions(m, ph.Buffer),
	}

	out := make(map[string]bool)
	set := make(map[string]bool)
	for _, t := range a.Transitions {
		if t.From != t.To {
			out[t.From] = true
		}
		set[t.To] = true
		if t.To != Any && !ph.Has(t.To) {
			a.DanglingTransitions = append(a.DanglingTransitions, t.Production+":"+t.To)
		}
	}

	orphans := make(map[string]bool)
	for _, tag := range ph.Tags {
		if !out[tag] {
			a.TerminalPhases = append(a.TerminalPhases, tag)
		}
		// A variable can set any phase.
		if !set[tag] && !set[Any] {
			a.OrphanPhases = append(a.OrphanPhases, tag)
			orphans[tag] = true
		}
	}

	for _, p := range m.Productions {
		if p == nil {
			continue
		}
		if src, have := p.When[ph.Buffer]; have && src != nil {
			if orphans[phaseOf(*src)] {
				a.UnreachableProductions = append(a.UnreachableProductions, p.Name)
			}
		}
	}

	return a
}

// keysToStringSlice converts the keys from a map into a sorted slice
// of strings.
func keysToStringSlice(m map[string]bool) []string {
	var list []string
	for key := range m {
		list = append(list, key)
	}
	sort.Strings(list)
	return list
}
