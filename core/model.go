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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NicValentine/LoFi-Cafe/match"
	"github.com/jsccast/yaml"
)

// DefaultTick is the simulated duration of one tick when a Model
// doesn't specify one.
var DefaultTick = 50 * time.Millisecond

// Model is a production system: buffers, seeded memories, and an
// ordered list of productions.
//
// A Model has no runtime state.  Build a Scheduler to run one.  A
// Model must be Compiled before use, and a compiled Model can be
// shared by any number of Schedulers.
type Model struct {
	// Name is the generic name for this model.  Something like
	// "lofi-cafe".
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Version is the version of this model.  Something like
	// "1.2".
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Doc is general documentation about how this model works.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Buffers names the model's buffers.
	Buffers []string `json:"buffers" yaml:"buffers"`

	// Memories gives the memory stores along with their seed
	// chunks.
	Memories []*MemorySpec `json:"memories,omitempty" yaml:"memories,omitempty"`

	// Phases optionally declares phase buffers, each with the
	// closed set of tags that it can hold.
	Phases []*Phases `json:"phases,omitempty" yaml:"phases,omitempty"`

	// Attributes, if given, is the closed set of attribute names
	// that seed chunks and patterns can use.  Positional
	// attributes ("_0", ...) are always allowed.
	Attributes []string `json:"attributes,omitempty" yaml:"attributes,omitempty"`

	// Params is an optional map from a parameter name to a
	// specification for that parameter.
	//
	// A parameter is really just an initial binding for the
	// boot production.
	Params map[string]*ParamSpec `json:"params,omitempty" yaml:"params,omitempty"`

	// Boot is the optional name of the production that fires once
	// at time zero before regular scheduling starts.
	Boot string `json:"boot,omitempty" yaml:"boot,omitempty"`

	// Tick is the simulated duration of one tick (like "50ms").
	Tick string `json:"tick,omitempty" yaml:"tick,omitempty"`

	// Productions in declaration order, which is priority
	// order.
	Productions []*Production `json:"productions" yaml:"productions"`

	compiled bool
	attrs    map[string]bool
	tick     time.Duration
	boot     *Production
	rules    []*Production
	named    map[string]*Production
}

// MemorySpec declares a memory store.
type MemorySpec struct {
	Name string `json:"name" yaml:"name"`

	// Buffer receives this memory's retrievals.
	Buffer string `json:"buffer" yaml:"buffer"`

	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Chunks are the seed chunks in insertion order.
	Chunks []string `json:"chunks,omitempty" yaml:"chunks,omitempty"`

	seeds []*Chunk
}

// Seeds returns the parsed seed chunks.
func (s *MemorySpec) Seeds() []*Chunk {
	acc := make([]*Chunk, len(s.seeds))
	copy(acc, s.seeds)
	return acc
}

// Phases is a closed set of tags for one buffer.
type Phases struct {
	Buffer string   `json:"buffer" yaml:"buffer"`
	Tags   []string `json:"tags" yaml:"tags"`
}

// PhaseAttr is the attribute of a phase buffer's chunk that holds
// the tag.
var PhaseAttr = PositionalPrefix + "0"

// PhasesFor returns the phase declaration for the buffer or nil.
func (m *Model) PhasesFor(buffer string) *Phases {
	for _, p := range m.Phases {
		if p != nil && p.Buffer == buffer {
			return p
		}
	}
	return nil
}

func (p *Phases) Has(tag string) bool {
	if p == nil {
		return true
	}
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LoadModel parses a Model in YAML or JSON.  The Model is not
// compiled.
func LoadModel(src []byte) (*Model, error) {
	var m Model
	src = bytes.TrimSpace(src)
	if bytes.HasPrefix(src, []byte("{")) {
		if err := json.Unmarshal(src, &m); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(src, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Compiled reports whether Compile has succeeded.
func (m *Model) Compiled() bool {
	return m.compiled
}

// TickDuration returns the simulated duration of one tick.
func (m *Model) TickDuration() time.Duration {
	if m.tick == 0 {
		return DefaultTick
	}
	return m.tick
}

// BootProduction returns the boot production, if any.
func (m *Model) BootProduction() *Production {
	return m.boot
}

// Rules returns the productions, excluding the boot production, in
// priority order.
func (m *Model) Rules() []*Production {
	acc := make([]*Production, len(m.rules))
	copy(acc, m.rules)
	return acc
}

// Production returns the named production or nil.
func (m *Model) Production(name string) *Production {
	return m.named[name]
}

// Memory returns the spec for the named memory or nil.
func (m *Model) Memory(name string) *MemorySpec {
	for _, s := range m.Memories {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (m *Model) hasBuffer(name string) bool {
	for _, b := range m.Buffers {
		if b == name {
			return true
		}
	}
	return false
}

// Compile parses every chunk and pattern, compiles all actions, and
// checks the Model for configuration errors.
//
// Any error means the Model is unusable.  If force is false and the
// Model has already been compiled, does nothing.
func (m *Model) Compile(ctx context.Context, interpreters InterpretersMap, force bool) error {
	if m.compiled && !force {
		return nil
	}
	m.compiled = false

	m.tick = DefaultTick
	if m.Tick != "" {
		d, err := time.ParseDuration(m.Tick)
		if err != nil {
			return fmt.Errorf("bad tick %q: %w", m.Tick, err)
		}
		if d <= 0 {
			return fmt.Errorf("bad tick %q: not positive", m.Tick)
		}
		m.tick = d
	}

	if len(m.Buffers) == 0 {
		return errors.New("no buffers")
	}
	seen := make(map[string]bool, len(m.Buffers))
	for _, b := range m.Buffers {
		if b == "" {
			return errors.New("empty buffer name")
		}
		if seen[b] {
			return fmt.Errorf("duplicate buffer %q", b)
		}
		seen[b] = true
	}

	m.attrs = nil
	if len(m.Attributes) != 0 {
		m.attrs = make(map[string]bool, len(m.Attributes))
		for _, a := range m.Attributes {
			if problem := badAttr(a); problem != "" {
				return &BadChunk{Source: a, Problem: problem}
			}
			m.attrs[a] = true
		}
	}

	memories := make(map[string]bool, len(m.Memories))
	for _, s := range m.Memories {
		if s == nil || s.Name == "" {
			return errors.New("memory without a name")
		}
		if memories[s.Name] {
			return fmt.Errorf("duplicate memory %q", s.Name)
		}
		memories[s.Name] = true
		if !m.hasBuffer(s.Buffer) {
			return &UnknownBuffer{Buffer: s.Buffer}
		}
		s.seeds = make([]*Chunk, 0, len(s.Chunks))
		for _, src := range s.Chunks {
			c, err := ParseChunk(src)
			if err != nil {
				return err
			}
			if err := m.checkAttrs("", c.slots); err != nil {
				err.Memory = s.Name
				return err
			}
			s.seeds = append(s.seeds, c)
		}
	}

	phased := make(map[string]bool, len(m.Phases))
	for _, ph := range m.Phases {
		if ph == nil {
			return errors.New("empty phases")
		}
		if !m.hasBuffer(ph.Buffer) {
			return &UnknownBuffer{Buffer: ph.Buffer}
		}
		if phased[ph.Buffer] {
			return fmt.Errorf("duplicate phases for buffer %q", ph.Buffer)
		}
		phased[ph.Buffer] = true
		if len(ph.Tags) == 0 {
			return fmt.Errorf("no phase tags for buffer %q", ph.Buffer)
		}
	}

	for name, p := range m.Params {
		if p == nil || p.Default == "" {
			continue
		}
		if err := p.ValueCompliesWith(name, p.Default); err != nil {
			return err
		}
	}

	m.named = make(map[string]*Production, len(m.Productions))
	m.rules = make([]*Production, 0, len(m.Productions))
	m.boot = nil

	for _, p := range m.Productions {
		if p == nil || p.Name == "" {
			return errors.New("production without a name")
		}
		if _, have := m.named[p.Name]; have {
			return &DuplicateProduction{Name: p.Name}
		}
		m.named[p.Name] = p

		if err := p.compile(ctx, interpreters); err != nil {
			return err
		}
		if err := m.check(p); err != nil {
			return err
		}

		if p.Name == m.Boot {
			m.boot = p
		} else {
			m.rules = append(m.rules, p)
		}
	}

	if m.Boot != "" {
		if m.boot == nil {
			return &BadBoot{Boot: m.Boot, Problem: "no such production"}
		}
		if len(m.boot.Conditions) != 0 {
			return &BadBoot{Boot: m.Boot, Problem: "has conditions"}
		}
	}

	m.compiled = true

	return nil
}

// check verifies buffer and memory references, phase tags, and
// variable use for a compiled production.
func (m *Model) check(p *Production) error {
	for _, c := range p.Conditions {
		if !m.hasBuffer(c.Buffer) {
			return &UnknownBuffer{Production: p.Name, Buffer: c.Buffer}
		}
		if err := m.checkPhase(p, c.Buffer, c.Pattern); err != nil {
			return err
		}
		if err := m.checkAttrs(p.Name, c.Pattern); err != nil {
			return err
		}
	}

	bound := p.BoundVars()
	if p.Name == m.Boot {
		for name := range m.Params {
			bound = appendNew(bound, ParamVar(name))
		}
	}
	isBound := func(v string) bool {
		for _, b := range bound {
			if b == v {
				return true
			}
		}
		return false
	}

	for _, c := range p.Conditions {
		for _, v := range match.NegatedVars(c.Pattern) {
			if !isBound(v) {
				return &UnboundConditionVariable{Production: p.Name, Variable: v}
			}
		}
	}

	for i, a := range p.Actions {
		var buffers []string
		switch vv := a.(type) {
		case *SetAction:
			buffers = []string{vv.Buffer}
			if err := m.checkPhase(p, vv.Buffer, vv.Pattern); err != nil {
				return err
			}
			if err := m.checkAttrs(p.Name, vv.Pattern); err != nil {
				return err
			}
		case *CopyAction:
			buffers = []string{vv.Buffer, vv.From}
		case *ClearAction:
			buffers = []string{vv.Buffer}
		case *ShowAction:
			buffers = []string{vv.Buffer}
		case *RequestAction:
			if m.Memory(vv.Memory) == nil {
				return &UnknownMemory{Production: p.Name, Memory: vv.Memory}
			}
			if err := m.checkAttrs(p.Name, vv.Pattern); err != nil {
				return err
			}
		case *AddAction:
			if m.Memory(vv.Memory) == nil {
				return &UnknownMemory{Production: p.Name, Memory: vv.Memory}
			}
			if err := m.checkAttrs(p.Name, vv.Pattern); err != nil {
				return err
			}
		}
		for _, b := range buffers {
			if !m.hasBuffer(b) {
				return &UnknownBuffer{Production: p.Name, Buffer: b}
			}
		}
		for _, v := range a.Vars() {
			if !isBound(v) {
				return &UnboundActionVariable{Production: p.Name, Action: i, Variable: v}
			}
		}
	}

	return nil
}

// checkPhase verifies that constant phase tags in a pattern for the
// buffer are declared.
func (m *Model) checkPhase(p *Production, buffer string, pat match.Pattern) error {
	ph := m.PhasesFor(buffer)
	if ph == nil {
		return nil
	}
	for _, s := range pat {
		if s.Attr != PhaseAttr {
			continue
		}
		tag := s.Value
		if match.IsNegated(tag) {
			tag = match.Negated(tag)
		}
		if match.IsVariable(tag) {
			continue
		}
		if !ph.Has(tag) {
			return &UndeclaredPhase{Production: p.Name, Buffer: buffer, Phase: tag}
		}
	}
	return nil
}

// checkAttrs verifies that the slots use declared attributes.
func (m *Model) checkAttrs(production string, slots []match.Slot) *UndeclaredAttribute {
	if m.attrs == nil {
		return nil
	}
	for _, s := range slots {
		if strings.HasPrefix(s.Attr, PositionalPrefix) {
			if _, err := strconv.Atoi(s.Attr[len(PositionalPrefix):]); err == nil {
				continue
			}
		}
		if !m.attrs[s.Attr] {
			return &UndeclaredAttribute{Production: production, Attr: s.Attr}
		}
	}
	return nil
}
