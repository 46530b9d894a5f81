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
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/NicValentine/LoFi-Cafe/match"
)

var (
	// DefaultInterpreters will be used in Model.Compile if given
	// nil interpreters.
	DefaultInterpreters = NewInterpretersMap()

	// DefaultInterpreter is the interpreter name used by a script
	// action that doesn't name one.
	DefaultInterpreter = "goja"
)

// Execution is what an Interpreter returns: possibly updated
// Bindings along with emitted messages and traces.
type Execution struct {
	Bs Bindings
	*Events
}

func NewExecution(bs Bindings) *Execution {
	return &Execution{
		Bs:     bs,
		Events: newEvents(),
	}
}

// Interpreter can optionally compile and execute code for script
// actions.
type Interpreter interface {
	// Compile can make something that helps when Exec()ing the
	// code later.
	Compile(ctx context.Context, code interface{}) (interface{}, error)

	// Exec executes the code.  The result of previous Compile()
	// might be provided.
	Exec(ctx context.Context, bs Bindings, props StepProps, code interface{}, compiled interface{}) (*Execution, error)
}

// InterpretersMap maps interpreter names to Interpreters.
type InterpretersMap map[string]Interpreter

func NewInterpretersMap() InterpretersMap {
	return make(InterpretersMap)
}

// Firing is the environment for the actions of one production
// firing.
//
// Buffer assignments take effect immediately.  Memory requests are
// only queued; the Scheduler resolves them during the settle phase.
type Firing struct {
	Tick       int
	Time       time.Duration
	Production string
	Bs         Bindings
	Props      StepProps

	buffers  *Buffers
	memories map[string]*Memory
	requests []*Request
	events   *Events
	emit     func(ctx context.Context, l *Line) error
}

// Say emits an observable line.
func (f *Firing) Say(ctx context.Context, kind, text string) error {
	l := &Line{
		Tick:       f.Tick,
		Time:       f.Time,
		Production: f.Production,
		Kind:       kind,
		Text:       text,
	}
	f.events.AddEmitted(l)
	if f.emit != nil {
		return f.emit(ctx, l)
	}
	return nil
}

// Action is one step of a production's right-hand side.
type Action interface {
	// Exec executes this action.
	Exec(context.Context, *Firing) error

	// Vars returns the variables that the action needs to have
	// bound.
	Vars() []string
}

// SetAction assigns a chunk (after substitution) to a buffer.
type SetAction struct {
	Buffer  string
	Pattern match.Pattern
}

func (a *SetAction) Exec(ctx context.Context, f *Firing) error {
	p, err := match.Substitute(a.Pattern, f.Bs)
	if err != nil {
		return err
	}
	c, err := NewChunk(p...)
	if err != nil {
		return err
	}
	f.buffers.Get(a.Buffer).Set(c)
	return nil
}

func (a *SetAction) Vars() []string {
	return match.Vars(a.Pattern)
}

// CopyAction copies one buffer's chunk to another buffer.
type CopyAction struct {
	Buffer string
	From   string
}

func (a *CopyAction) Exec(ctx context.Context, f *Firing) error {
	f.buffers.Get(a.Buffer).Set(f.buffers.Get(a.From).Chunk())
	return nil
}

func (a *CopyAction) Vars() []string {
	return nil
}

// ClearAction empties a buffer.
type ClearAction struct {
	Buffer string
}

func (a *ClearAction) Exec(ctx context.Context, f *Firing) error {
	f.buffers.Get(a.Buffer).Clear()
	return nil
}

func (a *ClearAction) Vars() []string {
	return nil
}

// RequestAction queues a retrieval from a memory.  Variables that
// the firing has bound are substituted; the others are left for the
// retrieval to bind.
type RequestAction struct {
	Memory  string
	Pattern match.Pattern
}

func (a *RequestAction) Exec(ctx context.Context, f *Firing) error {
	m := f.memories[a.Memory]
	f.requests = append(f.requests, &Request{
		Memory:  a.Memory,
		Buffer:  m.Buffer,
		Pattern: match.Bind(a.Pattern, f.Bs),
		Tick:    f.Tick,
	})
	return nil
}

// Vars returns only the negated variables since the positive ones
// are free for the retrieval to bind.
func (a *RequestAction) Vars() []string {
	return match.NegatedVars(a.Pattern)
}

// AddAction appends a chunk (after substitution) to a memory.
type AddAction struct {
	Memory  string
	Pattern match.Pattern
}

func (a *AddAction) Exec(ctx context.Context, f *Firing) error {
	p, err := match.Substitute(a.Pattern, f.Bs)
	if err != nil {
		return err
	}
	c, err := NewChunk(p...)
	if err != nil {
		return err
	}
	f.memories[a.Memory].Add(c)
	return nil
}

func (a *AddAction) Vars() []string {
	return match.Vars(a.Pattern)
}

// variableToken finds variable references in text.  It uses the
// variable syntax that parseSlots enforces.
var variableToken = regexp.MustCompile(`\?[A-Za-z_][A-Za-z0-9_]*`)

// textVars returns the variables mentioned in the text.
func textVars(s string) []string {
	var acc []string
	for _, v := range variableToken.FindAllString(s, -1) {
		seen := false
		for _, have := range acc {
			if have == v {
				seen = true
				break
			}
		}
		if !seen {
			acc = append(acc, v)
		}
	}
	return acc
}

// SayAction emits a line of text after substituting variables.
type SayAction struct {
	Text string
}

func (a *SayAction) Exec(ctx context.Context, f *Firing) error {
	text := variableToken.ReplaceAllStringFunc(a.Text, func(v string) string {
		if bound, have := f.Bs[v]; have {
			return bound
		}
		return v
	})
	return f.Say(ctx, "say", text)
}

func (a *SayAction) Vars() []string {
	return textVars(a.Text)
}

// ShowAction emits the current content of a buffer.
type ShowAction struct {
	Buffer string
}

func (a *ShowAction) Exec(ctx context.Context, f *Firing) error {
	text := "<empty>"
	if c := f.buffers.Get(a.Buffer).Chunk(); c != nil {
		text = c.String()
	}
	return f.Say(ctx, "show", text)
}

func (a *ShowAction) Vars() []string {
	return nil
}

// ScriptAction runs interpreted code.  Every message the code emits
// becomes a line.
//
// The interpreter gets the firing's tick, its simulated time in
// milliseconds, and the production's name as the props "tick", "t",
// and "production".  Bindings that the code returns are ignored.
type ScriptAction struct {
	Interpreter Interpreter
	Source      interface{}
	compiled    interface{}
	vars        []string
}

func (a *ScriptAction) Exec(ctx context.Context, f *Firing) error {
	props := f.Props.Copy()
	props["tick"] = f.Tick
	props["t"] = f.Time.Milliseconds()
	props["production"] = f.Production

	exe, err := a.Interpreter.Exec(ctx, f.Bs.Copy(), props, a.Source, a.compiled)
	if err != nil {
		return err
	}
	if exe == nil {
		return nil
	}
	for _, x := range exe.Emitted {
		var text string
		switch vv := x.(type) {
		case string:
			text = vv
		default:
			js, err := json.Marshal(&vv)
			if err != nil {
				return err
			}
			text = string(js)
		}
		if err := f.Say(ctx, "script", text); err != nil {
			return err
		}
	}
	if exe.Traces != nil {
		f.events.Traces.Add(exe.Traces.Messages...)
	}
	return nil
}

func (a *ScriptAction) Vars() []string {
	return a.vars
}

// ActionSource is the declarative form of an Action.  Exactly one
// field should be given.
type ActionSource struct {
	Set     *SetSource    `json:"set,omitempty" yaml:"set,omitempty"`
	Copy    *CopySource   `json:"copy,omitempty" yaml:"copy,omitempty"`
	Clear   string        `json:"clear,omitempty" yaml:"clear,omitempty"`
	Request *MemorySource `json:"request,omitempty" yaml:"request,omitempty"`
	Add     *MemorySource `json:"add,omitempty" yaml:"add,omitempty"`
	Say     string        `json:"say,omitempty" yaml:"say,omitempty"`
	Show    string        `json:"show,omitempty" yaml:"show,omitempty"`
	Script  *ScriptSource `json:"script,omitempty" yaml:"script,omitempty"`
}

// SetSource is the source of a SetAction.
type SetSource struct {
	Buffer string `json:"buffer" yaml:"buffer"`
	Chunk  string `json:"chunk" yaml:"chunk"`
}

// CopySource is the source of a CopyAction.
type CopySource struct {
	Buffer string `json:"buffer" yaml:"buffer"`
	From   string `json:"from" yaml:"from"`
}

// MemorySource is the source of a RequestAction (with a pattern) or
// an AddAction (with a chunk that might have variables).
type MemorySource struct {
	Memory  string `json:"memory" yaml:"memory"`
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Chunk   string `json:"chunk,omitempty" yaml:"chunk,omitempty"`
}

// ScriptSource is the source of a ScriptAction.
type ScriptSource struct {
	Interpreter string      `json:"interpreter,omitempty" yaml:"interpreter,omitempty"`
	Source      interface{} `json:"source" yaml:"source"`
}

// kinds lists the action kinds that are given.
func (a *ActionSource) kinds() []string {
	var acc []string
	if a.Set != nil {
		acc = append(acc, "set")
	}
	if a.Copy != nil {
		acc = append(acc, "copy")
	}
	if a.Clear != "" {
		acc = append(acc, "clear")
	}
	if a.Request != nil {
		acc = append(acc, "request")
	}
	if a.Add != nil {
		acc = append(acc, "add")
	}
	if a.Say != "" {
		acc = append(acc, "say")
	}
	if a.Show != "" {
		acc = append(acc, "show")
	}
	if a.Script != nil {
		acc = append(acc, "script")
	}
	return acc
}

// Compile turns the source into an Action.  Buffer and memory names
// are checked by Model.Compile.
func (a *ActionSource) Compile(ctx context.Context, interpreters InterpretersMap) (Action, error) {
	kinds := a.kinds()
	if len(kinds) != 1 {
		return nil, fmt.Errorf("need exactly one action kind but have %d (%s)", len(kinds), strings.Join(kinds, ","))
	}

	switch kinds[0] {
	case "set":
		p, err := groundable(a.Set.Chunk)
		if err != nil {
			return nil, err
		}
		return &SetAction{Buffer: a.Set.Buffer, Pattern: p}, nil
	case "copy":
		return &CopyAction{Buffer: a.Copy.Buffer, From: a.Copy.From}, nil
	case "clear":
		return &ClearAction{Buffer: a.Clear}, nil
	case "request":
		p, err := ParsePattern(a.Request.Pattern)
		if err != nil {
			return nil, err
		}
		if len(p) == 0 {
			return nil, fmt.Errorf("empty request pattern")
		}
		return &RequestAction{Memory: a.Request.Memory, Pattern: p}, nil
	case "add":
		p, err := groundable(a.Add.Chunk)
		if err != nil {
			return nil, err
		}
		return &AddAction{Memory: a.Add.Memory, Pattern: p}, nil
	case "say":
		return &SayAction{Text: a.Say}, nil
	case "show":
		return &ShowAction{Buffer: a.Show}, nil
	case "script":
		if interpreters == nil {
			interpreters = DefaultInterpreters
		}
		name := a.Script.Interpreter
		if name == "" {
			name = DefaultInterpreter
		}
		interpreter, have := interpreters[name]
		if !have {
			return nil, InterpreterNotFound
		}
		compiled, err := interpreter.Compile(ctx, a.Script.Source)
		if err != nil {
			return nil, err
		}
		var vars []string
		if s, is := a.Script.Source.(string); is {
			vars = textVars(s)
		} else {
			js, _ := json.Marshal(a.Script.Source)
			vars = textVars(string(js))
		}
		return &ScriptAction{
			Interpreter: interpreter,
			Source:      a.Script.Source,
			compiled:    compiled,
			vars:        vars,
		}, nil
	}

	return nil, fmt.Errorf("unknown action kind %s", kinds[0])
}

// groundable parses a pattern that must become a chunk after
// substitution.
func groundable(s string) (match.Pattern, error) {
	p, err := ParsePattern(s)
	if err != nil {
		return nil, err
	}
	if len(p) == 0 {
		return nil, &BadChunk{Source: s, Problem: "empty"}
	}
	for _, slot := range p {
		if match.IsNegated(slot.Value) || match.IsAnonymousVariable(slot.Value) {
			return nil, &BadChunk{Source: s, Problem: "can't assign " + slot.Value}
		}
	}
	return p, nil
}
