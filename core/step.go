package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/NicValentine/LoFi-Cafe/match"
)

var (
	// TracesInitialCap is the initial capacity for Traces buffers.
	TracesInitialCap = 16

	// EmittedMessagesInitialCap is the initial capacity for
	// slices of emitted messages.
	EmittedMessagesInitialCap = 16

	// DefaultControl will be used by Scheduler.Walk if the given
	// control is nil.
	DefaultControl = &Control{
		Limit: 1000,
	}
)

// StepProps are passed through to script interpreters.
type StepProps map[string]interface{}

func (ps StepProps) Copy() StepProps {
	acc := make(StepProps, len(ps))
	for p, v := range ps {
		acc[p] = v
	}
	return acc
}

// StopReason represents the possible reasons for a Walk to terminate.
type StopReason int

const (
	Done              StopReason = iota // No production matched.
	Limited                             // Too many steps.
	InternalError                       // What else to do?
	BreakpointReached                   // During a Walk.
)

var stopReasons = []string{"Done", "Limited", "InternalError", "BreakpointReached"}

func (r StopReason) String() string {
	if r < 0 || int(r) >= len(stopReasons) {
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
	return stopReasons[r]
}

func (r StopReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *StopReason) UnmarshalText(bs []byte) error {
	for i, s := range stopReasons {
		if s == string(bs) {
			*r = StopReason(i)
			return nil
		}
	}
	return errors.New("unknown stop reason " + string(bs))
}

// Line is one piece of observable output.
type Line struct {
	Tick int `json:"tick"`

	// Time is the simulated time of the tick.
	Time time.Duration `json:"t"`

	Production string `json:"production,omitempty"`

	// Kind is "say", "show", "script", "fail", or "fire".
	Kind string `json:"kind"`

	Text string `json:"text"`
}

func (l *Line) String() string {
	return l.Text
}

// Sink receives observable output as it happens.
type Sink interface {
	Emit(ctx context.Context, l *Line) error
}

// State is a snapshot of a Scheduler's buffers.
type State struct {
	Tick    int               `json:"tick"`
	Buffers map[string]*Chunk `json:"buffers"`
}

func (s *State) String() string {
	if s == nil {
		return "nil"
	}
	names := make([]string, 0, len(s.Buffers))
	for name := range s.Buffers {
		names = append(names, name)
	}
	sort.Strings(names)
	acc := make([]string, 0, len(names))
	for _, name := range names {
		c := s.Buffers[name]
		if c == nil {
			acc = append(acc, name+"=<empty>")
			continue
		}
		acc = append(acc, name+"="+c.String())
	}
	return fmt.Sprintf("%d/{%s}", s.Tick, strings.Join(acc, ", "))
}

// Copy makes a copy of the State.  Chunks are immutable and are
// shared.
func (s *State) Copy() *State {
	bs := make(map[string]*Chunk, len(s.Buffers))
	for name, c := range s.Buffers {
		bs[name] = c
	}
	return &State{
		Tick:    s.Tick,
		Buffers: bs,
	}
}

// Breakpoint is a *State predicate.
//
// When a Breakpoint returns true for a *State, then processing should
// stop at that point.
type Breakpoint func(context.Context, *State) bool

// Control influences how Walk() operates.
type Control struct {
	// Limit is the maximum number of Steps that a Walk() can take.
	Limit       int
	Breakpoints map[string]Breakpoint
}

func (c *Control) Copy() *Control {
	bs := make(map[string]Breakpoint, len(c.Breakpoints))
	for id, b := range c.Breakpoints {
		bs[id] = b
	}
	return &Control{
		Limit:       c.Limit,
		Breakpoints: bs,
	}
}

// Traces holds trace messages.
type Traces struct {
	Messages []interface{} `json:"messages,omitempty" yaml:",omitempty"`
}

// NewTraces creates an initialized Traces.
//
// The Messages array has TracesInitialCap initial capacity.
func NewTraces() *Traces {
	return &Traces{
		Messages: make([]interface{}, 0, TracesInitialCap),
	}
}

func (ts *Traces) Add(xs ...interface{}) {
	ts.Messages = append(ts.Messages, xs...)
}

// Events contains emitted messages and Traces.
type Events struct {
	Emitted []interface{} `json:"emitted,omitempty" yaml:",omitempty"`
	Traces  *Traces       `json:"traces,omitempty" yaml:",omitempty"`
}

func newEvents() *Events {
	return &Events{
		Emitted: make([]interface{}, 0, EmittedMessagesInitialCap),
		Traces:  NewTraces(),
	}
}

// AddEmitted adds the given thing to the list of emitted messages.
func (es *Events) AddEmitted(x interface{}) {
	es.Emitted = append(es.Emitted, x)
}

// AddTrace adds the given thing to the list of traces.
func (es *Events) AddTrace(x interface{}) {
	es.Traces.Add(x)
}

// Lines returns the emitted Lines.
func (es *Events) Lines() []*Line {
	acc := make([]*Line, 0, len(es.Emitted))
	for _, x := range es.Emitted {
		if l, is := x.(*Line); is {
			acc = append(acc, l)
		}
	}
	return acc
}

// Stride represents one tick that a Scheduler has taken.
type Stride struct {
	// Events gather what was emitted during the tick.
	*Events `json:"events,omitempty" yaml:",omitempty"`

	Tick int           `json:"tick"`
	Time time.Duration `json:"t"`

	// Fired is the name of the production that fired.  Empty if
	// none did.
	Fired string `json:"fired,omitempty"`

	// Bs are the bindings of the firing.
	Bs Bindings `json:"bs,omitempty"`

	// Requests are the memory requests issued during the tick.
	Requests []*Request `json:"requests,omitempty"`

	// Retrievals are the resolved requests.
	Retrievals []*Retrieval `json:"retrievals,omitempty"`

	// Halted reports that no production matched.
	Halted bool `json:"halted,omitempty"`

	// Errors are the runtime problems during the tick: an action
	// that failed, an undeclared phase, a sink that couldn't
	// emit.  None of them stops the Scheduler.
	Errors []string `json:"errors,omitempty" yaml:",omitempty"`

	// From is the state before the tick.
	From *State `json:"from,omitempty" yaml:",omitempty"`

	// To is the state after the tick.
	To *State `json:"to,omitempty" yaml:",omitempty"`
}

func NewStride() *Stride {
	return &Stride{
		Events: newEvents(),
	}
}

// Failures returns the retrievals that failed.
func (s *Stride) Failures() []*Retrieval {
	var acc []*Retrieval
	for _, r := range s.Retrievals {
		if r.Failed {
			acc = append(acc, r)
		}
	}
	return acc
}

// Scheduler runs a compiled Model.
//
// A Scheduler owns its buffers and memories, so any number of
// Schedulers can share a Model.  A Scheduler is not safe for
// concurrent use.
type Scheduler struct {
	Model   *Model
	Matcher *match.Matcher

	// Sink, if not nil, receives every Line as it's emitted.
	Sink Sink

	// Props are given to script interpreters.
	Props StepProps

	// Params are the resolved parameter bindings for the boot
	// production.
	Params Bindings

	// Announce makes every firing emit a "fire" Line.
	Announce bool

	buffers  *Buffers
	memories map[string]*Memory
	tick     int
	booted   bool
	halted   bool
}

// NewScheduler makes a Scheduler with fresh buffers and with memories
// seeded from the Model.
//
// The given params are checked against the Model's ParamSpecs.
func NewScheduler(m *Model, params map[string]string) (*Scheduler, error) {
	if !m.Compiled() {
		return nil, &ModelNotCompiled{Model: m}
	}
	bs, err := ResolveParams(m.Params, params)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		Model:    m,
		Matcher:  match.DefaultMatcher,
		Props:    make(StepProps),
		Params:   bs,
		buffers:  NewBuffers(m.Buffers...),
		memories: make(map[string]*Memory, len(m.Memories)),
	}
	for _, spec := range m.Memories {
		mem := NewMemory(spec.Name, spec.Buffer)
		for _, c := range spec.seeds {
			mem.Add(c)
		}
		s.memories[spec.Name] = mem
	}
	return s, nil
}

// Tick returns the current tick.
func (s *Scheduler) Tick() int {
	return s.tick
}

// Now returns the current simulated time.
func (s *Scheduler) Now() time.Duration {
	return time.Duration(s.tick) * s.Model.TickDuration()
}

func (s *Scheduler) Halted() bool {
	return s.halted
}

// State returns a snapshot of the buffers.
func (s *Scheduler) State() *State {
	return &State{
		Tick:    s.tick,
		Buffers: s.buffers.Snapshot(),
	}
}

// Buffer returns the named buffer or nil.
func (s *Scheduler) Buffer(name string) *Buffer {
	return s.buffers.Get(name)
}

// Memory returns the named memory or nil.
func (s *Scheduler) Memory(name string) *Memory {
	return s.memories[name]
}

// SetBuffer assigns a buffer from outside of any production.  A nil
// chunk clears the buffer.
func (s *Scheduler) SetBuffer(name string, c *Chunk) error {
	b := s.buffers.Get(name)
	if b == nil {
		return &UnknownBuffer{Buffer: name}
	}
	b.Set(c)
	s.halted = false
	return nil
}

// Boot fires the Model's boot production (if any) with the parameter
// bindings.  Then the clock advances.
//
// Calling Boot more than once is an error.
func (s *Scheduler) Boot(ctx context.Context) (*Stride, error) {
	if s.booted {
		return nil, errors.New("already booted")
	}
	s.booted = true

	stride := s.newStride()
	p := s.Model.BootProduction()
	if p == nil {
		stride.To = s.State()
		return stride, nil
	}
	return stride, s.fire(ctx, stride, p, s.Params.Copy())
}

func (s *Scheduler) newStride() *Stride {
	stride := NewStride()
	stride.Tick = s.tick
	stride.Time = s.Now()
	stride.From = s.State()
	return stride
}

// Step is the fundamental operation: one tick.
//
// Match every production against the buffers, fire the first one
// that matches, resolve the memory requests that the firing issued,
// and advance the clock.  When no production matches, the Scheduler
// halts, and the returned Stride has Halted set.
//
// A production that can't be matched or an action that fails is
// recorded in the Stride's Errors (with a "fail" line), and the tick
// goes on.  The only returned errors are Halted, NotBooted, and a
// done context.
func (s *Scheduler) Step(ctx context.Context) (*Stride, error) {
	if !s.booted && s.Model.BootProduction() != nil {
		return nil, NotBooted
	}
	s.booted = true
	if s.halted {
		return nil, Halted
	}

	stride := s.newStride()

	for _, p := range s.Model.rules {
		bs, err := p.Matches(s.Matcher, s.buffers, nil)
		if err != nil {
			s.problem(ctx, stride, p.Name, fmt.Errorf("matching %s: %w", p.Name, err))
			continue
		}
		if bs == nil {
			continue
		}
		return stride, s.fire(ctx, stride, p, bs)
	}

	s.halted = true
	stride.Halted = true
	stride.To = s.State()
	stride.AddTrace(map[string]interface{}{
		"halted": s.tick,
	})

	return stride, nil
}

// fire executes the production's actions, settles the memory
// requests, checks the phase buffers, and advances the clock.
//
// A failed action doesn't stop the remaining actions.
func (s *Scheduler) fire(ctx context.Context, stride *Stride, p *Production, bs Bindings) error {
	stride.Fired = p.Name
	stride.Bs = bs

	f := &Firing{
		Tick:       s.tick,
		Time:       s.Now(),
		Production: p.Name,
		Bs:         bs,
		Props:      s.Props,
		buffers:    s.buffers,
		memories:   s.memories,
		events:     stride.Events,
	}
	if s.Sink != nil {
		f.emit = s.Sink.Emit
	}

	stride.AddTrace(map[string]interface{}{
		"fire": p.Name,
		"bs":   bs,
	})

	if s.Announce {
		if err := f.Say(ctx, "fire", p.Name); err != nil {
			s.sinkFailed(stride, err)
		}
	}

	for i, a := range p.Actions {
		if err := a.Exec(ctx, f); err != nil {
			s.problem(ctx, stride, p.Name, fmt.Errorf("production %s action %d: %w", p.Name, i, err))
		}
	}

	stride.Requests = f.requests
	s.settle(ctx, stride, f)
	s.checkPhases(ctx, stride, p)

	s.tick++
	stride.To = s.State()

	return ctx.Err()
}

// problem records a runtime error in the stride and emits it as a
// "fail" line.
func (s *Scheduler) problem(ctx context.Context, stride *Stride, production string, err error) {
	msg := err.Error()
	stride.Errors = append(stride.Errors, msg)
	stride.AddTrace(map[string]interface{}{
		"error":      msg,
		"production": production,
	})
	l := &Line{
		Tick:       s.tick,
		Time:       s.Now(),
		Production: production,
		Kind:       "fail",
		Text:       msg,
	}
	stride.AddEmitted(l)
	if s.Sink != nil {
		if err := s.Sink.Emit(ctx, l); err != nil {
			s.sinkFailed(stride, err)
		}
	}
}

// sinkFailed records a Sink error.  The line itself is already in the
// stride's events.
func (s *Scheduler) sinkFailed(stride *Stride, err error) {
	msg := "sink: " + err.Error()
	stride.Errors = append(stride.Errors, msg)
	stride.AddTrace(map[string]interface{}{
		"error": msg,
	})
}

// settle resolves the requests issued during this tick in the order
// they were issued.  The results become visible at the next tick.
//
// A request that can't be evaluated counts as a failed retrieval.
func (s *Scheduler) settle(ctx context.Context, stride *Stride, f *Firing) {
	for _, req := range f.requests {
		r := &Retrieval{
			Request: req,
			Tick:    s.tick + 1,
		}
		c, bs, err := s.memories[req.Memory].Retrieve(s.Matcher, req.Pattern, nil)
		if err != nil {
			s.problem(ctx, stride, f.Production, fmt.Errorf("retrieving %s: %w", req, err))
			c = nil
		}
		target := s.buffers.Get(req.Buffer)
		if c == nil {
			r.Failed = true
			target.Clear()
			stride.AddTrace(map[string]interface{}{
				"retrievalFailure": req.String(),
			})
			if err := f.Say(ctx, "fail", "retrieval failure: "+req.String()); err != nil {
				s.sinkFailed(stride, err)
			}
		} else {
			r.Chunk = c
			target.Set(c)
			stride.AddTrace(map[string]interface{}{
				"retrieved": c.String(),
				"bs":        bs,
			})
		}
		stride.Retrievals = append(stride.Retrievals, r)
	}
}

// checkPhases verifies that each phase buffer holds a declared tag.
// A phase buffer with an undeclared tag (set through a variable) is
// cleared.
func (s *Scheduler) checkPhases(ctx context.Context, stride *Stride, p *Production) {
	for _, ph := range s.Model.Phases {
		b := s.buffers.Get(ph.Buffer)
		c := b.Chunk()
		if c == nil {
			continue
		}
		if tag, have := c.Value(PhaseAttr); have && !ph.Has(tag) {
			b.Clear()
			s.problem(ctx, stride, p.Name, &UndeclaredPhase{Production: p.Name, Buffer: ph.Buffer, Phase: tag})
		}
	}
}

// Walked represents a sequence of strides taken by a Walk().
type Walked struct {
	// Strides contains each Stride taken, including the boot
	// stride and the final halting stride.
	Strides []*Stride `json:"strides" yaml:",omitempty"`

	// StoppedBecause reports the reason why the Walk stopped.
	StoppedBecause StopReason `json:"stoppedBecause" yaml:",omitempty"`

	// Error stores an internal error that occurred (if any).
	Error error `json:"-" yaml:"-"`

	// ErrorMessage is Error as a string.
	ErrorMessage string `json:"error,omitempty" yaml:",omitempty"`

	// BreakpointId is the id of the breakpoint, if any, that
	// caused this Walk to stop.
	BreakpointId string `json:"breakpoint,omitempty" yaml:",omitempty"`
}

func (w *Walked) From() *State {
	if 0 == len(w.Strides) {
		return nil
	}
	return w.Strides[0].From.Copy()
}

func (w *Walked) To() *State {
	for i := len(w.Strides) - 1; 0 <= i; i-- {
		if s := w.Strides[i]; s.To != nil {
			return s.To.Copy()
		}
	}
	return nil
}

// Fired returns the names of the productions that fired in order.
func (w *Walked) Fired() []string {
	acc := make([]string, 0, len(w.Strides))
	for _, stride := range w.Strides {
		if stride.Fired != "" {
			acc = append(acc, stride.Fired)
		}
	}
	return acc
}

// Errors gathers the runtime problems from every stride.
func (w *Walked) Errors() []string {
	var acc []string
	for _, stride := range w.Strides {
		acc = append(acc, stride.Errors...)
	}
	return acc
}

// DoEmitted is a convenience method to iterate over Lines emitted
// by the Walked.
func (w *Walked) DoEmitted(f func(l *Line) error) error {
	for _, stride := range w.Strides {
		for _, l := range stride.Lines() {
			if err := f(l); err != nil {
				return err
			}
		}
	}
	return nil
}

// Lines returns all of the emitted Lines in order.
func (w *Walked) Lines() []*Line {
	var acc []*Line
	w.DoEmitted(func(l *Line) error {
		acc = append(acc, l)
		return nil
	})
	return acc
}

func newWalked(siz int) *Walked {
	max := 1024
	if max < siz {
		siz = max
	}
	return &Walked{
		Strides: make([]*Stride, 0, siz),
	}
}

func (w *Walked) add(s *Stride) {
	if s != nil {
		w.Strides = append(w.Strides, s)
	}
}

func (w *Walked) fail(err error) *Walked {
	w.StoppedBecause = InternalError
	w.Error = err
	w.ErrorMessage = err.Error()
	return w
}

// Walk boots the Scheduler if necessary and then takes as many steps
// as it can.
//
// A done context stops the Walk with StoppedBecause InternalError and
// the error in Walked.Error.  Failures inside a tick (see Step) only
// show up in the strides' Errors.  The returned error is reserved for
// problems with the arguments.
func (s *Scheduler) Walk(ctx context.Context, c *Control) (*Walked, error) {
	if c == nil {
		c = DefaultControl
	}
	if s.halted {
		return nil, Halted
	}

	walked := newWalked(c.Limit + 1)

	if !s.booted {
		stride, err := s.Boot(ctx)
		walked.add(stride)
		if err != nil {
			return walked.fail(err), nil
		}
	}

	for i := 0; i < c.Limit; i++ {
		if err := ctx.Err(); err != nil {
			return walked.fail(err), nil
		}

		if 0 < len(c.Breakpoints) {
			st := s.State()
			ids := make([]string, 0, len(c.Breakpoints))
			for id := range c.Breakpoints {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				if c.Breakpoints[id](ctx, st) {
					walked.StoppedBecause = BreakpointReached
					walked.BreakpointId = id
					return walked, nil
				}
			}
		}

		stride, err := s.Step(ctx)
		walked.add(stride)
		if err != nil {
			return walked.fail(err), nil
		}
		if stride.Halted {
			walked.StoppedBecause = Done
			return walked, nil
		}
	}

	walked.StoppedBecause = Limited

	return walked, nil
}
