/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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
	"context"
	"fmt"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/match"
	"github.com/NicValentine/LoFi-Cafe/util"

	"github.com/jsccast/yaml"
)

// Output is a specification for a line that's expected.
type Output struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Kind, if given, must be the line's kind.
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Production, if given, must have emitted the line.
	Production string `json:"production,omitempty" yaml:"production,omitempty"`

	// Text, if given, must be the line's text exactly.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Pattern, if given, must match the line's text read as a
	// chunk.  "Here's your ?drink" binds ?drink.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Bindings is written during checking.  Just for
	// diagnostics.
	Bindings core.Bindings `json:"-" yaml:"-"`

	// Line is the line that satisfied this output.
	Line *core.Line `json:"-" yaml:"-"`
}

func (o *Output) String() string {
	if o.Doc != "" {
		return o.Doc
	}
	return fmt.Sprintf("kind=%q production=%q text=%q pattern=%q", o.Kind, o.Production, o.Text, o.Pattern)
}

// Session runs a model with params and checks what it says.
type Session struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`

	// Limit is the maximum number of steps.  Zero means
	// core.DefaultControl's.
	Limit int `json:"limit,omitempty" yaml:"limit,omitempty"`

	// Outputs are expected in this order, but other lines can
	// appear between them.
	Outputs []*Output `json:"outputs" yaml:"outputs"`

	// Fired, if given, must be exactly the run's firings.
	Fired []string `json:"fired,omitempty" yaml:"fired,omitempty"`

	// StoppedBecause, if given, must be the run's stop reason
	// ("Done", "Limited", ...).
	StoppedBecause string `json:"stoppedBecause,omitempty" yaml:"stoppedBecause,omitempty"`
}

// ParseSession reads a Session in YAML (or JSON).
func ParseSession(src []byte) (*Session, error) {
	var s Session
	if err := yaml.Unmarshal(src, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Unmet occurs when a session's expectations weren't met.
type Unmet struct {
	Output  *Output
	Problem string
}

func (e *Unmet) Error() string {
	if e.Output == nil {
		return "unmet: " + e.Problem
	}
	return "unmet " + e.Output.String() + ": " + e.Problem
}

func (o *Output) matches(m *match.Matcher, l *core.Line) (core.Bindings, bool) {
	if o.Kind != "" && o.Kind != l.Kind {
		return nil, false
	}
	if o.Production != "" && o.Production != l.Production {
		return nil, false
	}
	if o.Text != "" && o.Text != l.Text {
		return nil, false
	}
	if o.Pattern == "" {
		return core.NewBindings(), true
	}
	p, err := core.ParsePattern(o.Pattern)
	if err != nil {
		return nil, false
	}
	c, err := core.ParseChunk(l.Text)
	if err != nil {
		return nil, false
	}
	bs, err := m.Match(p, c, nil)
	if err != nil || bs == nil {
		return nil, false
	}
	if ok, err := m.Check(p, c, bs); err != nil || !ok {
		return nil, false
	}
	return bs, true
}

// Check verifies the walk against the session's expectations.
func (s *Session) Check(w *core.Walked) error {
	lines := w.Lines()
	m := match.DefaultMatcher
	i := 0
	for _, o := range s.Outputs {
		found := false
		for ; i < len(lines); i++ {
			if bs, ok := o.matches(m, lines[i]); ok {
				o.Bindings = bs
				o.Line = lines[i]
				util.Logf("expect: %s satisfied at tick %d", o, lines[i].Tick)
				found = true
				i++
				break
			}
		}
		if !found {
			return &Unmet{Output: o, Problem: "not said"}
		}
	}

	if s.Fired != nil {
		fired := w.Fired()
		if len(fired) != len(s.Fired) {
			return &Unmet{Problem: fmt.Sprintf("fired %v", fired)}
		}
		for j := range fired {
			if fired[j] != s.Fired[j] {
				return &Unmet{Problem: fmt.Sprintf("firing %d was %s, not %s", j, fired[j], s.Fired[j])}
			}
		}
	}

	if s.StoppedBecause != "" && s.StoppedBecause != w.StoppedBecause.String() {
		return &Unmet{Problem: "stopped because " + w.StoppedBecause.String()}
	}

	return nil
}

// Run walks the compiled model with the session's params and checks
// the result.
func (s *Session) Run(ctx context.Context, m *core.Model) (*core.Walked, error) {
	sched, err := core.NewScheduler(m, s.Params)
	if err != nil {
		return nil, err
	}
	c := core.DefaultControl.Copy()
	if 0 < s.Limit {
		c.Limit = s.Limit
	}
	w, err := sched.Walk(ctx, c)
	if err != nil {
		return nil, err
	}
	return w, s.Check(w)
}
