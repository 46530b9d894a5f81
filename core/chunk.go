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
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/NicValentine/LoFi-Cafe/match"
)

// Bindings is a map from variables (strings starting with a '?') to
// their values.
type Bindings = match.Bindings

func NewBindings() Bindings {
	return match.NewBindings()
}

// PositionalPrefix starts the attribute names given to bare values.
//
// "cappuccinotime" parses to the chunk {_0: cappuccinotime}.
const PositionalPrefix = "_"

// variableName is the syntax for a named variable.  A lone "?" is
// the anonymous variable.
var variableName = regexp.MustCompile(`^\?[A-Za-z_][A-Za-z0-9_]*$`)

// badAttr reports what's wrong with an attribute name, if anything.
func badAttr(attr string) string {
	switch {
	case attr == "":
		return "empty attribute"
	case match.IsVariable(attr) || match.IsNegated(attr):
		return "attribute can't be a variable or negation: " + strconv.Quote(attr) +
			" (negate the value, as in attr:!value)"
	}
	return ""
}

// Chunk is an immutable, ordered set of attribute/value pairs.
type Chunk struct {
	slots []match.Slot
}

// NewChunk makes a Chunk from the given slots, which must have
// unique attributes and constant values.
func NewChunk(slots ...match.Slot) (*Chunk, error) {
	seen := make(map[string]bool, len(slots))
	acc := make([]match.Slot, 0, len(slots))
	for _, s := range slots {
		if problem := badAttr(s.Attr); problem != "" {
			return nil, &BadChunk{Source: render(slots), Problem: problem}
		}
		if seen[s.Attr] {
			return nil, &BadChunk{Source: render(slots), Problem: "duplicate attribute " + s.Attr}
		}
		if !match.IsConstant(s.Value) || s.Value == "" {
			return nil, &BadChunk{Source: render(slots), Problem: "not a symbol: " + strconv.Quote(s.Value)}
		}
		seen[s.Attr] = true
		acc = append(acc, s)
	}
	return &Chunk{slots: acc}, nil
}

// MustChunk is ParseChunk that panics.
func MustChunk(s string) *Chunk {
	c, err := ParseChunk(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseChunk parses the text syntax for chunks: whitespace-separated
// "attr:value" tokens or bare values, which get positional
// attributes.
func ParseChunk(s string) (*Chunk, error) {
	slots, err := parseSlots(s)
	if err != nil {
		return nil, err
	}
	return NewChunk(slots...)
}

// ParsePattern parses the same syntax as ParseChunk, but values can
// be variables or negations.
func ParsePattern(s string) (match.Pattern, error) {
	slots, err := parseSlots(s)
	if err != nil {
		return nil, err
	}
	return match.Pattern(slots), nil
}

func parseSlots(s string) ([]match.Slot, error) {
	var (
		fields = strings.Fields(s)
		acc    = make([]match.Slot, 0, len(fields))
		seen   = make(map[string]bool, len(fields))
		pos    = 0
	)
	for _, f := range fields {
		var slot match.Slot
		if i := strings.Index(f, ":"); i < 0 {
			slot = match.Slot{Attr: PositionalPrefix + strconv.Itoa(pos), Value: f}
			pos++
		} else {
			slot = match.Slot{Attr: f[:i], Value: f[i+1:]}
		}
		v := match.Negated(slot.Value)
		switch {
		case badAttr(slot.Attr) != "":
			return nil, &BadChunk{Source: s, Problem: badAttr(slot.Attr)}
		case v == "":
			return nil, &BadChunk{Source: s, Problem: "empty value in " + strconv.Quote(f)}
		case match.IsVariable(v) && !match.IsAnonymousVariable(v) && !variableName.MatchString(v):
			return nil, &BadChunk{Source: s, Problem: "bad variable name " + strconv.Quote(v)}
		case seen[slot.Attr]:
			return nil, &BadChunk{Source: s, Problem: "duplicate attribute " + slot.Attr}
		}
		seen[slot.Attr] = true
		acc = append(acc, slot)
	}
	return acc, nil
}

// Value implements match.Fact.
func (c *Chunk) Value(attr string) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, s := range c.slots {
		if s.Attr == attr {
			return s.Value, true
		}
	}
	return "", false
}

// Slots returns a copy of the chunk's slots.
func (c *Chunk) Slots() []match.Slot {
	if c == nil {
		return nil
	}
	acc := make([]match.Slot, len(c.slots))
	copy(acc, c.slots)
	return acc
}

func (c *Chunk) Len() int {
	if c == nil {
		return 0
	}
	return len(c.slots)
}

// Equal reports whether the two chunks have the same slots in the
// same order.
func (c *Chunk) Equal(d *Chunk) bool {
	if c == nil || d == nil {
		return c == d
	}
	if len(c.slots) != len(d.slots) {
		return false
	}
	for i, s := range c.slots {
		if d.slots[i] != s {
			return false
		}
	}
	return true
}

// String renders the chunk in its text syntax.  Positional slots are
// rendered as bare values when that parses back to the same slot.
func (c *Chunk) String() string {
	if c == nil {
		return ""
	}
	return render(c.slots)
}

func render(slots []match.Slot) string {
	parts := make([]string, 0, len(slots))
	pos := 0
	for _, s := range slots {
		if s.Attr == PositionalPrefix+strconv.Itoa(pos) {
			parts = append(parts, s.Value)
			pos++
			continue
		}
		parts = append(parts, s.Attr+":"+s.Value)
	}
	return strings.Join(parts, " ")
}

// RenderPattern renders a pattern in the chunk text syntax.
func RenderPattern(p match.Pattern) string {
	return render(p)
}

func (c *Chunk) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Chunk) UnmarshalJSON(bs []byte) error {
	var s string
	if err := json.Unmarshal(bs, &s); err != nil {
		return err
	}
	parsed, err := ParseChunk(s)
	if err != nil {
		return err
	}
	c.slots = parsed.slots
	return nil
}

// instantiate makes a new Chunk from the pattern with the values
// taken from the fact, which must have matched the pattern.
func instantiate(p match.Pattern, fact match.Fact) (*Chunk, error) {
	acc := make([]match.Slot, 0, len(p))
	for _, s := range p {
		v, have := fact.Value(s.Attr)
		if !have {
			return nil, &BadChunk{Source: render(p), Problem: "missing " + s.Attr}
		}
		acc = append(acc, match.Slot{Attr: s.Attr, Value: v})
	}
	return NewChunk(acc...)
}
