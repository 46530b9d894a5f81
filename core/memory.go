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
	"github.com/NicValentine/LoFi-Cafe/match"
)

// Memory is an insertion-ordered store of Chunks associated with the
// buffer that receives its retrievals.
type Memory struct {
	Name   string
	Buffer string
	chunks []*Chunk
}

func NewMemory(name, buffer string) *Memory {
	return &Memory{
		Name:   name,
		Buffer: buffer,
		chunks: make([]*Chunk, 0, 32),
	}
}

// Add appends the chunk.  No duplicate elimination.
func (m *Memory) Add(c *Chunk) {
	m.chunks = append(m.chunks, c)
}

func (m *Memory) Len() int {
	return len(m.chunks)
}

// Chunks returns the chunks in insertion order.
func (m *Memory) Chunks() []*Chunk {
	acc := make([]*Chunk, len(m.chunks))
	copy(acc, m.chunks)
	return acc
}

// Retrieve searches the store, most recently added first, for the
// first chunk that unifies with the pattern under the given bindings.
//
// On success, returns a new chunk with the pattern's attributes (in
// the pattern's order) and the matched chunk's values along with the
// extended bindings.  Returns a nil chunk when nothing unifies.
func (m *Memory) Retrieve(matcher *match.Matcher, p match.Pattern, bs Bindings) (*Chunk, Bindings, error) {
	if bs == nil {
		bs = NewBindings()
	}
	for i := len(m.chunks) - 1; 0 <= i; i-- {
		c := m.chunks[i]
		got, err := matcher.Unify(p, c, bs)
		if err != nil {
			return nil, nil, err
		}
		if got == nil {
			continue
		}
		result, err := instantiate(p, c)
		if err != nil {
			return nil, nil, err
		}
		return result, got, nil
	}
	return nil, nil, nil
}

// Request is a pending retrieval.
type Request struct {
	// Memory is the name of the memory store to search.
	Memory string `json:"memory"`

	// Buffer is the buffer that will receive the result.
	Buffer string `json:"buffer"`

	// Pattern is the retrieval pattern with the firing's bindings
	// already substituted.
	Pattern match.Pattern `json:"pattern"`

	// Tick is when the request was issued.
	Tick int `json:"tick"`
}

func (r *Request) String() string {
	return r.Memory + "(" + RenderPattern(r.Pattern) + ") -> " + r.Buffer
}

// Retrieval is a resolved Request.
type Retrieval struct {
	Request *Request `json:"request"`

	// Chunk is what landed in the buffer.  Nil when Failed.
	Chunk *Chunk `json:"chunk,omitempty"`

	// Failed reports that nothing in memory matched, so the
	// target buffer was cleared.
	Failed bool `json:"failed,omitempty"`

	// Tick is when the result became visible.
	Tick int `json:"tick"`
}
