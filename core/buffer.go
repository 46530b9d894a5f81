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

// Buffer is a named slot that holds at most one Chunk.
//
// Chunks are immutable, so a Buffer can hold the same Chunk as a
// memory store without aliasing anything mutable.
type Buffer struct {
	Name  string
	chunk *Chunk
}

// Set assigns the buffer's chunk.  A nil chunk clears the buffer.
func (b *Buffer) Set(c *Chunk) {
	b.chunk = c
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.chunk = nil
}

// Chunk returns the current chunk, which is nil for an empty buffer.
func (b *Buffer) Chunk() *Chunk {
	return b.chunk
}

func (b *Buffer) Empty() bool {
	return b.chunk == nil
}

// Matches unifies the buffer's chunk with the pattern.
//
// An empty buffer matches only an empty pattern.  Returns nil
// Bindings if there is no match.
func (b *Buffer) Matches(m *match.Matcher, p match.Pattern, bs Bindings) (Bindings, error) {
	if b.chunk == nil {
		if len(p) == 0 {
			return bs.Copy(), nil
		}
		return nil, nil
	}
	return m.Unify(p, b.chunk, bs)
}

// Buffers is an ordered collection of named Buffers.
type Buffers struct {
	order  []string
	byName map[string]*Buffer
}

// NewBuffers makes empty buffers with the given names.
func NewBuffers(names ...string) *Buffers {
	bs := &Buffers{
		order:  make([]string, 0, len(names)),
		byName: make(map[string]*Buffer, len(names)),
	}
	for _, name := range names {
		if _, have := bs.byName[name]; have {
			continue
		}
		bs.order = append(bs.order, name)
		bs.byName[name] = &Buffer{Name: name}
	}
	return bs
}

// Get returns the named buffer or nil.
func (bs *Buffers) Get(name string) *Buffer {
	return bs.byName[name]
}

func (bs *Buffers) Names() []string {
	acc := make([]string, len(bs.order))
	copy(acc, bs.order)
	return acc
}

// Snapshot returns the current chunks (including nil for empty
// buffers) by buffer name.
func (bs *Buffers) Snapshot() map[string]*Chunk {
	acc := make(map[string]*Chunk, len(bs.order))
	for _, name := range bs.order {
		acc[name] = bs.byName[name].chunk
	}
	return acc
}
