/* Copyright 2019 Comcast Cable Communications Management, LLC
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

// Package sio has sinks for what a running model says.
//
// Every sink implements core.Sink.  Stdio writes lines to a writer,
// WebSocket broadcasts them to connected clients, and MQTT publishes
// them to a broker.
package sio

import (
	"context"
	"errors"
	"sync"

	"github.com/NicValentine/LoFi-Cafe/core"
)

// Multi sends each line to every sink in order.
//
// All sinks see the line even if an earlier one fails.  The errors
// are joined.
type Multi []core.Sink

func (m Multi) Emit(ctx context.Context, l *core.Line) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Filter passes on only lines with one of the given kinds.  An empty
// Kinds passes everything.
type Filter struct {
	Kinds []string
	Sink  core.Sink
}

func (f *Filter) Emit(ctx context.Context, l *core.Line) error {
	if len(f.Kinds) == 0 {
		return f.Sink.Emit(ctx, l)
	}
	for _, k := range f.Kinds {
		if k == l.Kind {
			return f.Sink.Emit(ctx, l)
		}
	}
	return nil
}

// Collector keeps every line.
type Collector struct {
	sync.Mutex
	lines []*core.Line
}

func (c *Collector) Emit(ctx context.Context, l *core.Line) error {
	c.Lock()
	c.lines = append(c.lines, l)
	c.Unlock()
	return nil
}

// Lines returns a copy of what's been collected.
func (c *Collector) Lines() []*core.Line {
	c.Lock()
	defer c.Unlock()
	acc := make([]*core.Line, len(c.lines))
	copy(acc, c.lines)
	return acc
}
