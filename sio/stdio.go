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

package sio

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/NicValentine/LoFi-Cafe/core"
)

// Stdio is a fairly simple sink that writes each line's text to a
// writer.
type Stdio struct {
	// Out receives lines.
	Out io.Writer

	// Timestamps prepends the simulated time of each line.
	Timestamps bool

	// Tags prefixes the line's kind ("say", "fail", "fire",
	// "show", "script").
	Tags bool

	// PadTags adds some padding to tags.
	PadTags bool

	// Agent, if not empty, prefixes each line.  Handy when a crew
	// shares one writer.
	Agent string

	sync.Mutex
}

// NewStdio creates a new Stdio that writes to os.Stdout.
func NewStdio() *Stdio {
	return &Stdio{
		Out: os.Stdout,
	}
}

// Format renders the line as Emit would write it (without the
// newline).
func (s *Stdio) Format(l *core.Line) string {
	text := l.Text
	if s.Tags {
		tag := l.Kind
		if s.PadTags {
			tag = fmt.Sprintf("% 7s", tag)
		}
		text = tag + " " + text
	}
	if s.Agent != "" {
		text = s.Agent + " " + text
	}
	if s.Timestamps {
		text = fmt.Sprintf("%-8s", l.Time) + " " + text
	}
	return text
}

func (s *Stdio) Emit(ctx context.Context, l *core.Line) error {
	s.Lock()
	defer s.Unlock()
	_, err := fmt.Fprintln(s.Out, s.Format(l))
	return err
}
