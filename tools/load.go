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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/util"
)

var inline = regexp.MustCompile(`(?s)(.*?)(%inline *\("([^"]*)"\))`)

// Inline replaces '%inline("NAME")' with f(NAME).
func Inline(bs []byte, f func(string) ([]byte, error)) ([]byte, error) {
	i := 0
	acc := make([]byte, 0, len(bs))
	for {
		part := inline.FindSubmatch(bs[i:])
		if part == nil {
			acc = append(acc, bs[i:]...)
			break
		}
		i += len(part[0])
		acc = append(acc, part[1]...)
		replacement, err := f(string(part[3]))
		if err != nil {
			return nil, err
		}
		util.Logf("inlining %s: %d bytes", part[3], len(replacement))
		acc = append(acc, replacement...)
	}

	return acc, nil
}

// ReadFileWithInlines is a replacement for os.ReadFile that
// Inline()s relative to the file's directory.
func ReadFileWithInlines(filename string) ([]byte, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(filename)
	f := func(name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, name))
	}

	return Inline(bs, f)
}

// ReadModel reads, parses, and compiles the model in the given file.
//
// A nil interpreters uses core.DefaultInterpreters.
func ReadModel(ctx context.Context, filename string, interpreters core.InterpretersMap) (*core.Model, error) {
	src, err := ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	m, err := core.LoadModel(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if err := m.Compile(ctx, interpreters, true); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}
