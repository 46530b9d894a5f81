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
)

func strp(x string) *string {
	return &x
}

// CappuccinoModel makes a small example Model that's useful to have
// around.
//
// With "cappuccinotime" in the method buffer and the cappuccino chunk
// in DMBuffer, "plan" fires and requests the cappuccino's first
// subtask.  The retrieval lands a tick later, and "first" reports
// it.
func CappuccinoModel(ctx context.Context) (*Model, error) {
	m := &Model{
		Name:    "cappuccino",
		Buffers: []string{"method", "DMBuffer"},
		Memories: []*MemorySpec{
			{
				Name:   "DM",
				Buffer: "DMBuffer",
				Chunks: []string{
					"ut:cappuccino ut0:espresso ut1:steamedmilk",
					"coffee:cappuccino pu:cappuccino",
				},
			},
		},
		Productions: []*Production{
			{
				Name: "plan",
				When: map[string]*string{
					"method":   strp("cappuccinotime"),
					"DMBuffer": strp("coffee:cappuccino pu:?plan"),
				},
				Then: []*ActionSource{
					{Set: &SetSource{Buffer: "method", Chunk: "planning"}},
					{Request: &MemorySource{Memory: "DM", Pattern: "ut:?plan ut0:?task"}},
				},
			},
			{
				Name: "first",
				When: map[string]*string{
					"method":   strp("planning"),
					"DMBuffer": strp("ut:?plan ut0:?task"),
				},
				Then: []*ActionSource{
					{Say: "First ?task for the ?plan"},
					{Clear: "DMBuffer"},
					{Set: &SetSource{Buffer: "method", Chunk: "done"}},
				},
			},
		},
	}

	if err := m.Compile(ctx, nil, true); err != nil {
		return nil, err
	}

	return m, nil
}
