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

// Package crew runs independent simulations of one model in
// parallel.
//
// Agents share only the compiled Model, which is immutable.  Each
// agent has its own buffers and memories, and agents never
// coordinate.
package crew

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/util"

	"golang.org/x/sync/errgroup"
)

type Crew struct {
	sync.RWMutex

	Id     string            `json:"id"`
	Model  *core.Model       `json:"-"`
	Agents map[string]*Agent `json:"agents"`

	// Concurrency, if positive, limits the number of agents that
	// walk at the same time.
	Concurrency int `json:"-"`

	// Sinks, if not nil, gives the sink for an agent's lines.
	Sinks func(agentId string) core.Sink `json:"-"`
}

// NewCrew makes an empty crew for the given compiled model.
func NewCrew(id string, m *core.Model) (*Crew, error) {
	if !m.Compiled() {
		return nil, &core.ModelNotCompiled{Model: m}
	}
	return &Crew{
		Id:     id,
		Model:  m,
		Agents: make(map[string]*Agent),
	}, nil
}

// Add makes a new agent with its own scheduler.
func (c *Crew) Add(id string, params map[string]string) (*Agent, error) {
	c.Lock()
	defer c.Unlock()

	if _, have := c.Agents[id]; have {
		return nil, fmt.Errorf("duplicate agent %q", id)
	}
	s, err := core.NewScheduler(c.Model, params)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", id, err)
	}
	if c.Sinks != nil {
		s.Sink = c.Sinks(id)
	}
	a := &Agent{
		Id:        id,
		Params:    params,
		Scheduler: s,
	}
	c.Agents[id] = a
	return a, nil
}

// Ids returns the agent ids in order.
func (c *Crew) Ids() []string {
	c.RLock()
	acc := make([]string, 0, len(c.Agents))
	for id := range c.Agents {
		acc = append(acc, id)
	}
	c.RUnlock()
	sort.Strings(acc)
	return acc
}

// Run walks every agent concurrently.
//
// An agent's failure is recorded in its Walked and doesn't stop the
// others.  The returned error is the first error from
// core.Scheduler.Walk itself (for example, walking an agent that
// has already halted).
func (c *Crew) Run(ctx context.Context, control *core.Control) error {
	c.RLock()
	agents := make([]*Agent, 0, len(c.Agents))
	for _, a := range c.Agents {
		agents = append(agents, a)
	}
	c.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	if 0 < c.Concurrency {
		g.SetLimit(c.Concurrency)
	}

	for _, a := range agents {
		a := a
		g.Go(func() error {
			var ctl *core.Control
			if control != nil {
				ctl = control.Copy()
			}
			util.Logf("crew %s agent %s walking", c.Id, a.Id)
			w, err := a.Scheduler.Walk(gctx, ctl)
			if err != nil {
				return fmt.Errorf("agent %s: %w", a.Id, err)
			}
			a.Lock()
			a.Walked = w
			a.Unlock()
			util.Logf("crew %s agent %s stopped: %s", c.Id, a.Id, w.StoppedBecause)
			return nil
		})
	}

	return g.Wait()
}

// Copy gets a read lock and returns a copy of the crew.
func (c *Crew) Copy() *Crew {
	c.RLock()
	as := make(map[string]*Agent, len(c.Agents))
	for id, a := range c.Agents {
		as[id] = a.Copy()
	}
	acc := &Crew{
		Id:          c.Id,
		Model:       c.Model,
		Agents:      as,
		Concurrency: c.Concurrency,
		Sinks:       c.Sinks,
	}
	c.RUnlock()
	return acc
}
