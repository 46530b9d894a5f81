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

package crew

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/NicValentine/LoFi-Cafe/core"
)

// Agent is one simulation: an id, its params, and its own
// scheduler.
type Agent struct {
	sync.Mutex

	Id     string            `json:"id"`
	Params map[string]string `json:"params,omitempty"`

	Scheduler *core.Scheduler `json:"-"`

	// Walked is the result of the last Run.
	Walked *core.Walked `json:"walked,omitempty"`

	// State is only set on copies.
	State *core.State `json:"state,omitempty"`
}

// Copy returns a new Agent with the same id, params, and scheduler,
// plus a snapshot of the scheduler's state.
func (a *Agent) Copy() *Agent {
	a.Lock()
	defer a.Unlock()
	acc := &Agent{
		Id:        a.Id,
		Params:    make(map[string]string, len(a.Params)),
		Scheduler: a.Scheduler, // Not copied!
		Walked:    a.Walked,
	}
	for k, v := range a.Params {
		acc.Params[k] = v
	}
	if a.Scheduler != nil {
		acc.State = a.Scheduler.State()
	}
	return acc
}

// ParseAgent parses "id:k=v,k=v" into an id and params.
func ParseAgent(s string) (string, map[string]string, error) {
	id, rest, _ := strings.Cut(s, ":")
	if id == "" {
		return "", nil, fmt.Errorf("bad agent %q: no id", s)
	}
	params := make(map[string]string)
	if rest == "" {
		return id, params, nil
	}
	for _, kv := range strings.Split(rest, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return "", nil, fmt.Errorf("bad agent %q: bad param %q", s, kv)
		}
		params[k] = v
	}
	return id, params, nil
}

// Summary renders each agent's firings, one agent per line.
func Summary(c *Crew) string {
	var b strings.Builder
	ids := c.Ids()
	sort.Strings(ids)
	c.RLock()
	defer c.RUnlock()
	for _, id := range ids {
		a := c.Agents[id]
		a.Lock()
		fmt.Fprintf(&b, "%s:", id)
		if a.Walked != nil {
			fmt.Fprintf(&b, " %s %s", a.Walked.StoppedBecause, strings.Join(a.Walked.Fired(), ","))
		}
		b.WriteString("\n")
		a.Unlock()
	}
	return b.String()
}
