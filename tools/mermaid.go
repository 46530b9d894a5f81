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
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/util"
)

type MermaidOpts struct {
	// Buffer is the phase buffer to graph.  Empty means the model's
	// first phase buffer.
	Buffer string `json:"buffer,omitempty"`

	// ShowConditions adds a production's conditions to its edge
	// label.
	ShowConditions bool `json:"showConditions"`

	// TerminalFill is the fill color for phases with no way out.
	TerminalFill string `json:"terminalFill,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for one of the given model's phase graphs.
func Mermaid(m *core.Model, w io.Writer, opts *MermaidOpts) error {

	if opts == nil {
		opts = &MermaidOpts{
			TerminalFill: "#bcf2db",
		}
	}

	ph := PhaseBuffer(m, opts.Buffer)
	if ph == nil {
		return fmt.Errorf("no phases for buffer %q", opts.Buffer)
	}
	ts := Transitions(m, ph.Buffer)
	phases := PhaseNodes(m, ph.Buffer, ts)

	util.Logf("mermaid: %s: %d phases, %d transitions", ph.Buffer, len(phases), len(ts))

	fmt.Fprintf(w, "graph TB\n")

	froms := make(map[string]bool)
	for _, t := range ts {
		if t.From != t.To {
			froms[t.From] = true
		}
	}

	nids := make(map[string]string)
	num := 0

	node := func(tag string) string {
		if nid, already := nids[tag]; already {
			return nid
		}
		num++
		nid := fmt.Sprintf("n%d", num)
		nids[tag] = nid

		if froms[tag] {
			fmt.Fprintf(w, "  %s(\"%s\")\n", nid, tag)
		} else {
			fmt.Fprintf(w, "  %s[\"%s\"]\n", nid, tag)
			if opts.TerminalFill != "" && tag != Any {
				fmt.Fprintf(w, "  style %s fill:%s\n", nid, opts.TerminalFill)
			}
		}

		return nid
	}

	for _, tag := range phases {
		node(tag)
	}

	for _, t := range ts {
		from, to := node(t.From), node(t.To)
		label := t.Production
		if opts.ShowConditions {
			if p := productionNamed(m, t.Production); p != nil {
				label += "<br/>" + conditionsText(p)
			}
		}
		label = strings.Replace(label, `"`, `'`, -1)
		fmt.Fprintf(w, "  %s -- \"%s\" --> %s\n", from, label, to)
	}

	fmt.Fprintf(w, "\n")

	return nil
}

// conditionsText renders a production's source conditions as
// "buf=pattern" in buffer order.
func conditionsText(p *core.Production) string {
	buffers := make([]string, 0, len(p.When))
	for b := range p.When {
		buffers = append(buffers, b)
	}
	sort.Strings(buffers)
	acc := make([]string, 0, len(buffers))
	for _, b := range buffers {
		if src := p.When[b]; src == nil {
			acc = append(acc, b+"=<empty>")
		} else {
			acc = append(acc, b+"="+*src)
		}
	}
	return strings.Join(acc, " ")
}
