package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/util"

	"gopkg.in/yaml.v2"
)

// Dot makes a Graphviz dot file for the phase graph of the given
// buffer ("" for the model's first phase buffer).
//
// Each edge is a production that sets the phase buffer.  Its label
// is the production's name and its conditions as YAML.  The optional
// highlight is the name of a production (say, the one that just
// fired) to draw in red.
func Dot(m *core.Model, buffer string, w io.Writer, highlight string) error {
	ph := PhaseBuffer(m, buffer)
	if ph == nil {
		return fmt.Errorf("no phases for buffer %q", buffer)
	}
	ts := Transitions(m, ph.Buffer)
	phases := PhaseNodes(m, ph.Buffer, ts)

	util.Logf("dot: %s: %d phases, %d transitions", ph.Buffer, len(phases), len(ts))

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	froms := make(map[string]bool)
	for _, t := range ts {
		if t.From != t.To {
			froms[t.From] = true
		}
	}

	nodeId := func(tag string) string {
		if tag == Any {
			return "any"
		}
		return "p_" + tag
	}

	hasAny := false
	for _, t := range ts {
		if t.From == Any {
			hasAny = true
		}
	}
	if hasAny {
		fmt.Fprintf(w, "  %s [shape=\"circle\", style=\"filled\", fillcolor=\"#cccccc\", label=\"*\" ]\n", nodeId(Any))
	}

	for _, tag := range phases {
		if tag == Any {
			continue
		}
		style := "filled"
		fillcolor := "#52aa5e"
		if !froms[tag] {
			style += ",dashed"
			fillcolor = "#99ddc8"
		}
		if !ph.Has(tag) {
			fillcolor = "#f98b8b"
		}
		fmt.Fprintf(w, "  %s [style=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			nodeId(tag), style, fillcolor, tag)
	}

	for _, t := range ts {
		label := t.Production
		if p := productionNamed(m, t.Production); p != nil && len(p.When) > 0 {
			bs, err := yaml.Marshal(p.When)
			if err != nil {
				bs = []byte(err.Error())
			}
			src := strings.TrimSpace(string(bs))
			src = strings.Replace(src, "<", `&lt;`, -1)
			src = strings.Replace(src, ">", `&gt;`, -1)
			label += `<FONT POINT-SIZE="8"><BR ALIGN="LEFT"/>` +
				strings.Replace(src, "\n", `<BR ALIGN="LEFT"/>`, -1) +
				`<BR ALIGN="LEFT"/></FONT>`
		}
		color := "black"
		if t.Production == highlight {
			color = "red"
		}
		fmt.Fprintf(w, "  %s -> %s [ color=\"%s\" label = <%s> ]\n",
			nodeId(t.From), nodeId(t.To), color, label)
	}

	fmt.Fprintf(w, "}\n")
	return nil
}

// productionNamed works for models that aren't compiled.
func productionNamed(m *core.Model, name string) *core.Production {
	for _, p := range m.Productions {
		if p != nil && p.Name == name {
			return p
		}
	}
	return nil
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.  Needs Graphviz's dot.
func PNG(m *core.Model, buffer, basename, highlight string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(m, buffer, dotfile, highlight); err != nil {
		dotfile.Close()
		return pngname, err
	}
	if err := dotfile.Close(); err != nil {
		return pngname, err
	}
	if err := exec.Command("dot", "-Tpng", "-Gstart=1", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}
