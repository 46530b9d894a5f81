package tools

import (
	"fmt"
	"html"
	"io"

	"github.com/NicValentine/LoFi-Cafe/core"

	md "github.com/russross/blackfriday/v2"
)

// RenderModelHTML writes the model's documentation and its
// productions, in priority order, as an HTML fragment.
func RenderModelHTML(m *core.Model, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	f(`<div class="modelDoc doc">%s</div>`, md.Run([]byte(m.Doc)))

	{ // Memories
		f(`<div class="memories">`)
		for _, s := range m.Memories {
			if s == nil {
				continue
			}
			f(`<h2 id="memory-%s" class="memoryName">%s <span class="buffer">&rarr; %s</span></h2>`,
				s.Name, s.Name, html.EscapeString(s.Buffer))
			if s.Doc != "" {
				f(`<div class="memoryDoc doc">%s</div>`, md.Run([]byte(s.Doc)))
			}
			f(`<ul class="chunks">`)
			for _, c := range s.Chunks {
				f(`<li><code>%s</code></li>`, html.EscapeString(c))
			}
			f(`</ul>`)
		}
		f(`</div>`)
	}

	{ // Productions
		f(`<div class="productions"><table>`)
		for i, p := range m.Productions {
			if p == nil {
				continue
			}
			f(`<tr class="production"><td><div class="productionNum">%d</div></td><td>`, i)
			f(`<span id="%s" class="productionName">%s</span>`, p.Name, p.Name)
			if p.Name == m.Boot {
				f(`<span class="boot">boot</span>`)
			}
			if p.Doc != "" {
				f(`<div class="productionDoc doc">%s</div>`, md.Run([]byte(p.Doc)))
			}
			if 0 < len(p.When) {
				f(`<div class="when"><code>%s</code></div>`, html.EscapeString(conditionsText(p)))
			}
			f(`<ol class="then">`)
			for _, a := range p.Then {
				f(`<li><code>%s</code></li>`, html.EscapeString(actionText(a)))
			}
			f(`</ol>`)
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	return nil
}

func actionText(a *core.ActionSource) string {
	switch {
	case a == nil:
		return ""
	case a.Set != nil:
		return "set " + a.Set.Buffer + " " + a.Set.Chunk
	case a.Copy != nil:
		return "copy " + a.Copy.From + " to " + a.Copy.Buffer
	case a.Clear != "":
		return "clear " + a.Clear
	case a.Request != nil:
		return "request " + a.Request.Memory + " " + a.Request.Pattern
	case a.Add != nil:
		return "add " + a.Add.Memory + " " + a.Add.Chunk
	case a.Say != "":
		return "say " + a.Say
	case a.Show != "":
		return "show " + a.Show
	case a.Script != nil:
		return fmt.Sprintf("script %v", a.Script.Source)
	}
	return "?"
}

// RenderModelPage writes a complete HTML page.  A nil cssFiles gets
// "/static/model-html.css".
func RenderModelPage(m *core.Model, out io.Writer, cssFiles []string) error {

	if cssFiles == nil {
		cssFiles = []string{"/static/model-html.css"}
	}

	title := html.EscapeString(m.Name)
	if m.Version != "" {
		title += " " + html.EscapeString(m.Version)
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, title)

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, title)

	if err := RenderModelHTML(m, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}
