// Package interpreters gathers the interpreters that script actions
// can use.
package interpreters

import (
	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/interpreters/goja"
	"github.com/NicValentine/LoFi-Cafe/interpreters/noop"
)

// Standard returns a map with "goja" (the default) and "noop".
func Standard() core.InterpretersMap {
	is := core.NewInterpretersMap()
	is["goja"] = goja.NewInterpreter()
	is["noop"] = noop.NewInterpreter()
	return is
}

// Validating returns a map where every standard name uses the noop
// interpreter, so models can be compiled without evaluating scripts.
func Validating() core.InterpretersMap {
	is := core.NewInterpretersMap()
	n := &noop.Interpreter{Silent: true}
	for name := range Standard() {
		is[name] = n
	}
	return is
}
