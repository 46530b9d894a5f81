// Package noop has an interpreter that does nothing, which is handy
// when validating models whose scripts you don't want to run.
package noop

import (
	"context"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/util"
)

// Interpreter is a core.Interpreter which just returns the bindings
// without modification and emits nothing.
type Interpreter struct {
	// Silent, if false, will log a debug message for each use.
	Silent bool
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func (i *Interpreter) Compile(ctx context.Context, code interface{}) (interface{}, error) {
	if !i.Silent {
		util.Logf("noop interpreter compiling %T", code)
	}
	return nil, nil
}

func (i *Interpreter) Exec(ctx context.Context, bs core.Bindings, props core.StepProps, code interface{}, compiled interface{}) (*core.Execution, error) {
	if !i.Silent {
		util.Logf("noop interpreter executing for %v", props["production"])
	}
	return core.NewExecution(bs), nil
}
