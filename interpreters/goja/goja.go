package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/match"
	"github.com/NicValentine/LoFi-Cafe/util"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)

	// Epoch is the wall-clock time that corresponds to simulated
	// time zero for cronNext.
	Epoch = time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
)

// init adds an Interpreter as one of the DefaultInterpreters.
func init() {
	core.DefaultInterpreters["goja"] = NewInterpreter()
}

// Interpreter implements core.Intepreter using Goja, which is a
// Go implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
type Interpreter struct {

	// Testing is used to expose or hide some runtime
	// capabilities.
	Testing bool

	// LibraryProvider resolves the names in a script's "requires"
	// into source.  DefaultLibraryProvider is used if this
	// provider is nil.
	LibraryProvider func(ctx context.Context, i *Interpreter, libraryName string) (string, error)
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// ProvideLibrary resolves the library name into a library.
func (i *Interpreter) ProvideLibrary(ctx context.Context, name string) (string, error) {
	if i.LibraryProvider != nil {
		return i.LibraryProvider(ctx, i, name)
	}
	return DefaultLibraryProvider(ctx, i, name)
}

var DefaultLibraryProvider = MakeFileLibraryProvider(".")

// MakeFileLibraryProvider makes a provider for names of the form
// "file://NAME", which are read relative to the given directory.
func MakeFileLibraryProvider(dir string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		parts := strings.SplitN(name, "://", 2)
		if 2 != len(parts) {
			return "", fmt.Errorf("bad link '%s'", name)
		}
		switch parts[0] {
		case "file":
			filename := parts[1]
			if strings.Contains(filename, "..") {
				return "", fmt.Errorf("bad library file '%s'", filename)
			}
			bs, err := os.ReadFile(dir + "/" + filename)
			if err != nil {
				return "", err
			}
			return string(bs), nil
		default:
			return "", fmt.Errorf("unknown protocol '%s'", parts[0])
		}
	}
}

func MakeMapLibraryProvider(srcs map[string]string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// parseSource looks into the given map to try to find "requires" and
// "code" properties.
func parseSource(vv map[string]interface{}) (code string, libs []string, err error) {
	x := vv["code"]
	if s, is := x.(string); is {
		code = s
	} else {
		err = errors.New("bad Goja action code")
		return
	}

	switch vv := vv["requires"].(type) {
	case nil:
	case string:
		libs = []string{vv}
	case []string:
		libs = vv
	case []interface{}:
		libs = make([]string, 0, len(vv))
		for _, x := range vv {
			s, is := x.(string)
			if !is {
				err = errors.New("bad library")
				return
			}
			libs = append(libs, s)
		}
	default:
		err = fmt.Errorf("bad requires (%T)", vv)
	}

	return
}

// AsSource accepts either a string of code or a map with "code" and
// optional "requires".
func AsSource(src interface{}) (code string, libs []string, err error) {
	switch vv := src.(type) {
	case string:
		code = vv
		return
	case map[interface{}]interface{}:
		m := make(map[string]interface{})
		for k, v := range vv {
			str, ok := k.(string)
			if !ok {
				err = fmt.Errorf("bad src key (%T)", k)
				return
			}
			m[str] = v
		}
		return parseSource(m)
	case map[string]interface{}:
		return parseSource(vv)
	default:
		err = fmt.Errorf("bad Goja source (%T)", src)
		return
	}
}

// Compile prepends any required libraries and then calls
// goja.Compile.
//
// This method can block if the interpreter's library provider blocks.
func (i *Interpreter) Compile(ctx context.Context, src interface{}) (interface{}, error) {
	code, libs, err := AsSource(src)
	if err != nil {
		return nil, err
	}

	code = wrapSrc(code)

	var libsSrc string
	for _, lib := range libs {
		libSrc, err := i.ProvideLibrary(ctx, lib)
		if err != nil {
			return nil, err
		}
		libsSrc += libSrc + "\n"
	}

	code = libsSrc + code

	obj, err := goja.Compile("", code, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + code)
	}

	return obj, nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		return v.Export()
	}
	return x
}

// Exec implements the Interpreter method of the same name.
//
// The following properties are available from the runtime at _.
//
// These two things are most important:
//
//    bindings: the map of the current bindings (without the leading
//      "?" in variable names).
//    out(obj): Add the given object as a message to emit.
//
// Some useful utilities:
//
//    log(obj): Log the given object.
//    esc(s): URL query-escape the given string.
//    match(pat, chunk): Unify a pattern and a chunk (both in the
//      chunk text syntax).  Returns bindings or null.
//    cronNext(expr): The next time on the simulated clock (in
//      milliseconds) that satisfies the cron expression.  Simulated
//      time zero is Epoch.
//
// For testing only:
//
//    sleep(ms): sleep for the given number of milliseconds.
//
// The Testing flag must be set to see sleep().
func (i *Interpreter) Exec(ctx context.Context, bs core.Bindings, props core.StepProps, src interface{}, compiled interface{}) (*core.Execution, error) {
	exe := core.NewExecution(nil)

	var p *goja.Program
	if compiled == nil {
		var err error
		if compiled, err = i.Compile(ctx, src); err != nil {
			return exe, err
		}
	}
	var is bool
	if p, is = compiled.(*goja.Program); !is {
		return exe, fmt.Errorf("Goja bad compilation: %T %#v", compiled, compiled)
	}

	env := map[string]interface{}{}
	if props == nil {
		env["props"] = map[string]interface{}{}
	} else {
		env["props"] = map[string]interface{}(props.Copy())
	}

	bindings := make(map[string]interface{}, len(bs))
	for v, x := range bs {
		bindings[core.Unquestion(v)] = x
	}
	env["bindings"] = bindings

	o := goja.New()

	o.Set("_", env)

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	env["esc"] = func(x interface{}) interface{} {
		s, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		return url.QueryEscape(s)
	}

	env["cronNext"] = func(x interface{}) interface{} {
		expr, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		c, err := cronexpr.Parse(expr)
		if err != nil {
			protest(o, err.Error())
		}
		var ms int64
		if props != nil {
			switch vv := props["t"].(type) {
			case int64:
				ms = vv
			case int:
				ms = int64(vv)
			case float64:
				ms = int64(vv)
			}
		}
		now := Epoch.Add(time.Duration(ms) * time.Millisecond)
		next := c.Next(now)
		if next.IsZero() {
			return nil
		}
		return next.Sub(Epoch).Milliseconds()
	}

	// "out" adds the given message to the list of messages to
	// emit.
	env["out"] = func(x interface{}) interface{} {
		x, err := core.Canonicalize(export(x))
		if err != nil {
			// Will end up as a Javascript exception.
			panic(err)
		}

		exe.AddEmitted(x)

		return x
	}

	env["log"] = func(x interface{}) interface{} {
		x = export(x)
		js, err := json.Marshal(&x)
		if err != nil {
			util.Logger().Warn("goja.log can't marshal", "error", err)
		} else {
			util.Logger().Info("goja.log", "value", string(js))
		}
		exe.AddTrace(x)
		return x
	}

	// match is a utility that invokes the pattern matcher.
	env["match"] = func(pat, chunk goja.Value) interface{} {
		ps, is := pat.Export().(string)
		if !is {
			protest(o, "pattern isn't a string")
		}
		cs, is := chunk.Export().(string)
		if !is {
			protest(o, "chunk isn't a string")
		}
		pattern, err := core.ParsePattern(ps)
		if err != nil {
			protest(o, err.Error())
		}
		c, err := core.ParseChunk(cs)
		if err != nil {
			protest(o, err.Error())
		}
		got, err := match.Unify(pattern, c, nil)
		if err != nil {
			protest(o, err.Error())
		}
		if got == nil {
			return nil
		}
		acc := make(map[string]interface{}, len(got))
		for v, x := range got {
			acc[core.Unquestion(v)] = x
		}
		return acc
	}

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If this Exec method calls cancel() after RunProgram
		// returns, then we'll never see this
		// InterruptedMessage, which is actually the behavior
		// we want.  In this case, we weren't actually interrupted.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	var result core.Bindings
	switch vv := v.Export().(type) {
	case nil:
	case map[string]interface{}:
		result = core.NewBindings()
		for k, x := range vv {
			s, is := x.(string)
			if !is {
				return nil, fmt.Errorf("binding for %s is a %T, not a string", k, x)
			}
			result[core.ParamVar(k)] = s
		}
	default:
		return nil, fmt.Errorf("%#v (%T) isn't Bindings", vv, vv)
	}
	exe.Bs = result

	return exe, nil
}
