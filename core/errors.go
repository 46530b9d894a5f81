package core

// These errors are configuration errors found when a Model is
// compiled, except for the few that can only surface while a
// Scheduler is running.
//
// Unification failures are never errors.

import (
	"errors"
	"strconv"
)

// ModelNotCompiled occurs when a Model is used (say via
// NewScheduler()) before it has been Compile()ed.
type ModelNotCompiled struct {
	Model *Model
}

func (e *ModelNotCompiled) Error() string {
	return `model "` + e.Model.Name + `" not compiled`
}

// BadChunk occurs when chunk or pattern text can't be parsed.
type BadChunk struct {
	Source  string
	Problem string
}

func (e *BadChunk) Error() string {
	return `bad chunk "` + e.Source + `": ` + e.Problem
}

// UnknownBuffer occurs when a production or memory refers to a buffer
// that the model doesn't declare.
type UnknownBuffer struct {
	Production string
	Buffer     string
}

func (e *UnknownBuffer) Error() string {
	if e.Production == "" {
		return `unknown buffer "` + e.Buffer + `"`
	}
	return `unknown buffer "` + e.Buffer + `" in production "` + e.Production + `"`
}

// UnknownMemory occurs when an action refers to a memory that the
// model doesn't declare.
type UnknownMemory struct {
	Production string
	Memory     string
}

func (e *UnknownMemory) Error() string {
	return `unknown memory "` + e.Memory + `" in production "` + e.Production + `"`
}

// DuplicateProduction occurs when two productions share a name.
type DuplicateProduction struct {
	Name string
}

func (e *DuplicateProduction) Error() string {
	return `duplicate production "` + e.Name + `"`
}

// UnboundActionVariable occurs when an action uses a variable that
// none of the production's conditions binds.
type UnboundActionVariable struct {
	Production string
	Action     int
	Variable   string
}

func (e *UnboundActionVariable) Error() string {
	return `action ` + strconv.Itoa(e.Action) + ` of production "` + e.Production +
		`" uses unbound variable "` + e.Variable + `"`
}

// UnboundConditionVariable occurs when a negated condition variable
// isn't bound by any positive condition.
type UnboundConditionVariable struct {
	Production string
	Variable   string
}

func (e *UnboundConditionVariable) Error() string {
	return `production "` + e.Production + `" negates unbound variable "` + e.Variable + `"`
}

// UndeclaredPhase occurs when a production tests or sets a phase tag
// that isn't in its buffer's closed set of phases.
type UndeclaredPhase struct {
	Production string
	Buffer     string
	Phase      string
}

func (e *UndeclaredPhase) Error() string {
	return `production "` + e.Production + `" uses undeclared ` + e.Buffer + ` phase "` + e.Phase + `"`
}

// UndeclaredAttribute occurs when a seed chunk or a pattern uses an
// attribute outside the model's declared attributes.
type UndeclaredAttribute struct {
	Production string
	Memory     string
	Attr       string
}

func (e *UndeclaredAttribute) Error() string {
	where := `production "` + e.Production + `"`
	if e.Memory != "" {
		where = `memory "` + e.Memory + `"`
	}
	return where + ` uses undeclared attribute "` + e.Attr + `"`
}

// BadAction occurs when an action source doesn't specify exactly one
// action.
type BadAction struct {
	Production string
	Action     int
	Problem    string
}

func (e *BadAction) Error() string {
	return `bad action ` + strconv.Itoa(e.Action) + ` in production "` + e.Production + `": ` + e.Problem
}

// BadBoot occurs when the boot production is missing or has
// conditions.
type BadBoot struct {
	Boot    string
	Problem string
}

func (e *BadBoot) Error() string {
	return `bad boot production "` + e.Boot + `": ` + e.Problem
}

// BadParam occurs when a parameter is missing or doesn't comply with
// its ParamSpec.
type BadParam struct {
	Param   string
	Problem string
}

func (e *BadParam) Error() string {
	return `bad param "` + e.Param + `": ` + e.Problem
}

var (
	// InterpreterNotFound occurs when you try to Compile a
	// script action, and the required interpreter isn't in the
	// given map of interpreters.
	InterpreterNotFound = errors.New("interpreter not found")

	// Halted is returned by Step when the scheduler has already
	// halted.
	Halted = errors.New("halted")

	// NotBooted is returned by Step before Boot.
	NotBooted = errors.New("not booted")
)
