// Package goja implements core.Interpreter using Goja, which is a Go
// implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
package goja

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Comcast/parley/core"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by guard/action execution if the
	// execution is interrupted by the timeout.
	Interrupted = errors.New(InterruptedMessage)
)

// Interpreter compiles guard and action sources to ECMAScript.
//
// The dynamic environment of a guard or action includes:
//
//	get(name)      -> machine variable (or null)
//	set(name, v)   -> set machine variable
//	props          -> the StepProps for this step
//	cronNext(expr) -> next time for the cron expression, RFC3339Nano
//	log(x)         -> write to the process log
//
// A guard's value is its last expression, interpreted for truth.
type Interpreter struct {
	// Timeout limits the execution time of a single guard or
	// action.  Zero means no limit.
	Timeout time.Duration
}

// NewInterpreter makes an Interpreter with a one-second timeout.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		Timeout: time.Second,
	}
}

func (i *Interpreter) compile(src string) (*goja.Program, error) {
	return goja.Compile("", src, true)
}

func (i *Interpreter) exec(ctx context.Context, m *core.Machine, props core.StepProps, p *goja.Program) (goja.Value, error) {
	vm := goja.New()

	vm.Set("get", func(name string) interface{} {
		v, _ := m.Var(name)
		return v
	})

	vm.Set("set", func(name string, v interface{}) {
		m.SetVar(name, v)
	})

	vm.Set("props", map[string]interface{}(props))

	// Given a cron expression, return the next time as a string in
	// RFC3339Nano, using github.com/gorhill/cronexpr.
	vm.Set("cronNext", func(expr string) string {
		c, err := cronexpr.Parse(expr)
		if err != nil {
			panic(vm.ToValue(err.Error()))
		}
		return c.Next(time.Now().UTC()).Format(time.RFC3339Nano)
	})

	vm.Set("log", func(args ...interface{}) {
		log.Println(args...)
	})

	if i.Timeout > 0 {
		timer := time.AfterFunc(i.Timeout, func() {
			vm.Interrupt("timeout")
		})
		defer timer.Stop()
	}

	v, err := vm.RunProgram(p)
	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}
	return v, nil
}

// CompileGuard makes a Guard from ECMAScript source.
//
// An execution error makes the guard false.
func (i *Interpreter) CompileGuard(ctx context.Context, src string) (core.Guard, error) {
	p, err := i.compile(src)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, m *core.Machine, props core.StepProps) bool {
		v, err := i.exec(ctx, m, props, p)
		if err != nil {
			log.Printf("goja guard error: %v", err)
			return false
		}
		if v == nil {
			return false
		}
		return v.ToBoolean()
	}, nil
}

// CompileAction makes an Action from ECMAScript source.
func (i *Interpreter) CompileAction(ctx context.Context, src string) (core.Action, error) {
	p, err := i.compile(src)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, m *core.Machine, props core.StepProps) error {
		_, err := i.exec(ctx, m, props, p)
		return err
	}, nil
}
