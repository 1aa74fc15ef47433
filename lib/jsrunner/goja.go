package jsrunner

import (
	"fmt"
	"io"
	"os"

	"github.com/dop251/goja"
)

type gojaRunner struct {
	vm     *goja.Runtime
	stderr io.Writer
}

type gojaValue struct {
	val goja.Value
}

func NewJSRunner() JSRunner {
	return NewJSRunnerWriter(os.Stderr)
}

// NewJSRunnerWriter returns a runner whose console writes to w.
func NewJSRunnerWriter(w io.Writer) JSRunner {
	g := &gojaRunner{vm: goja.New(), stderr: w}
	// Set only fails for reserved names.
	_ = g.vm.Set("console", g.createConsole())
	return g
}

func (g *gojaRunner) RunString(code string) (JSValue, error) {
	return g.RunScript("", code)
}

func (g *gojaRunner) RunScript(name, code string) (JSValue, error) {
	val, err := g.vm.RunScript(name, code)
	if err != nil {
		return nil, err
	}
	return &gojaValue{val: val}, nil
}

func (g *gojaRunner) Set(name string, value interface{}) error {
	return g.vm.Set(name, value)
}

func (g *gojaRunner) Get(name string) (JSValue, bool) {
	v := g.vm.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, false
	}
	return &gojaValue{val: v}, true
}

func (g *gojaRunner) Interrupt(reason string) {
	g.vm.Interrupt(reason)
}

func (g *gojaRunner) ClearInterrupt() {
	g.vm.ClearInterrupt()
}

func (v *gojaValue) String() string {
	return v.val.String()
}

func (v *gojaValue) Export() interface{} {
	return v.val.Export()
}

func (g *gojaRunner) createConsole() *goja.Object {
	vm := g.vm
	console := vm.NewObject()

	logf := func(call goja.FunctionCall) goja.Value {
		args := make([]interface{}, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}
		fmt.Fprintln(g.stderr, args...)
		return goja.Undefined()
	}
	_ = console.Set("log", logf)
	_ = console.Set("warn", logf)
	_ = console.Set("error", logf)

	return console
}
