// Package jsrunner runs JavaScript in an embedded VM.
package jsrunner

import "context"

type JSRunner interface {
	RunString(code string) (JSValue, error)
	RunScript(name, code string) (JSValue, error)
	Set(name string, value interface{}) error
	Get(name string) (JSValue, bool)
	Interrupt(reason string)
	ClearInterrupt()
}

type JSValue interface {
	String() string
	Export() interface{}
}

// RunContext runs code and interrupts the VM if ctx is done first.
func RunContext(ctx context.Context, r JSRunner, name, code string) (JSValue, error) {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			r.Interrupt(ctx.Err().Error())
		case <-done:
		}
	}()
	v, err := r.RunScript(name, code)
	close(done)
	<-stopped
	// An interrupt that lands after the script finished would otherwise abort the next run.
	r.ClearInterrupt()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return v, nil
}
