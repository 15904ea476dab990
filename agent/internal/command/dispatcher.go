package command

import (
	"context"
	"errors"
	"fmt"

	"beacon/agent/internal/fault"
	"beacon/agent/internal/logger"
)

var ErrUnknownCommand = errors.New("unknown command")

// Result is what gets reported back for a task. Output is always set;
// Err is a fault.KindDispatch error when the command did not run cleanly.
type Result struct {
	Output string
	Err    error
}

func (r Result) Failed() bool { return r.Err != nil }

// Dispatch runs the named command. Unknown names, handler errors and
// handler panics all become textual output so sibling tasks keep running.
func (r *Registry) Dispatch(ctx context.Context, name string, p Params) (res Result) {
	h, ok := r.Get(name)
	if !ok {
		logger.Warnf("Unknown command: %s", name)
		return Result{
			Output: fmt.Sprintf("[X] Unknown command: %s", name),
			Err:    fault.Dispatch(name, ErrUnknownCommand),
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic: %v", rec)
			logger.Errorf("Command %s panicked: %v", name, rec)
			res = failure(name, err)
		}
	}()

	out, err := h.Execute(ctx, p)
	if err != nil {
		logger.Errorf("Command %s failed: %v", name, err)
		return failure(name, err)
	}
	logger.Debugf("Command %s completed", name)
	return Result{Output: out}
}

func failure(name string, err error) Result {
	return Result{
		Output: fmt.Sprintf("[X] Error executing %s: %v", name, err),
		Err:    fault.Dispatch(name, err),
	}
}
