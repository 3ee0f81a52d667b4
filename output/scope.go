package output

import (
	"context"

	"go.uber.org/multierr"
)

// scopeState is the lifecycle of a run, step or series.
// Transitions: unstarted -> started -> ended. There is no way back.
type scopeState int

const (
	stateUnstarted scopeState = iota
	stateStarted
	stateEnded
)

func (s scopeState) String() string {
	switch s {
	case stateUnstarted:
		return "unstarted"
	case stateStarted:
		return "started"
	case stateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// guard runs body and then closeScope exactly once, however body exits:
// normal return, returned error, panic or runtime.Goexit.
//
// closeScope always runs on a context detached from ctx's cancellation so
// a cancelled body still gets its end artifact. failed is true unless body
// returned nil.
//
// A body error and a close error are combined. A panic resumes after the
// close; if the close failed as well, the panic value becomes a *ScopePanic
// carrying both.
func guard(
	ctx context.Context,
	logger Logger,
	scope string,
	body func(context.Context) error,
	closeScope func(ctx context.Context, failed bool) error,
) error {
	closeCtx := context.WithoutCancel(ctx)
	returned := false

	defer func() {
		if returned {
			return
		}
		p := recover()
		logger.Warn("scope body did not return, closing with error status", "scope", scope, "panic", p)
		closeErr := closeScope(closeCtx, true)
		if closeErr != nil {
			logger.Error("automatic close failed", "scope", scope, "error", closeErr)
		}
		if p == nil {
			// runtime.Goexit: let it continue unwinding.
			return
		}
		if closeErr != nil {
			panic(&ScopePanic{Value: p, CloseErr: closeErr})
		}
		panic(p)
	}()

	bodyErr := body(ctx)
	returned = true

	if bodyErr != nil {
		logger.Warn("scope body failed, closing with error status", "scope", scope, "error", bodyErr)
	}
	closeErr := closeScope(closeCtx, bodyErr != nil)
	if closeErr != nil {
		logger.Error("automatic close failed", "scope", scope, "error", closeErr)
	}
	return multierr.Append(bodyErr, closeErr)
}
