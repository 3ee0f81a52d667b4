package output

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"
)

func TestRuntimeError_Error(t *testing.T) {
	err := NewScopeOrderingViolation("step0", "cannot end step: step is %s", stateEnded)
	assert.Equal(t, "SCOPE_ORDERING_VIOLATION: cannot end step: step is ended (scope=step0)", err.Error())

	cause := errors.New("broken pipe")
	sink := NewSinkFailure("run:r", cause)
	assert.Equal(t, "SINK_FAILURE: artifact could not be written (scope=run:r): broken pipe", sink.Error())
	assert.ErrorIs(t, sink, cause)
}

func TestRuntimeError_Predicates(t *testing.T) {
	violation := NewScopeOrderingViolation("step0", "x")
	serialization := NewSerializationFailure("step0", errors.New("NaN"))
	sink := NewSinkFailure("step0", errors.New("EPIPE"))

	assert.True(t, IsScopeOrderingViolation(violation))
	assert.False(t, IsScopeOrderingViolation(sink))
	assert.True(t, IsSerializationFailure(serialization))
	assert.True(t, IsSinkFailure(sink))
	assert.False(t, IsSinkFailure(nil))

	wrapped := fmt.Errorf("flush: %w", sink)
	assert.True(t, IsSinkFailure(wrapped))

	combined := multierr.Append(errors.New("body"), violation)
	combined = multierr.Append(combined, sink)
	assert.True(t, IsScopeOrderingViolation(combined))
	assert.True(t, IsSinkFailure(combined), "predicates look past the first RuntimeError")
	assert.False(t, IsSerializationFailure(combined))

	joined := errors.Join(sink, violation)
	assert.True(t, IsScopeOrderingViolation(joined))
}

func TestScopePanic(t *testing.T) {
	closeErr := NewSinkFailure("step0", errors.New("EPIPE"))
	p := &ScopePanic{Value: "boom", CloseErr: closeErr}
	assert.Contains(t, p.Error(), "boom")
	assert.True(t, IsSinkFailure(p))
}
