package validate

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// ShapeValidator checks single lines against the embedded CUE schema:
// field names, required fields, enum vocabularies and exactly-one payload
// per union.
//
// Thread-safety: safe for concurrent use; lines are checked one at a time.
type ShapeValidator struct {
	mu       sync.Mutex
	ctx      *cue.Context
	artifact cue.Value
}

// NewShapeValidator compiles the embedded schema.
func NewShapeValidator() (*ShapeValidator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile artifact schema: %w", err)
	}
	artifact := schema.LookupPath(cue.ParsePath("#Artifact"))
	if err := artifact.Err(); err != nil {
		return nil, fmt.Errorf("lookup #Artifact: %w", err)
	}
	return &ShapeValidator{ctx: ctx, artifact: artifact}, nil
}

// Validate reports whether line is a well-shaped artifact.
func (v *ShapeValidator) Validate(line []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	data := v.ctx.CompileBytes(line, cue.Filename("line.json"))
	if err := data.Err(); err != nil {
		return fmt.Errorf("parse line: %s", cueerrors.Details(err, nil))
	}
	if err := v.artifact.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("shape: %s", cueerrors.Details(err, nil))
	}
	return nil
}
