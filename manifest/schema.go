package manifest

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

var (
	schemaOnce sync.Once
	cueCtx     *cue.Context
	targetDef  cue.Value
	schemaErr  error
)

func loadSchema() {
	cueCtx = cuecontext.New()
	v := cueCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		schemaErr = fmt.Errorf("compiling schema: %w", err)
		return
	}
	targetDef = v.LookupPath(cue.ParsePath("#Target"))
	if err := targetDef.Err(); err != nil {
		schemaErr = fmt.Errorf("schema has no #Target: %w", err)
	}
}

// ValidateTarget checks t against the embedded schema: identifier-shaped
// names, table size bounds and known targets. Empty fields are not checked.
func ValidateTarget(t Target) error {
	schemaOnce.Do(loadSchema)
	if schemaErr != nil {
		return schemaErr
	}

	v := targetDef.Unify(cueCtx.Encode(t))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
