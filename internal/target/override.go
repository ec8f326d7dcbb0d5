package target

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/standardbeagle/cuikgo/internal/cerr"
)

// BuiltinOverride is a project-supplied extension of a target's builtin
// table, loaded from JSON so extra intrinsics can be registered without a
// rebuild. Keys are builtin names, values their expected argument count.
type BuiltinOverride struct {
	Builtins map[string]int `json:"builtins"`
}

// overrideSchema validates an override file before any of it is merged:
// a single required "builtins" object mapping names to integer arities.
var overrideSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"builtins"},
	Properties: map[string]*jsonschema.Schema{
		"builtins": {
			Type:                 "object",
			AdditionalProperties: &jsonschema.Schema{Type: "integer"},
		},
	},
}

// LoadOverride reads and schema-validates a builtin override file.
func LoadOverride(path string) (*BuiltinOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerr.New(cerr.KindIO, "target.LoadOverride", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, cerr.New(cerr.KindIO, "target.LoadOverride",
			fmt.Errorf("parsing %s: %w", path, err))
	}

	resolved, err := overrideSchema.Resolve(nil)
	if err != nil {
		return nil, cerr.New(cerr.KindInternal, "target.LoadOverride", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return nil, cerr.New(cerr.KindIO, "target.LoadOverride",
			fmt.Errorf("%s does not match the builtin override schema: %w", path, err))
	}

	var override BuiltinOverride
	if err := json.Unmarshal(data, &override); err != nil {
		return nil, cerr.New(cerr.KindIO, "target.LoadOverride", err)
	}
	return &override, nil
}

// Merge adds the override's builtin names to d's table. Arities in the
// override are informational for tooling; arity enforcement for the
// built-in intrinsics stays in TypeCheckBuiltin.
func (o *BuiltinOverride) Merge(d *Desc) {
	for name := range o.Builtins {
		d.AddBuiltins(name)
	}
}
