package target

import "fmt"

// ParamType is the slice of C type information the ABI policy hooks need:
// size and alignment in bytes, whether the type is an aggregate
// (struct/union), and whether the parameter is declared read-only
// (const). The full type representation belongs to the external semantic
// checker; hooks only ever look at these four facts.
type ParamType struct {
	Size      int
	Align     int
	Aggregate bool
	ReadOnly  bool
}

// Passing says how one argument travels to the callee.
type Passing uint8

const (
	// PassInReg passes the value directly in a register slot.
	PassInReg Passing = iota
	// PassByRef passes the address of the caller's existing storage.
	PassByRef
	// PassByRefCopy copies the value into a caller-local slot and passes
	// that slot's address, so the callee cannot observe later mutation.
	PassByRefCopy
)

// Prototype is the ABI-level shape of a function signature after
// classification: whether the return value travels through a hidden
// pointer parameter, and how each declared parameter is passed.
type Prototype struct {
	AggregateReturn bool
	Params          []Passing
}

// BackendHooks is the closed record of backend-facing ABI policy a target
// supplies when a backend module is attached. It is nil on a descriptor
// when the build carries no backend.
type BackendHooks struct {
	CreatePrototype  func(ret ParamType, params []ParamType) Prototype
	PassReturnViaReg func(t ParamType) bool
	PassParameter    func(t ParamType, isVararg bool) Passing
	CompileBuiltin   func(name string) error
}

// win64ShouldPassViaReg: on Win64, aggregates sized 1, 2, 4 or 8 bytes
// and all scalars are passed in registers; every other aggregate goes by
// hidden pointer. No aggregate wider than 8 bytes is register-eligible;
// scalars are register-eligible whatever their Size.
func win64ShouldPassViaReg(t ParamType) bool {
	if t.Aggregate {
		switch t.Size {
		case 1, 2, 4, 8:
			return true
		default:
			return false
		}
	}
	return true
}

func win64CreatePrototype(ret ParamType, params []ParamType) Prototype {
	proto := Prototype{
		AggregateReturn: !win64ShouldPassViaReg(ret),
		Params:          make([]Passing, len(params)),
	}
	for i, p := range params {
		proto.Params[i] = win64PassParameter(p, false)
	}
	return proto
}

// win64PassParameter classifies one argument. Register-ineligible
// aggregates are passed by reference; if the parameter is not read-only
// the caller first copies it into a local slot so the callee's view is
// stable. Variadic float arguments additionally travel as their integer
// bit pattern on this ABI; that bitcast happens in the backend's value
// lowering, which this module does not carry, so isVararg does not change
// the classification here.
func win64PassParameter(t ParamType, isVararg bool) Passing {
	if win64ShouldPassViaReg(t) {
		return PassInReg
	}
	if t.ReadOnly {
		return PassByRef
	}
	return PassByRefCopy
}

func win64CompileBuiltin(name string) error {
	switch name {
	case "_mm_setcsr", "_mm_getcsr":
		return nil
	default:
		return fmt.Errorf("unimplemented builtin! %s", name)
	}
}

func win64Hooks() *BackendHooks {
	return &BackendHooks{
		CreatePrototype:  win64CreatePrototype,
		PassReturnViaReg: win64ShouldPassViaReg,
		PassParameter:    win64PassParameter,
		CompileBuiltin:   win64CompileBuiltin,
	}
}
