package compiler

import "mcc/pkg/ctypes"

// Validate runs the three semantic sub-passes in their required order:
// resolve, loop labeling, typecheck. On success the returned tree is fully
// annotated and the symbol table is ready for TAC generation.
func Validate(prog *Program) (*Program, *ctypes.Symbols, error) {
	resolved, err := Resolve(prog)
	if err != nil {
		return nil, nil, err
	}
	labeled, err := LabelLoops(resolved)
	if err != nil {
		return nil, nil, err
	}
	return Typecheck(labeled)
}
