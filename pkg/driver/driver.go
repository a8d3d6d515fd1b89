// Package driver runs the compiler pipeline end to end and knows where to
// stop for each inspection stage.
package driver

import (
	"fmt"
	"strings"

	"mcc/pkg/compiler"
	"mcc/pkg/tacky"
	"mcc/pkg/x64"
)

// Stage names the last pass to run. Every stage before it still runs, and
// the first error anywhere aborts the pipeline.
type Stage int

const (
	StageLex Stage = iota
	StageParse
	StageValidate
	StageTacky
	StageCodegen
	StageEmit
)

// Options configures a compilation.
type Options struct {
	Stage    Stage
	Platform x64.Platform
}

// Compile runs src through the pipeline up to opts.Stage and returns that
// stage's textual artifact: a token listing, an AST dump, the symbol table,
// the IR listing, or assembly text. StageCodegen returns no text; it exists
// to exercise lowering without emitting.
func Compile(src string, opts Options) (string, error) {
	tokens, err := compiler.Lex(src)
	if err != nil {
		return "", err
	}
	if opts.Stage == StageLex {
		var b strings.Builder
		for _, tok := range tokens {
			fmt.Fprintf(&b, "%s\n", tok)
		}
		return b.String(), nil
	}

	prog, err := compiler.Parse(tokens, src)
	if err != nil {
		return "", err
	}
	if opts.Stage == StageParse {
		return compiler.Dump(prog), nil
	}

	prog, syms, err := compiler.Validate(prog)
	if err != nil {
		return "", err
	}
	if opts.Stage == StageValidate {
		return compiler.Dump(prog) + "\n" + syms.String(), nil
	}

	ir, err := tacky.Generate(prog, syms)
	if err != nil {
		return "", err
	}
	if opts.Stage == StageTacky {
		return ir.String(), nil
	}

	asm, backSyms, err := x64.Lower(ir, syms)
	if err != nil {
		return "", err
	}
	if opts.Stage == StageCodegen {
		return "", nil
	}

	return x64.Emit(asm, backSyms, opts.Platform), nil
}
