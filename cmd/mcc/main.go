package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"mcc/pkg/driver"
	"mcc/pkg/x64"
)

func main() {
	var (
		lexOnly      = flag.Bool("lex", false, "stop after lexing and print the tokens")
		parseOnly    = flag.Bool("parse", false, "stop after parsing and print the AST")
		validateOnly = flag.Bool("validate", false, "stop after semantic analysis and print the AST and symbol table")
		tackyOnly    = flag.Bool("tacky", false, "stop after IR generation and print the IR")
		codegenOnly  = flag.Bool("codegen", false, "stop after assembly lowering without writing output")
		emitAsm      = flag.Bool("S", false, "write assembly next to the input instead of stdout")
		target       = flag.String("target", runtime.GOOS, "output conventions: linux or darwin")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: mcc [flags] file.c")
		flag.PrintDefaults()
		os.Exit(2)
	}
	input := flag.Arg(0)

	data, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read error:", err)
		os.Exit(1)
	}

	opts := driver.Options{Stage: driver.StageEmit}
	switch {
	case *lexOnly:
		opts.Stage = driver.StageLex
	case *parseOnly:
		opts.Stage = driver.StageParse
	case *validateOnly:
		opts.Stage = driver.StageValidate
	case *tackyOnly:
		opts.Stage = driver.StageTacky
	case *codegenOnly:
		opts.Stage = driver.StageCodegen
	}
	switch *target {
	case "linux":
		opts.Platform = x64.Linux
	case "darwin":
		opts.Platform = x64.Darwin
	default:
		fmt.Fprintf(os.Stderr, "unsupported target %q\n", *target)
		os.Exit(2)
	}

	out, err := driver.Compile(string(data), opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if opts.Stage == driver.StageEmit && *emitAsm {
		asmPath := strings.TrimSuffix(input, filepath.Ext(input)) + ".s"
		if err := os.WriteFile(asmPath, []byte(out), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write error:", err)
			os.Exit(1)
		}
		return
	}
	fmt.Print(out)
}
