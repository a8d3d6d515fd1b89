package driver

import (
	"strings"
	"testing"

	"mcc/pkg/x64"
)

func TestCompileStages(t *testing.T) {
	src := "int main(void) { return 42; }"

	t.Run("Lex", func(t *testing.T) {
		out, err := Compile(src, Options{Stage: StageLex})
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
		if len(lines) != 11 {
			t.Errorf("token listing has %d lines, want 11 (EOF included):\n%s", len(lines), out)
		}
		if !strings.Contains(out, "RETURN") || !strings.Contains(out, "CONST_INT") {
			t.Errorf("token listing missing expected kinds:\n%s", out)
		}
	})

	t.Run("Parse", func(t *testing.T) {
		out, err := Compile(src, Options{Stage: StageParse})
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		if !strings.Contains(out, "main") || !strings.Contains(out, "return 42;") {
			t.Errorf("AST dump missing expected nodes:\n%s", out)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		out, err := Compile(src, Options{Stage: StageValidate})
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		if !strings.Contains(out, "main") {
			t.Errorf("validate dump missing the symbol table:\n%s", out)
		}
	})

	t.Run("Tacky", func(t *testing.T) {
		out, err := Compile(src, Options{Stage: StageTacky})
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		if !strings.Contains(out, "main") || !strings.Contains(out, "ret 42") {
			t.Errorf("IR listing missing expected content:\n%s", out)
		}
	})

	t.Run("Codegen Produces No Text", func(t *testing.T) {
		out, err := Compile(src, Options{Stage: StageCodegen})
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		if out != "" {
			t.Errorf("codegen stage produced output:\n%s", out)
		}
	})

	t.Run("Emit", func(t *testing.T) {
		out, err := Compile(src, Options{Stage: StageEmit, Platform: x64.Linux})
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		for _, want := range []string{"\t.globl main", "main:", "\tmovl $42, %eax", "\tret"} {
			if !strings.Contains(out, want) {
				t.Errorf("assembly missing %q:\n%s", want, out)
			}
		}
	})
}

func TestCompileAbortsOnFirstError(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Lex Error", "int main(void) { return 123abc; }"},
		{"Parse Error", "int main(void) { return 42 }"},
		{"Resolve Error", "int main(void) { return x; }"},
		{"Loop Error", "int main(void) { break; }"},
		{"Type Error", "int main(void) { extern int x = 3; return x; }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compile(tt.input, Options{Stage: StageEmit}); err == nil {
				t.Errorf("Compile(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestCompilePrograms(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name: "Mixed Width Arithmetic",
			input: `static unsigned long total = 0ul;
long scale(int x, long factor) { return x * factor; }
int main(void) {
	for (int i = 0; i < 10; i = i + 1) {
		total = total + (unsigned long) scale(i, 3l);
	}
	return (int) total;
}`,
		},
		{
			name: "Loops And Conditionals",
			input: `int collatz_steps(unsigned int n) {
	int steps = 0;
	while (n != 1u) {
		if (n % 2u == 0u)
			n = n / 2u;
		else
			n = 3u * n + 1u;
		steps = steps + 1;
	}
	return steps;
}
int main(void) { return collatz_steps(27u); }`,
		},
		{
			name: "Shifts And Bitwise",
			input: `int main(void) {
	unsigned long bits = 1ul << 40;
	long mask = (long) (bits | 255ul);
	do {
		mask = mask >> 1;
	} while (mask > 65536l);
	return (int) (mask & 1023l);
}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compile(tt.input, Options{Stage: StageEmit, Platform: x64.Linux})
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if !strings.Contains(out, "main:") {
				t.Errorf("assembly missing main:\n%s", out)
			}
		})
	}
}

func TestCompileEmitsDataBeforeText(t *testing.T) {
	src := "long counter = 7l; int main(void) { counter = counter + 1l; return (int) counter; }"
	out, err := Compile(src, Options{Stage: StageEmit, Platform: x64.Linux})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	data := strings.Index(out, ".data")
	text := strings.Index(out, ".text")
	if data < 0 || text < 0 {
		t.Fatalf("assembly missing a .data or .text section:\n%s", out)
	}
	if data > text {
		t.Errorf(".data section at offset %d follows .text at %d:\n%s", data, text, out)
	}
}
