package ir

import (
	"testing"

	"babyduck/src/ast"
)

func TestResultArithmetic(t *testing.T) {
	cases := []struct {
		left, right ast.Type
		op          Op
		want        ast.Type
		ok          bool
	}{
		{ast.Int, ast.Int, OpPlus, ast.Int, true},
		{ast.Int, ast.Float, OpPlus, ast.Float, true},
		{ast.Float, ast.Int, OpMult, ast.Float, true},
		{ast.Float, ast.Float, OpDiv, ast.Float, true},
	}
	for _, c := range cases {
		got, ok := Result(c.left, c.right, c.op)
		if ok != c.ok || got != c.want {
			t.Errorf("Result(%s, %s, %v) = (%s, %v), want (%s, %v)", c.left, c.right, c.op, got, ok, c.want, c.ok)
		}
	}
}

func TestResultRelationalAlwaysInt(t *testing.T) {
	for _, op := range []Op{OpLessThan, OpGreaterThan, OpNotEqual} {
		for _, left := range []ast.Type{ast.Int, ast.Float} {
			for _, right := range []ast.Type{ast.Int, ast.Float} {
				got, ok := Result(left, right, op)
				if !ok || got != ast.Int {
					t.Errorf("Result(%s, %s, %v) = (%s, %v), want (int, true)", left, right, op, got, ok)
				}
			}
		}
	}
}

func TestResultAssignIsNeverLegalViaResult(t *testing.T) {
	if _, ok := Result(ast.Int, ast.Int, OpAssign); ok {
		t.Error("Result with OpAssign should always report illegal; use Assignable instead")
	}
}

func TestAssignable(t *testing.T) {
	for _, from := range []ast.Type{ast.Int, ast.Float} {
		for _, to := range []ast.Type{ast.Int, ast.Float} {
			if !Assignable(from, to) {
				t.Errorf("Assignable(%s, %s) = false, want true", from, to)
			}
		}
	}
}

func TestOpFromSource(t *testing.T) {
	cases := map[string]Op{
		"+":  OpPlus,
		"-":  OpMinus,
		"*":  OpMult,
		"/":  OpDiv,
		"<":  OpLessThan,
		">":  OpGreaterThan,
		"!=": OpNotEqual,
	}
	for tok, want := range cases {
		got, ok := OpFromSource(tok)
		if !ok || got != want {
			t.Errorf("OpFromSource(%q) = (%v, %v), want (%v, true)", tok, got, ok, want)
		}
	}
	if _, ok := OpFromSource("="); ok {
		t.Error(`OpFromSource("=") should report false, "=" is not a cube operator`)
	}
}
