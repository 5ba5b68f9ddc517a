// errors.go collects the compile-time error taxonomy. Each kind
// is its own exported type so callers can errors.As into the concrete kind;
// CompileError is the common interface the CLI uses to print "kind: message"
// without caring which concrete type it has.

package ir

import (
	"fmt"

	"github.com/pkg/errors"

	"babyduck/src/ast"
)

// CompileError is implemented by every compile-time error kind.
type CompileError interface {
	error
	Kind() string
}

// Kind implementations for the error types already declared alongside the
// component they originate from (UndeclaredError, RedeclarationError,
// UndefinedFunction in symtab.go; MemoryOverflow in memory.go).

func (e *UndeclaredError) Kind() string    { return "UndeclaredError" }
func (e *RedeclarationError) Kind() string { return "RedeclarationError" }
func (e *UndefinedFunction) Kind() string  { return "UndefinedFunction" }
func (e *MemoryOverflow) Kind() string     { return "MemoryOverflow" }

// TypeError reports an operator or assignment applied to incompatible
// operand types.
type TypeError struct {
	Op       string
	Left     ast.Type
	Right    ast.Type
	IsAssign bool
}

func (e *TypeError) Error() string {
	if e.IsAssign {
		return fmt.Sprintf("cannot assign %s to %s", e.Right, e.Left)
	}
	return fmt.Sprintf("operator %q is not defined for %s and %s", e.Op, e.Left, e.Right)
}

func (e *TypeError) Kind() string { return "TypeError" }

// ArityError reports a call whose argument count does not match the
// callee's parameter count.
type ArityError struct {
	Function string
	Want     int
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("function %q expects %d argument(s), got %d", e.Function, e.Want, e.Got)
}

func (e *ArityError) Kind() string { return "ArityError" }

// NonIntCondition reports an if/while condition whose type is not int.
type NonIntCondition struct {
	Got ast.Type
}

func (e *NonIntCondition) Error() string {
	return fmt.Sprintf("condition must be int, got %s", e.Got)
}

func (e *NonIntCondition) Kind() string { return "NonIntCondition" }

// wrap attaches a stack trace to err via pkg/errors at the point a semantic
// error is first raised, without losing the concrete CompileError type
// beneath it (errors.As still finds it through the wrapped chain).
func wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}
