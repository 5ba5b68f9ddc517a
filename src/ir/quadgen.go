// quadgen.go implements the quadruple generator: the AST walk that
// type-checks via the semantic cube, allocates vdirs via the memory manager
// and symbol table, and emits quads with backpatching for control flow.
// Follows BabyInterpreter.py's dispatch-by-node-kind shape, kept the
// per-node-kind dispatch, replaced direct evaluation with quad emission,
// since that prototype is a tree-walking interpreter and this compiles to
// a quadruple stream instead.

package ir

import (
	"fmt"

	"babyduck/src/ast"
)

// Result is everything Generate hands downstream to bundling and the VM.
type Result struct {
	Quads []Quad
	Mem   *MemoryManager
	ST    *SymbolTable
}

// generator holds the mutable state threaded through one AST walk: the
// growing quad list and the name of the scope currently being compiled.
type generator struct {
	mem   *MemoryManager
	st    *SymbolTable
	quads []Quad
	scope string
}

// Generate compiles prog into a flat quad program. Any semantic error
// aborts immediately with a CompileError naming its kind and the offending
// name or types; the error carries no source position. No quads are
// returned on error.
func Generate(prog *ast.Program) (*Result, error) {
	mem := NewMemoryManager()
	st := NewSymbolTable(mem)
	g := &generator{mem: mem, st: st, scope: globalScope}

	gotoMain := g.emit(newQuad(GOTO, globalScope))

	for _, v := range prog.Vars {
		for _, name := range v.Names {
			if _, err := st.AddGlobal(name, v.Type); err != nil {
				return nil, wrap(err)
			}
		}
	}

	for _, fn := range prog.Funcs {
		if err := g.genFunction(fn); err != nil {
			return nil, wrap(err)
		}
	}

	g.quads[gotoMain].Arg1 = len(g.quads)

	g.scope = globalScope
	g.mem.ResetLocals()
	if err := g.genBody(prog.Body); err != nil {
		return nil, wrap(err)
	}
	st.FinalizeGlobal()
	g.emit(newQuad(END, globalScope))

	return &Result{Quads: g.quads, Mem: mem, ST: st}, nil
}

func (g *generator) emit(q Quad) int {
	g.quads = append(g.quads, q)
	return len(g.quads) - 1
}

func (g *generator) genFunction(fn *ast.Function) error {
	g.mem.ResetLocals()
	entryQuad := len(g.quads)
	if _, err := g.st.AddFunction(fn.ID, fn.Params, entryQuad); err != nil {
		return err
	}
	g.scope = fn.ID

	for _, v := range fn.Vars {
		for _, name := range v.Names {
			if _, err := g.st.AddLocal(name, v.Type, fn.ID); err != nil {
				return err
			}
		}
	}

	if err := g.genBody(fn.Body); err != nil {
		return err
	}
	if err := g.st.FinalizeFunction(fn.ID); err != nil {
		return err
	}
	g.emit(newQuad(ENDFUNC, fn.ID))
	g.scope = globalScope
	return nil
}

func (g *generator) genBody(b *ast.Body) error {
	for _, s := range b.Stmts {
		if err := g.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) genStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.Assign:
		return g.genAssign(n)
	case *ast.Print:
		return g.genPrint(n)
	case *ast.Condition:
		return g.genCondition(n)
	case *ast.Cycle:
		return g.genCycle(n)
	case *ast.FCall:
		return g.genCall(n)
	default:
		return fmt.Errorf("ir: unknown statement kind %T", s)
	}
}

func (g *generator) genAssign(a *ast.Assign) error {
	rhs, rhsType, err := g.lowerExpr(a.Expr)
	if err != nil {
		return err
	}
	sym, err := g.st.Resolve(a.ID, g.scope)
	if err != nil {
		return err
	}
	if !Assignable(rhsType, sym.Type) {
		return &TypeError{Left: sym.Type, Right: rhsType, IsAssign: true}
	}
	g.emit(Quad{Op: ASSIGN, Arg1: sym.Vdir, Arg2: rhs, Result: noArg, Scope: g.scope})
	return nil
}

func (g *generator) genPrint(p *ast.Print) error {
	for _, item := range p.Items {
		if item.IsStr {
			vdir, err := g.mem.InternString(item.Str)
			if err != nil {
				return err
			}
			g.emit(Quad{Op: PRINT, Arg1: vdir, Arg2: noArg, Result: noArg, Scope: g.scope})
			continue
		}
		v, _, err := g.lowerExpr(item.Expr)
		if err != nil {
			return err
		}
		g.emit(Quad{Op: PRINT, Arg1: v, Arg2: noArg, Result: noArg, Scope: g.scope})
	}
	return nil
}

func (g *generator) genCondition(c *ast.Condition) error {
	cond, condType, err := g.lowerExpr(c.Cond)
	if err != nil {
		return err
	}
	if condType != ast.Int {
		return &NonIntCondition{Got: condType}
	}
	p := g.emit(Quad{Op: GOTOF, Arg1: cond, Arg2: noArg, Result: noArg, Scope: g.scope})

	if err := g.genBody(c.IfBody); err != nil {
		return err
	}
	if c.ElseBody != nil {
		q := g.emit(Quad{Op: GOTO, Arg1: noArg, Arg2: noArg, Result: noArg, Scope: g.scope})
		g.quads[p].Arg2 = len(g.quads)
		if err := g.genBody(c.ElseBody); err != nil {
			return err
		}
		g.quads[q].Arg1 = len(g.quads)
	} else {
		g.quads[p].Arg2 = len(g.quads)
	}
	return nil
}

func (g *generator) genCycle(c *ast.Cycle) error {
	loopStart := len(g.quads)
	cond, condType, err := g.lowerExpr(c.Cond)
	if err != nil {
		return err
	}
	if condType != ast.Int {
		return &NonIntCondition{Got: condType}
	}
	p := g.emit(Quad{Op: GOTOF, Arg1: cond, Arg2: noArg, Result: noArg, Scope: g.scope})
	if err := g.genBody(c.Body); err != nil {
		return err
	}
	g.emit(Quad{Op: GOTO, Arg1: loopStart, Arg2: noArg, Result: noArg, Scope: g.scope})
	g.quads[p].Arg2 = len(g.quads)
	return nil
}

func (g *generator) genCall(c *ast.FCall) error {
	sc, err := g.st.LookupFunction(c.ID)
	if err != nil {
		return err
	}
	if len(c.Args) != len(sc.ParamList) {
		return &ArityError{Function: c.ID, Want: len(sc.ParamList), Got: len(c.Args)}
	}
	g.emit(Quad{Op: ALLOC, Arg1: noArg, Arg2: noArg, Result: noArg, Label: c.ID, Scope: g.scope})

	for i, argExpr := range c.Args {
		v, vType, err := g.lowerExpr(argExpr)
		if err != nil {
			return err
		}
		param := sc.ParamList[i]
		if !Assignable(vType, param.Type) {
			return &TypeError{Left: param.Type, Right: vType, IsAssign: true}
		}
		send := v
		if vType != param.Type {
			tmp, err := g.mem.Allocate(segmentForTemp(param.Type))
			if err != nil {
				return err
			}
			g.emit(Quad{Op: ASSIGN, Arg1: tmp, Arg2: v, Result: noArg, Scope: g.scope})
			send = tmp
		}
		g.emit(Quad{Op: PARAM, Arg1: send, Arg2: noArg, Result: noArg, Scope: g.scope})
	}
	g.emit(Quad{Op: GOSUB, Arg1: sc.EntryQuad, Arg2: noArg, Result: noArg, Label: c.ID, Scope: g.scope})
	return nil
}

// lowerExpr lowers an Expression (an optional single relational comparison
// between two Exps) to a vdir, returning its value-type.
func (g *generator) lowerExpr(e *ast.Expression) (int, ast.Type, error) {
	left, leftType, err := g.lowerExp(e.Left)
	if err != nil {
		return 0, 0, err
	}
	if e.Right == nil {
		return left, leftType, nil
	}
	right, rightType, err := g.lowerExp(e.Right)
	if err != nil {
		return 0, 0, err
	}
	op, ok := OpFromSource(e.Op)
	if !ok {
		return 0, 0, fmt.Errorf("ir: unknown relational operator %q", e.Op)
	}
	if _, ok := Result(leftType, rightType, op); !ok {
		return 0, 0, &TypeError{Op: e.Op, Left: leftType, Right: rightType}
	}
	dst, err := g.mem.Allocate(TempInt)
	if err != nil {
		return 0, 0, err
	}
	g.emit(Quad{Op: opcodeFor(op), Arg1: left, Arg2: right, Result: dst, Scope: g.scope})
	return dst, ast.Int, nil
}

// lowerExp folds a sequence of +/- over terms, left to right.
func (g *generator) lowerExp(e *ast.Exp) (int, ast.Type, error) {
	acc, accType, err := g.lowerTerm(e.Left)
	if err != nil {
		return 0, 0, err
	}
	for _, step := range e.Ops {
		operand, operandType, err := g.lowerTerm(step.Operand)
		if err != nil {
			return 0, 0, err
		}
		op, ok := OpFromSource(step.Op)
		if !ok {
			return 0, 0, fmt.Errorf("ir: unknown operator %q", step.Op)
		}
		rt, ok := Result(accType, operandType, op)
		if !ok {
			return 0, 0, &TypeError{Op: step.Op, Left: accType, Right: operandType}
		}
		dst, err := g.mem.Allocate(segmentForTemp(rt))
		if err != nil {
			return 0, 0, err
		}
		g.emit(Quad{Op: opcodeFor(op), Arg1: acc, Arg2: operand, Result: dst, Scope: g.scope})
		acc, accType = dst, rt
	}
	return acc, accType, nil
}

// lowerTerm folds a sequence of */÷ over factors, left to right.
func (g *generator) lowerTerm(t *ast.Term) (int, ast.Type, error) {
	acc, accType, err := g.lowerFactor(t.Left)
	if err != nil {
		return 0, 0, err
	}
	for _, step := range t.Ops {
		operand, operandType, err := g.lowerFactor(step.Operand)
		if err != nil {
			return 0, 0, err
		}
		op, ok := OpFromSource(step.Op)
		if !ok {
			return 0, 0, fmt.Errorf("ir: unknown operator %q", step.Op)
		}
		rt, ok := Result(accType, operandType, op)
		if !ok {
			return 0, 0, &TypeError{Op: step.Op, Left: accType, Right: operandType}
		}
		dst, err := g.mem.Allocate(segmentForTemp(rt))
		if err != nil {
			return 0, 0, err
		}
		g.emit(Quad{Op: opcodeFor(op), Arg1: acc, Arg2: operand, Result: dst, Scope: g.scope})
		acc, accType = dst, rt
	}
	return acc, accType, nil
}

func (g *generator) lowerFactor(f *ast.Factor) (int, ast.Type, error) {
	switch f.Kind {
	case ast.FactorIdent:
		sym, err := g.st.Resolve(f.Ident, g.scope)
		if err != nil {
			return 0, 0, err
		}
		if f.Neg {
			return g.negate(sym.Vdir, sym.Type)
		}
		return sym.Vdir, sym.Type, nil

	case ast.FactorInt:
		v := f.Int
		if f.Neg {
			v = -v
		}
		vdir, err := g.mem.InternInt(v)
		return vdir, ast.Int, err

	case ast.FactorFloat:
		v := f.Float
		if f.Neg {
			v = -v
		}
		vdir, err := g.mem.InternFloat(v)
		return vdir, ast.Float, err

	case ast.FactorExpr:
		vdir, typ, err := g.lowerExpr(f.Sub)
		if err != nil {
			return 0, 0, err
		}
		if f.Neg {
			return g.negate(vdir, typ)
		}
		return vdir, typ, nil

	default:
		return 0, 0, fmt.Errorf("ir: unknown factor kind %v", f.Kind)
	}
}

// negate materialises unary minus applied to a non-literal factor (an
// identifier or a parenthesised sub-expression) as "0 - v", since only bare
// numeric literals can be negated by interning the negated value directly.
func (g *generator) negate(vdir int, typ ast.Type) (int, ast.Type, error) {
	var zero int
	var err error
	if typ == ast.Float {
		zero, err = g.mem.InternFloat(0)
	} else {
		zero, err = g.mem.InternInt(0)
	}
	if err != nil {
		return 0, 0, err
	}
	dst, err := g.mem.Allocate(segmentForTemp(typ))
	if err != nil {
		return 0, 0, err
	}
	g.emit(Quad{Op: MINUS, Arg1: zero, Arg2: vdir, Result: dst, Scope: g.scope})
	return dst, typ, nil
}

func segmentForTemp(typ ast.Type) Segment {
	if typ == ast.Float {
		return TempFloat
	}
	return TempInt
}

func opcodeFor(op Op) Opcode {
	switch op {
	case OpPlus:
		return PLUS
	case OpMinus:
		return MINUS
	case OpMult:
		return MULT
	case OpDiv:
		return DIV
	case OpLessThan:
		return LESS_THAN
	case OpGreaterThan:
		return GREATER_THAN
	case OpNotEqual:
		return NOT_EQUAL
	default:
		return ASSIGN
	}
}
