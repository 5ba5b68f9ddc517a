package ir

import "testing"

func TestVerifyAcceptsAGeneratedProgram(t *testing.T) {
	mem := NewMemoryManager()
	st := NewSymbolTable(mem)
	g := &generator{mem: mem, st: st, scope: globalScope}

	g.emit(newQuad(GOTO, globalScope))
	g.quads[0].Arg1 = 0 // main starts immediately; nothing else to skip
	g.emit(newQuad(END, globalScope))

	if err := Verify(g.quads, st.Functions(), 1); err != nil {
		t.Fatalf("Verify rejected a well-formed program: %v", err)
	}
}

func TestVerifyRejectsOutOfRangeVdir(t *testing.T) {
	quads := []Quad{
		{Op: PRINT, Arg1: 999999, Arg2: noArg, Result: noArg, Scope: globalScope},
		{Op: END, Arg1: noArg, Arg2: noArg, Result: noArg, Scope: globalScope},
	}
	if err := Verify(quads, map[string]*Scope{}, 1); err == nil {
		t.Fatal("expected Verify to reject an out-of-range vdir")
	}
}

func TestVerifyRejectsFunctionMissingTerminator(t *testing.T) {
	mem := NewMemoryManager()
	one, _ := mem.InternInt(1)
	quads := []Quad{
		{Op: PRINT, Arg1: one, Arg2: noArg, Result: noArg, Scope: "f"},
		// no ENDFUNC for scope "f"
		{Op: END, Arg1: noArg, Arg2: noArg, Result: noArg, Scope: globalScope},
	}
	if err := Verify(quads, map[string]*Scope{}, 1); err == nil {
		t.Fatal("expected Verify to reject a function region with no ENDFUNC")
	}
}

func TestVerifyAcceptsBranchTargetsAsQuadIndices(t *testing.T) {
	mem := NewMemoryManager()
	one, _ := mem.InternInt(1)
	quads := []Quad{
		{Op: GOTOF, Arg1: one, Arg2: 2, Result: noArg, Scope: globalScope},
		{Op: GOTO, Arg1: 2, Arg2: noArg, Result: noArg, Scope: globalScope},
		{Op: END, Arg1: noArg, Arg2: noArg, Result: noArg, Scope: globalScope},
	}
	if err := Verify(quads, map[string]*Scope{}, 1); err != nil {
		t.Fatalf("Verify rejected valid branch-target quad indices: %v", err)
	}
}

func TestVerifyRejectsCallArityMismatch(t *testing.T) {
	mem := NewMemoryManager()
	one, _ := mem.InternInt(1)
	funcs := map[string]*Scope{
		"f": {Name: "f", ParamList: []*Symbol{{Name: "n", Vdir: 3000}, {Name: "m", Vdir: 3001}}},
	}
	quads := []Quad{
		{Op: ALLOC, Arg1: noArg, Arg2: noArg, Result: noArg, Label: "f", Scope: globalScope},
		{Op: PARAM, Arg1: one, Arg2: noArg, Result: noArg, Scope: globalScope}, // only one PARAM, f wants two
		{Op: GOSUB, Arg1: 0, Arg2: noArg, Result: noArg, Label: "f", Scope: globalScope},
		{Op: END, Arg1: noArg, Arg2: noArg, Result: noArg, Scope: globalScope},
	}
	if err := Verify(quads, funcs, 1); err == nil {
		t.Fatal("expected Verify to reject a call passing fewer arguments than f declares")
	}
}

func TestVerifyAcceptsMatchingCallArity(t *testing.T) {
	mem := NewMemoryManager()
	one, _ := mem.InternInt(1)
	two, _ := mem.InternInt(2)
	funcs := map[string]*Scope{
		"f": {Name: "f", ParamList: []*Symbol{{Name: "n", Vdir: 3000}, {Name: "m", Vdir: 3001}}},
	}
	quads := []Quad{
		{Op: ALLOC, Arg1: noArg, Arg2: noArg, Result: noArg, Label: "f", Scope: globalScope},
		{Op: PARAM, Arg1: one, Arg2: noArg, Result: noArg, Scope: globalScope},
		{Op: PARAM, Arg1: two, Arg2: noArg, Result: noArg, Scope: globalScope},
		{Op: GOSUB, Arg1: 0, Arg2: noArg, Result: noArg, Label: "f", Scope: globalScope},
		{Op: END, Arg1: noArg, Arg2: noArg, Result: noArg, Scope: globalScope},
	}
	if err := Verify(quads, funcs, 1); err != nil {
		t.Fatalf("Verify rejected a call with matching arity: %v", err)
	}
}

func TestVerifyRejectsCallToUndefinedFunction(t *testing.T) {
	quads := []Quad{
		{Op: ALLOC, Arg1: noArg, Arg2: noArg, Result: noArg, Label: "ghost", Scope: globalScope},
		{Op: GOSUB, Arg1: 0, Arg2: noArg, Result: noArg, Label: "ghost", Scope: globalScope},
		{Op: END, Arg1: noArg, Arg2: noArg, Result: noArg, Scope: globalScope},
	}
	if err := Verify(quads, map[string]*Scope{}, 1); err == nil {
		t.Fatal("expected Verify to reject a call to a function absent from the directory")
	}
}

func TestVerifyParallelAgreesWithSequential(t *testing.T) {
	mem := NewMemoryManager()
	one, _ := mem.InternInt(1)
	quads := []Quad{
		{Op: PRINT, Arg1: one, Arg2: noArg, Result: noArg, Scope: "f"},
		{Op: ENDFUNC, Arg1: noArg, Arg2: noArg, Result: noArg, Scope: "f"},
		{Op: PRINT, Arg1: one, Arg2: noArg, Result: noArg, Scope: globalScope},
		{Op: END, Arg1: noArg, Arg2: noArg, Result: noArg, Scope: globalScope},
	}
	seqErr := Verify(quads, map[string]*Scope{}, 1)
	parErr := Verify(quads, map[string]*Scope{}, 4)
	if seqErr != nil || parErr != nil {
		t.Fatalf("sequential=%v parallel=%v, want both nil", seqErr, parErr)
	}
}
