package ir

import (
	"testing"

	"babyduck/src/ast"
)

func TestAddGlobalThenResolveFromAnyScope(t *testing.T) {
	mem := NewMemoryManager()
	st := NewSymbolTable(mem)

	sym, err := st.AddGlobal("x", ast.Int)
	if err != nil {
		t.Fatalf("AddGlobal: %v", err)
	}

	st.AddFunction("f", nil, 0)

	got, err := st.Resolve("x", "f")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != sym {
		t.Error("Resolve from a function scope should fall back to the global symbol")
	}
}

func TestAddLocalShadowsGlobalOfSameName(t *testing.T) {
	mem := NewMemoryManager()
	st := NewSymbolTable(mem)

	st.AddGlobal("x", ast.Int)
	st.AddFunction("f", nil, 0)
	local, err := st.AddLocal("x", ast.Float, "f")
	if err != nil {
		t.Fatalf("AddLocal: %v", err)
	}

	got, err := st.Resolve("x", "f")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != local {
		t.Error("Resolve inside \"f\" should prefer f's own local over the global of the same name")
	}
}

func TestResolveUndeclaredFails(t *testing.T) {
	mem := NewMemoryManager()
	st := NewSymbolTable(mem)
	st.AddFunction("f", nil, 0)

	_, err := st.Resolve("nope", "f")
	if err == nil {
		t.Fatal("expected UndeclaredError")
	}
	if _, ok := err.(*UndeclaredError); !ok {
		t.Errorf("got error of type %T, want *UndeclaredError", err)
	}
}

func TestAddVarRedeclarationFails(t *testing.T) {
	mem := NewMemoryManager()
	st := NewSymbolTable(mem)

	if _, err := st.AddGlobal("x", ast.Int); err != nil {
		t.Fatalf("AddGlobal: %v", err)
	}
	_, err := st.AddGlobal("x", ast.Float)
	if err == nil {
		t.Fatal("expected RedeclarationError")
	}
	if _, ok := err.(*RedeclarationError); !ok {
		t.Errorf("got error of type %T, want *RedeclarationError", err)
	}
}

func TestAddFunctionRegistersParamsInOrder(t *testing.T) {
	mem := NewMemoryManager()
	st := NewSymbolTable(mem)

	params := []*ast.Param{
		{Name: "a", Type: ast.Int},
		{Name: "b", Type: ast.Float},
	}
	sc, err := st.AddFunction("f", params, 10)
	if err != nil {
		t.Fatalf("AddFunction: %v", err)
	}
	if sc.EntryQuad != 10 {
		t.Errorf("EntryQuad = %d, want 10", sc.EntryQuad)
	}
	if len(sc.ParamList) != 2 || sc.ParamList[0].Name != "a" || sc.ParamList[1].Name != "b" {
		t.Fatalf("ParamList = %+v, want [a, b] in order", sc.ParamList)
	}
	if sc.ParamList[0].ParamIndex != 0 || sc.ParamList[1].ParamIndex != 1 {
		t.Errorf("ParamIndex not assigned in declaration order: %+v", sc.ParamList)
	}
}

func TestAddFunctionRedeclarationFails(t *testing.T) {
	mem := NewMemoryManager()
	st := NewSymbolTable(mem)

	if _, err := st.AddFunction("f", nil, 0); err != nil {
		t.Fatalf("AddFunction: %v", err)
	}
	if _, err := st.AddFunction("f", nil, 5); err == nil {
		t.Fatal("expected RedeclarationError for a function name reused twice")
	}
}

func TestFinalizeFunctionSnapshotsSegmentSizes(t *testing.T) {
	mem := NewMemoryManager()
	st := NewSymbolTable(mem)

	st.AddFunction("f", nil, 0)
	st.AddLocal("a", ast.Int, "f")
	st.AddLocal("b", ast.Int, "f")
	st.AddLocal("c", ast.Float, "f")

	if err := st.FinalizeFunction("f"); err != nil {
		t.Fatalf("FinalizeFunction: %v", err)
	}
	sc, _ := st.LookupFunction("f")
	if sc.SegmentSizes.LocalInt != 2 || sc.SegmentSizes.LocalFloat != 1 {
		t.Errorf("SegmentSizes = %+v, want LocalInt=2 LocalFloat=1", sc.SegmentSizes)
	}
}

func TestLookupFunctionUndefined(t *testing.T) {
	mem := NewMemoryManager()
	st := NewSymbolTable(mem)
	if _, err := st.LookupFunction("ghost"); err == nil {
		t.Fatal("expected UndefinedFunction")
	}
}

func TestSegmentForPicksSegmentByTypeAndLocality(t *testing.T) {
	cases := []struct {
		typ   ast.Type
		local bool
		want  Segment
	}{
		{ast.Int, false, GlobalInt},
		{ast.Float, false, GlobalFloat},
		{ast.Int, true, LocalInt},
		{ast.Float, true, LocalFloat},
	}
	for _, c := range cases {
		if got := segmentFor(c.typ, c.local); got != c.want {
			t.Errorf("segmentFor(%s, local=%v) = %s, want %s", c.typ, c.local, got, c.want)
		}
	}
}
