// symtab.go implements the symbol table and function directory. Follows
// SymbolTable.py and FunctionTable.py from the BabyDuck prototype: one
// Scope per function plus the permanent "global" scope, symbols indexed by
// both name and vdir, and a function directory keyed by name that
// re-consults the symbol table rather than duplicating symbol storage.

package ir

import (
	"fmt"
	"strings"

	"babyduck/src/ast"
)

const globalScope = "global"

// Symbol is an immutable name/type/address binding, created once when its
// declaration or parameter is visited.
type Symbol struct {
	Name       string
	Type       ast.Type
	Vdir       int
	IsParam    bool
	ParamIndex int
}

// Scope holds every symbol and (for functions) the parameter order and
// call/emit metadata for one function, or the permanent "global" scope.
type Scope struct {
	Name         string
	EntryQuad    int
	byName       map[string]*Symbol
	byVdir       map[int]*Symbol
	ParamList    []*Symbol
	SegmentSizes SegmentSizes
}

// Symbols returns every symbol declared directly in this scope (not
// including parameters' and locals' enclosing global scope), for bundling
// and the debug dump.
func (sc *Scope) Symbols() []*Symbol {
	syms := make([]*Symbol, 0, len(sc.byName))
	for _, s := range sc.byName {
		syms = append(syms, s)
	}
	return syms
}

func newScope(name string) *Scope {
	return &Scope{
		Name:   name,
		byName: make(map[string]*Symbol),
		byVdir: make(map[int]*Symbol),
	}
}

// RedeclarationError reports a name already bound in a scope.
type RedeclarationError struct {
	Name  string
	Scope string
}

func (e *RedeclarationError) Error() string {
	return "redeclaration of \"" + e.Name + "\" in scope \"" + e.Scope + "\""
}

// UndeclaredError reports a name with no binding reachable from the current
// scope.
type UndeclaredError struct {
	Name string
}

func (e *UndeclaredError) Error() string {
	return "undeclared identifier \"" + e.Name + "\""
}

// UndefinedFunction reports a call to a name with no entry in the function
// directory.
type UndefinedFunction struct {
	Name string
}

func (e *UndefinedFunction) Error() string {
	return "undefined function \"" + e.Name + "\""
}

// SymbolTable owns every Scope, the memory manager, and the function
// directory in one value, the single owner that breaks the otherwise
// circular scope/symbol/function-directory dependency.
type SymbolTable struct {
	mem    *MemoryManager
	scopes map[string]*Scope
	funcs  map[string]*Scope // function directory: name -> its scope
}

// NewSymbolTable returns a table seeded with the permanent "global" scope.
func NewSymbolTable(mem *MemoryManager) *SymbolTable {
	st := &SymbolTable{
		mem:    mem,
		scopes: make(map[string]*Scope),
		funcs:  make(map[string]*Scope),
	}
	st.scopes[globalScope] = newScope(globalScope)
	return st
}

// AddGlobal declares a global variable.
func (st *SymbolTable) AddGlobal(name string, typ ast.Type) (*Symbol, error) {
	return st.addVar(st.scopes[globalScope], name, typ, segmentFor(typ, false))
}

// AddLocal declares a function-local variable in scopeName.
func (st *SymbolTable) AddLocal(name string, typ ast.Type, scopeName string) (*Symbol, error) {
	sc, ok := st.scopes[scopeName]
	if !ok {
		return nil, &UndefinedFunction{Name: scopeName}
	}
	return st.addVar(sc, name, typ, segmentFor(typ, true))
}

func (st *SymbolTable) addVar(sc *Scope, name string, typ ast.Type, seg Segment) (*Symbol, error) {
	if _, exists := sc.byName[name]; exists {
		return nil, &RedeclarationError{Name: name, Scope: sc.Name}
	}
	vdir, err := st.mem.Allocate(seg)
	if err != nil {
		return nil, err
	}
	sym := &Symbol{Name: name, Type: typ, Vdir: vdir}
	sc.byName[name] = sym
	sc.byVdir[vdir] = sym
	return sym, nil
}

// AddParam declares the index-th parameter of scopeName, a function scope.
func (st *SymbolTable) AddParam(name string, typ ast.Type, scopeName string, index int) (*Symbol, error) {
	sc, ok := st.scopes[scopeName]
	if !ok {
		return nil, &UndefinedFunction{Name: scopeName}
	}
	if _, exists := sc.byName[name]; exists {
		return nil, &RedeclarationError{Name: name, Scope: sc.Name}
	}
	vdir, err := st.mem.Allocate(segmentFor(typ, true))
	if err != nil {
		return nil, err
	}
	sym := &Symbol{Name: name, Type: typ, Vdir: vdir, IsParam: true, ParamIndex: index}
	sc.byName[name] = sym
	sc.byVdir[vdir] = sym
	sc.ParamList = append(sc.ParamList, sym)
	return sym, nil
}

// Resolve looks up name first in currentScope, then in "global".
func (st *SymbolTable) Resolve(name, currentScope string) (*Symbol, error) {
	if sc, ok := st.scopes[currentScope]; ok {
		if sym, ok := sc.byName[name]; ok {
			return sym, nil
		}
	}
	if sym, ok := st.scopes[globalScope].byName[name]; ok {
		return sym, nil
	}
	return nil, &UndeclaredError{Name: name}
}

// AddFunction registers a new function scope and its parameters. Fails with
// RedeclarationError if the name collides with an existing function or
// global variable.
func (st *SymbolTable) AddFunction(name string, params []*ast.Param, entryQuad int) (*Scope, error) {
	if _, exists := st.funcs[name]; exists {
		return nil, &RedeclarationError{Name: name, Scope: globalScope}
	}
	if _, exists := st.scopes[globalScope].byName[name]; exists {
		return nil, &RedeclarationError{Name: name, Scope: globalScope}
	}
	sc := newScope(name)
	sc.EntryQuad = entryQuad
	st.scopes[name] = sc
	st.funcs[name] = sc

	for i, p := range params {
		if _, err := st.AddParam(p.Name, p.Type, name, i); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

// FinalizeFunction snapshots the memory manager's current local/temp
// cursors into the function's scope, called once its body has been fully
// visited.
func (st *SymbolTable) FinalizeFunction(name string) error {
	sc, ok := st.funcs[name]
	if !ok {
		return &UndefinedFunction{Name: name}
	}
	sc.SegmentSizes = st.mem.SegmentSizes()
	return nil
}

// FinalizeGlobal snapshots the memory manager's current local/temp cursors
// into the permanent "global" scope, the same way FinalizeFunction does for
// a declared function, called once the top-level body has been fully
// visited. Code compiled directly under "global" (the top-level body) has
// no LOCAL_* usage of its own but does allocate TEMP_INT/TEMP_FLOAT for its
// expressions, so the VM's global activation record needs this snapshot to
// size those segments.
func (st *SymbolTable) FinalizeGlobal() {
	st.scopes[globalScope].SegmentSizes = st.mem.SegmentSizes()
}

// GlobalSegmentSizes returns the "global" scope's snapshot recorded by
// FinalizeGlobal, for bundling and direct-to-VM wiring.
func (st *SymbolTable) GlobalSegmentSizes() SegmentSizes {
	return st.scopes[globalScope].SegmentSizes
}

// LookupFunction returns the scope of a declared function, or
// UndefinedFunction if name was never registered with AddFunction.
func (st *SymbolTable) LookupFunction(name string) (*Scope, error) {
	sc, ok := st.funcs[name]
	if !ok {
		return nil, &UndefinedFunction{Name: name}
	}
	return sc, nil
}

// Scope returns the named scope (including "global"), or nil if absent.
func (st *SymbolTable) Scope(name string) *Scope {
	return st.scopes[name]
}

// Functions returns every function scope, for bundling and the dump.
func (st *SymbolTable) Functions() map[string]*Scope {
	return st.funcs
}

// String renders every scope and its symbols, for -v/--verbose debugging.
// Follows SymbolTable.to_string in the BabyDuck Python prototype.
func (st *SymbolTable) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, "symbol table:")
	for _, name := range st.scopeNames() {
		sc := st.scopes[name]
		fmt.Fprintf(&b, "  scope %q entry=%d\n", sc.Name, sc.EntryQuad)
		for _, sym := range sc.Symbols() {
			role := "var"
			if sym.IsParam {
				role = fmt.Sprintf("param#%d", sym.ParamIndex)
			}
			fmt.Fprintf(&b, "    %-12s %-6s vdir=%d (%s)\n", sym.Name, sym.Type, sym.Vdir, role)
		}
	}
	return b.String()
}

func (st *SymbolTable) scopeNames() []string {
	names := make([]string, 0, len(st.scopes))
	names = append(names, globalScope)
	for name := range st.scopes {
		if name != globalScope {
			names = append(names, name)
		}
	}
	return names
}

func segmentFor(typ ast.Type, local bool) Segment {
	switch {
	case !local && typ == ast.Int:
		return GlobalInt
	case !local && typ == ast.Float:
		return GlobalFloat
	case local && typ == ast.Int:
		return LocalInt
	default:
		return LocalFloat
	}
}
