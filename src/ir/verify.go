// verify.go implements the optional, read-only post-compile consistency
// check enabled by the CLI's --jobs flag: every quad slot is a valid
// vdir/quad index/label, every function's region contains exactly one
// ENDFUNC/END terminator (control flow is not traced, so reachability of
// that terminator is not checked), and every call site passes the callee's
// declared number of arguments. Grounded on vslc's ir.ValidateTree
// (src/ir/validate.go): one goroutine per function, a sync.WaitGroup
// barrier, and util.Perror collecting errors from the workers. Unlike
// ValidateTree, Verify never mutates anything: quad generation has already
// finished and the quad list is frozen, so no util.Stack of enclosing
// scopes is needed here; each worker only needs the frozen quad slice and
// its own function's entry point.

package ir

import (
	"fmt"
	"sync"

	"babyduck/src/util"
)

// InvariantError reports a quad that violates one of the frozen-program
// invariants.
type InvariantError struct {
	QuadIndex int
	Reason    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("quad %d: %s", e.QuadIndex, e.Reason)
}

// Verify checks that every quad slot is a valid vdir/quad index/label and
// that every function's region contains exactly one terminator, fanning out
// one goroutine per contiguous same-scope region (see verifyRegions) when
// jobs > 1; jobs <= 1 runs everything on the caller's goroutine.
func Verify(quads []Quad, funcs map[string]*Scope, jobs int) error {
	if err := verifyCallArity(quads, funcs); err != nil {
		return err
	}

	regions := verifyRegions(quads)

	if jobs <= 1 {
		for _, r := range regions {
			if err := verifyRegion(quads, r); err != nil {
				return err
			}
		}
		return nil
	}

	pe := util.NewPerror(len(regions))
	var wg sync.WaitGroup
	for _, r := range regions {
		wg.Add(1)
		go func(r region) {
			defer wg.Done()
			if err := verifyRegion(quads, r); err != nil {
				pe.Append(err)
			}
		}(r)
	}
	wg.Wait()
	pe.Stop()

	for err := range pe.Errors() {
		return err
	}
	return nil
}

// region is the quad index span owned by one function (or main).
type region struct {
	name  string
	start int
	end   int // exclusive
}

// verifyRegions partitions quads into per-function regions by scope name,
// assuming quad generation emits each function's quads contiguously (true
// by construction: genFunction runs to completion before the next one
// starts).
func verifyRegions(quads []Quad) []region {
	var regions []region
	var cur *region
	for i, q := range quads {
		if cur == nil || cur.name != q.Scope {
			if cur != nil {
				cur.end = i
				regions = append(regions, *cur)
			}
			cur = &region{name: q.Scope, start: i}
		}
	}
	if cur != nil {
		cur.end = len(quads)
		regions = append(regions, *cur)
	}
	return regions
}

// verifyCallArity walks quads in emission order and checks that every GOSUB
// call site passes exactly as many PARAM quads as its callee declares
// parameters, using funcs (the function directory) to look up each callee's
// ParamList. ALLOC opens a new call and resets the pending PARAM count;
// GOSUB closes it and checks the count against the callee it names.
func verifyCallArity(quads []Quad, funcs map[string]*Scope) error {
	pending := 0
	for i, q := range quads {
		switch q.Op {
		case ALLOC:
			pending = 0
		case PARAM:
			pending++
		case GOSUB:
			sc, ok := funcs[q.Label]
			if !ok {
				return &InvariantError{QuadIndex: i, Reason: fmt.Sprintf("call to undefined function %q", q.Label)}
			}
			if pending != len(sc.ParamList) {
				return &InvariantError{QuadIndex: i, Reason: fmt.Sprintf("call to %q passes %d argument(s), want %d", q.Label, pending, len(sc.ParamList))}
			}
			pending = 0
		}
	}
	return nil
}

// verifyRegion checks every quad in r: operand slots reference a valid
// segment or quad index, with no branch target pointing past the end of
// quads, and a function region contains exactly one ENDFUNC or END.
// Regions of the "global" scope are not checked for a terminator.
func verifyRegion(quads []Quad, r region) error {
	terminators := 0
	stack := &util.Stack{} // worklist of quad indices still to visit

	for i := r.start; i < r.end; i++ {
		stack.Push(i)
	}

	for stack.Size() > 0 {
		idx, ok := stack.Pop().(int)
		if !ok {
			continue
		}
		q := quads[idx]

		// Branch-target slots hold quad indices, not vdirs; everything else
		// that is not noArg must be a valid vdir.
		targetSlots := map[int]bool{}
		switch q.Op {
		case GOTO:
			targetSlots[q.Arg1] = true
		case GOTOF:
			targetSlots[q.Arg2] = true
		case GOSUB:
			targetSlots[q.Arg1] = true
		}

		for _, slot := range []int{q.Arg1, q.Arg2, q.Result} {
			if slot == noArg {
				continue
			}
			if targetSlots[slot] {
				if slot < 0 || slot >= len(quads) {
					return &InvariantError{QuadIndex: idx, Reason: "branch target out of range"}
				}
				continue
			}
			if _, ok := SegmentOf(slot); !ok {
				return &InvariantError{QuadIndex: idx, Reason: "operand is not a valid vdir"}
			}
		}

		if q.Op == ENDFUNC || q.Op == END {
			terminators++
		}
	}

	if r.name != globalScope && terminators != 1 {
		return &InvariantError{QuadIndex: r.start, Reason: fmt.Sprintf("function %q has %d terminators, want exactly 1", r.name, terminators)}
	}
	return nil
}
