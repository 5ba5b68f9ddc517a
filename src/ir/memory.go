// memory.go implements the memory manager: the tiered virtual-address
// allocator and constant interning table. Follows MemoryManager.py /
// vdir_classes.py (several generations) from the BabyDuck prototype: the
// AddressRange{start,end,current} cursor-per-segment model, the
// reset-on-function-entry behaviour of the local/temp segments, and interning
// constants by (type, value) into a single CONSTANT segment.

package ir

import (
	"fmt"
	"strings"

	"babyduck/src/ast"
)

// Segment identifies one of the seven vdir address ranges.
type Segment int

const (
	GlobalInt Segment = iota
	GlobalFloat
	LocalInt
	LocalFloat
	TempInt
	TempFloat
	Constant
)

// segSize is the number of slots reserved per segment.
const segSize = 1000

// segBase is the first vdir of each segment.
var segBase = [...]int{
	GlobalInt:   1000,
	GlobalFloat: 2000,
	LocalInt:    3000,
	LocalFloat:  4000,
	TempInt:     5000,
	TempFloat:   6000,
	Constant:    7000,
}

func (s Segment) String() string {
	switch s {
	case GlobalInt:
		return "GLOBAL_INT"
	case GlobalFloat:
		return "GLOBAL_FLOAT"
	case LocalInt:
		return "LOCAL_INT"
	case LocalFloat:
		return "LOCAL_FLOAT"
	case TempInt:
		return "TEMP_INT"
	case TempFloat:
		return "TEMP_FLOAT"
	case Constant:
		return "CONSTANT"
	default:
		return "INVALID"
	}
}

// SegmentOf classifies vdir by range check. Returns false for an address
// that falls outside every known segment.
func SegmentOf(vdir int) (Segment, bool) {
	for s := GlobalInt; s <= Constant; s++ {
		base := segBase[s]
		if vdir >= base && vdir < base+segSize {
			return s, true
		}
	}
	return 0, false
}

// ValueType returns the value-type implied by a non-CONSTANT segment.
// CONSTANT vdirs carry their own type in the constants table, so callers
// must consult MemoryManager.ConstantType for those instead.
func (s Segment) ValueType() ast.Type {
	switch s {
	case GlobalFloat, LocalFloat, TempFloat:
		return ast.Float
	default:
		return ast.Int
	}
}

// ConstVal is one interned constant: its value-type and textual/numeric
// payload, keyed by vdir in the inverse map.
type ConstVal struct {
	Typ   ast.Type
	I     int64
	F     float64
	S     string
	IsStr bool
}

// MemoryManager allocates vdirs and interns constants.
type MemoryManager struct {
	cursor [Constant]int // next free offset within each non-constant segment, 0-based

	constInts   map[int64]int
	constFloats map[float64]int
	constStrs   map[string]int
	constByVdir map[int]ConstVal
	nextConst   int
}

// NewMemoryManager returns a manager with every segment cursor at its base.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		constInts:   make(map[int64]int),
		constFloats: make(map[float64]int),
		constStrs:   make(map[string]int),
		constByVdir: make(map[int]ConstVal),
	}
}

// MemoryOverflow reports a segment exceeding its slot count.
type MemoryOverflow struct {
	Segment Segment
}

func (e *MemoryOverflow) Error() string {
	return fmt.Sprintf("memory overflow: segment %s exhausted its %d slots", e.Segment, segSize)
}

// Allocate reserves the next vdir in seg. GLOBAL_* segments have a single,
// permanent cursor; LOCAL_*/TEMP_* cursors are reset per function by
// ResetLocals. Allocate must not be called directly for Constant; use
// InternInt/InternFloat/InternString instead.
func (m *MemoryManager) Allocate(seg Segment) (int, error) {
	if seg == Constant {
		return 0, fmt.Errorf("ir: Allocate called on CONSTANT segment; use Intern*")
	}
	if m.cursor[seg] >= segSize {
		return 0, &MemoryOverflow{Segment: seg}
	}
	vdir := segBase[seg] + m.cursor[seg]
	m.cursor[seg]++
	return vdir, nil
}

// GlobalSizes returns the total number of GLOBAL_INT and GLOBAL_FLOAT slots
// allocated over the whole compilation, used to size the VM's global
// activation record.
func (m *MemoryManager) GlobalSizes() (ints, floats int) {
	return m.cursor[GlobalInt], m.cursor[GlobalFloat]
}

// ResetLocals zeroes the LOCAL_INT/LOCAL_FLOAT/TEMP_INT/TEMP_FLOAT cursors,
// called at the start of compiling each function (and once more before the
// top-level body) so that every scope shares the same overlapping
// local/temp vdir range instead of piling onto whatever the previously
// compiled scope left behind.
func (m *MemoryManager) ResetLocals() {
	m.cursor[LocalInt] = 0
	m.cursor[LocalFloat] = 0
	m.cursor[TempInt] = 0
	m.cursor[TempFloat] = 0
}

// SegmentSizes snapshots the current local/temp high-water marks, called by
// SymbolTable.FinalizeFunction at the close of a function.
func (m *MemoryManager) SegmentSizes() SegmentSizes {
	return SegmentSizes{
		LocalInt:   m.cursor[LocalInt],
		LocalFloat: m.cursor[LocalFloat],
		TempInt:    m.cursor[TempInt],
		TempFloat:  m.cursor[TempFloat],
	}
}

// SegmentSizes is the per-function activation-record sizing recorded in each
// scope.
type SegmentSizes struct {
	LocalInt, LocalFloat, TempInt, TempFloat int
}

// InternInt returns the CONSTANT vdir for value, allocating one on first
// sight and reusing it on every later call with an equal value.
func (m *MemoryManager) InternInt(value int64) (int, error) {
	if vdir, ok := m.constInts[value]; ok {
		return vdir, nil
	}
	vdir, err := m.internNew(ConstVal{Typ: ast.Int, I: value})
	if err != nil {
		return 0, err
	}
	m.constInts[value] = vdir
	return vdir, nil
}

// InternFloat returns the CONSTANT vdir for value, interning like InternInt.
func (m *MemoryManager) InternFloat(value float64) (int, error) {
	if vdir, ok := m.constFloats[value]; ok {
		return vdir, nil
	}
	vdir, err := m.internNew(ConstVal{Typ: ast.Float, F: value})
	if err != nil {
		return 0, err
	}
	m.constFloats[value] = vdir
	return vdir, nil
}

// InternString returns the CONSTANT vdir for a string literal used by print.
func (m *MemoryManager) InternString(value string) (int, error) {
	if vdir, ok := m.constStrs[value]; ok {
		return vdir, nil
	}
	vdir, err := m.internNew(ConstVal{IsStr: true, S: value})
	if err != nil {
		return 0, err
	}
	m.constStrs[value] = vdir
	return vdir, nil
}

func (m *MemoryManager) internNew(v ConstVal) (int, error) {
	if m.nextConst >= segSize {
		return 0, &MemoryOverflow{Segment: Constant}
	}
	vdir := segBase[Constant] + m.nextConst
	m.nextConst++
	m.constByVdir[vdir] = v
	return vdir, nil
}

// ConstantValue returns the interned value at a CONSTANT vdir, for use by
// the VM and the .ovejota dump. ok is false for an address never interned.
func (m *MemoryManager) ConstantValue(vdir int) (value ConstVal, ok bool) {
	value, ok = m.constByVdir[vdir]
	return
}

// ConstantType returns the value-type of a CONSTANT vdir; ok is false if
// vdir was never interned.
func (m *MemoryManager) ConstantType(vdir int) (ast.Type, bool) {
	v, ok := m.constByVdir[vdir]
	if !ok {
		return 0, false
	}
	if v.IsStr {
		return 0, false // string constants have no int/float value-type
	}
	return v.Typ, true
}

// Constants returns every interned constant, for bundling and the dump, in
// ascending vdir order.
func (m *MemoryManager) Constants() []int {
	vdirs := make([]int, 0, len(m.constByVdir))
	for vdir := range m.constByVdir {
		vdirs = append(vdirs, vdir)
	}
	for i := 1; i < len(vdirs); i++ {
		for j := i; j > 0 && vdirs[j-1] > vdirs[j]; j-- {
			vdirs[j-1], vdirs[j] = vdirs[j], vdirs[j-1]
		}
	}
	return vdirs
}

// String renders every segment's cursor and the interned constants table,
// for -v/--verbose debugging. Follows MemoryManager.to_string in the
// BabyDuck Python prototype.
func (m *MemoryManager) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, "memory manager:")
	for seg := GlobalInt; seg <= TempFloat; seg++ {
		fmt.Fprintf(&b, "  %-12s %4d/%d\n", seg, m.cursor[seg], segSize)
	}
	fmt.Fprintf(&b, "  %-12s %4d/%d\n", Constant, m.nextConst, segSize)
	for _, vdir := range m.Constants() {
		v := m.constByVdir[vdir]
		switch {
		case v.IsStr:
			fmt.Fprintf(&b, "    %d = %q\n", vdir, v.S)
		case v.Typ == ast.Float:
			fmt.Fprintf(&b, "    %d = %v\n", vdir, v.F)
		default:
			fmt.Fprintf(&b, "    %d = %d\n", vdir, v.I)
		}
	}
	return b.String()
}
