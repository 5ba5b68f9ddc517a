// dump.go writes the human-readable ".ovejota" rendering of a bundle:
// constants table, function directory, and quadruples, one per line.
// Follows gen_obj.py's plain-text dump from the BabyDuck prototype
// (constants table, "FUNC name" lines, quad lines), using vslc's
// util.Writer for the actual line assembly and util.TempName for
// ti0/tf0-style temporary naming.

package bundle

import (
	"fmt"

	"babyduck/src/ast"
	"babyduck/src/ir"
	"babyduck/src/util"
)

// Dump renders b as an .ovejota text file.
func Dump(b *Bundle) string {
	w := util.NewWriter()

	w.Line(fmt.Sprintf("; %s  version=%d  build=%s", b.Header.Filename, b.Header.Version, b.Header.BuildID))
	w.Line(fmt.Sprintf("; global ints=%d floats=%d main-temps(int=%d,float=%d)",
		b.Header.GlobalInts, b.Header.GlobalFloats, b.Header.MainTempInts, b.Header.MainTempFloats))
	w.Line("")

	w.Line("; constants")
	for _, c := range b.Constants {
		w.Line(fmt.Sprintf("%-6s %-10s %s", util.TempName(c.Vdir), util.SegmentName(c.Vdir), constText(c)))
	}
	w.Line("")

	w.Line("; functions")
	for _, f := range b.Functions {
		w.Line(fmt.Sprintf("FUNC %s entry=%d locals(int=%d,float=%d) temps(int=%d,float=%d)",
			f.Name, f.EntryQuad,
			f.SegmentSizes.LocalInt, f.SegmentSizes.LocalFloat,
			f.SegmentSizes.TempInt, f.SegmentSizes.TempFloat))
	}
	w.Line("")

	w.Line("; quads")
	for i, q := range b.Quads {
		a1, a2, res := quadOperandText(q)
		w.Quad(i, q.Op.String(), a1, a2, res)
	}

	return w.Close()
}

// quadOperandText renders a quad's three slots according to what each
// opcode's slots actually mean: GOTO/GOTOF/GOSUB hold quad indices (and, for
// GOSUB/ALLOC, a function label), everything else holds vdirs.
func quadOperandText(q QuadEntry) (arg1, arg2, result string) {
	switch q.Op {
	case ir.GOTO:
		return operandIndex(q.Arg1), "", ""
	case ir.GOTOF:
		return operandText(q.Arg1), operandIndex(q.Arg2), ""
	case ir.GOSUB:
		return operandIndex(q.Arg1), "", q.Label
	case ir.ALLOC:
		return q.Label, "", ""
	default:
		return operandText(q.Arg1), operandText(q.Arg2), operandText(q.Result)
	}
}

func operandIndex(v int) string {
	if v < 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

func constText(c ConstVal) string {
	switch {
	case c.IsStr:
		return fmt.Sprintf("%q", c.Str)
	case c.Typ == ast.Float:
		return fmt.Sprintf("%v", c.Float)
	default:
		return fmt.Sprintf("%d", c.Int)
	}
}

func operandText(v int) string {
	if v < 0 {
		return ""
	}
	return util.TempName(v)
}
