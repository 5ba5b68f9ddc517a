package bundle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"babyduck/src/ast"
	"babyduck/src/ir"
	"babyduck/src/parser"
)

func compile(t *testing.T, src string) *ir.Result {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	res, err := ir.Generate(prog)
	require.NoError(t, err)
	return res
}

func TestEncodeDecodeRoundTripsHeader(t *testing.T) {
	res := compile(t, "program p; var a: float; main { a = 3 / 2; print(a); } end")
	b := FromResult("p.baby", 1234, res)

	data := Encode(b)
	got, err := Decode(data)
	require.NoError(t, err)

	require.Equal(t, b.Header.Filename, got.Header.Filename)
	require.Equal(t, b.Header.Timestamp, got.Header.Timestamp)
	require.Equal(t, b.Header.Version, got.Header.Version)
	require.Equal(t, b.Header.BuildID, got.Header.BuildID)
	require.Equal(t, b.Header.GlobalInts, got.Header.GlobalInts)
	require.Equal(t, b.Header.GlobalFloats, got.Header.GlobalFloats)
	require.Equal(t, b.Header.MainTempInts, got.Header.MainTempInts)
	require.Equal(t, b.Header.MainTempFloats, got.Header.MainTempFloats)
}

func TestEncodeDecodeRoundTripsQuadsAndConstants(t *testing.T) {
	res := compile(t, "program p; main { print(1 + 2 * 3); } end")
	b := FromResult("p.baby", 0, res)

	got, err := Decode(Encode(b))
	require.NoError(t, err)

	require.Len(t, got.Quads, len(b.Quads))
	for i := range b.Quads {
		require.Equal(t, b.Quads[i], got.Quads[i], "quad %d", i)
	}
	require.Len(t, got.Constants, len(b.Constants))
}

func TestEncodeDecodeRoundTripsFunctions(t *testing.T) {
	src := `program p;
void f(n: float) { print(n); };
main { f(3); } end`
	res := compile(t, src)
	b := FromResult("p.baby", 0, res)

	got, err := Decode(Encode(b))
	require.NoError(t, err)
	require.Len(t, got.Functions, 1)
	require.Equal(t, "f", got.Functions[0].Name)
	require.Equal(t, b.Functions[0].EntryQuad, got.Functions[0].EntryQuad)
	require.Equal(t, b.Functions[0].ParamVdirs, got.Functions[0].ParamVdirs)
	require.Equal(t, b.Functions[0].ParamTypes, got.Functions[0].ParamTypes)
	require.Equal(t, b.Functions[0].SegmentSizes, got.Functions[0].SegmentSizes)
}

func TestFloatConstantSurvivesFixed64RoundTrip(t *testing.T) {
	res := compile(t, "program p; main { print(3.5 * 2.0); } end")
	b := FromResult("p.baby", 0, res)
	got, err := Decode(Encode(b))
	require.NoError(t, err)

	var found bool
	for _, c := range got.Constants {
		if c.Typ == ast.Float && c.Float == 3.5 {
			found = true
		}
	}
	require.True(t, found, "expected a decoded float constant equal to 3.5")
}

func TestToProgramWiresGlobalSizesAndFunctions(t *testing.T) {
	src := `program p; var g: int;
void f(n: int) { print(n); };
main { g = 1; f(g); } end`
	res := compile(t, src)
	b := FromResult("p.baby", 0, res)

	prog := b.ToProgram()
	require.Equal(t, b.Header.GlobalInts, prog.GlobalInts)
	require.Equal(t, b.Header.GlobalFloats, prog.GlobalFloats)
	require.Equal(t, b.Header.MainTempInts, prog.MainTempInts)
	require.Equal(t, b.Header.MainTempFloats, prog.MainTempFloats)
	require.Contains(t, prog.Functions, "f")
	require.Contains(t, prog.ParamVdirs, "f")
	require.Len(t, prog.Quads, len(b.Quads))
}

func TestFromResultCapturesMainBodyTempHighWaterMark(t *testing.T) {
	res := compile(t, "program p; main { print(1 + 2 * 3); } end")
	b := FromResult("p.baby", 0, res)

	require.Greater(t, b.Header.MainTempInts, 0, "expression evaluated in main should allocate a TEMP_INT")
	prog := b.ToProgram()
	require.Equal(t, b.Header.MainTempInts, prog.MainTempInts)
}

func TestDumpRendersFunctionsAndQuads(t *testing.T) {
	src := `program p;
void f(n: int) { print(n); };
main { f(1); } end`
	res := compile(t, src)
	b := FromResult("p.baby", 0, res)

	text := Dump(b)
	require.Contains(t, text, "FUNC f")
	require.Contains(t, text, "GOSUB")
	require.Contains(t, text, "ALLOC")
}
