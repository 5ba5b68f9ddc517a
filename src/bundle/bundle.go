// Package bundle encodes and decodes the compiled object bundle: a
// versioned, self-describing binary with header/constants/function-
// directory/global-symbol-table/quads sections. The BabyDuck prototype's
// gen_obj.py pickles a Python dict for this, which is neither portable nor
// idiomatic Go; this package instead hand-writes the wire format with
// google.golang.org/protobuf/encoding/protowire's varint/length-delimited
// primitives directly, field by field, with no .proto file or generated
// code (protoc is unavailable here).
package bundle

import (
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"babyduck/src/ast"
	"babyduck/src/ir"
	"babyduck/src/vm"
)

// Version is the bundle format's wire version, bumped on incompatible field
// changes.
const Version = 1

// Header is the bundle's self-describing metadata.
type Header struct {
	Filename       string
	Timestamp      int64
	Version        int
	BuildID        uuid.UUID
	GlobalInts     int
	GlobalFloats   int
	MainTempInts   int // TEMP_INT high-water mark for code compiled directly under the top-level body
	MainTempFloats int // TEMP_FLOAT high-water mark for code compiled directly under the top-level body
}

// ConstVal is one row of the constants section.
type ConstVal struct {
	Vdir  int
	Typ   ast.Type
	Int   int64
	Float float64
	Str   string
	IsStr bool
}

// FuncEntry is one row of the function directory.
type FuncEntry struct {
	Name         string
	EntryQuad    int
	ParamVdirs   []int
	ParamTypes   []ast.Type
	SegmentSizes ir.SegmentSizes
}

// GlobalEntry is one row of the (debug-only) global symbol table.
type GlobalEntry struct {
	Name string
	Typ  ast.Type
	Vdir int
}

// QuadEntry mirrors ir.Quad for the wire: the compiler and VM opcode
// vocabulary is shared (ir.Opcode), so only the field layout differs.
type QuadEntry struct {
	Op     ir.Opcode
	Arg1   int
	Arg2   int
	Result int
	Label  string
	Scope  string
}

// Bundle is the fully decoded object file.
type Bundle struct {
	Header    Header
	Constants []ConstVal
	Functions []FuncEntry
	Globals   []GlobalEntry
	Quads     []QuadEntry
}

// FromResult builds a Bundle from a freshly compiled program.
func FromResult(filename string, timestamp int64, res *ir.Result) *Bundle {
	ints, floats := res.Mem.GlobalSizes()
	mainSizes := res.ST.GlobalSegmentSizes()
	b := &Bundle{
		Header: Header{
			Filename:       filename,
			Timestamp:      timestamp,
			Version:        Version,
			BuildID:        uuid.New(),
			GlobalInts:     ints,
			GlobalFloats:   floats,
			MainTempInts:   mainSizes.TempInt,
			MainTempFloats: mainSizes.TempFloat,
		},
	}

	for _, vdir := range res.Mem.Constants() {
		cv, _ := res.Mem.ConstantValue(vdir)
		entry := ConstVal{Vdir: vdir, IsStr: cv.IsStr, Str: cv.S, Int: cv.I, Float: cv.F, Typ: cv.Typ}
		b.Constants = append(b.Constants, entry)
	}

	for name, sc := range res.ST.Functions() {
		fe := FuncEntry{Name: name, EntryQuad: sc.EntryQuad, SegmentSizes: sc.SegmentSizes}
		for _, p := range sc.ParamList {
			fe.ParamVdirs = append(fe.ParamVdirs, p.Vdir)
			fe.ParamTypes = append(fe.ParamTypes, p.Type)
		}
		b.Functions = append(b.Functions, fe)
	}

	if global := res.ST.Scope("global"); global != nil {
		for _, sym := range global.Symbols() {
			b.Globals = append(b.Globals, GlobalEntry{Name: sym.Name, Typ: sym.Type, Vdir: sym.Vdir})
		}
	}

	for _, q := range res.Quads {
		b.Quads = append(b.Quads, QuadEntry{Op: q.Op, Arg1: q.Arg1, Arg2: q.Arg2, Result: q.Result, Label: q.Label, Scope: q.Scope})
	}

	return b
}

// ToProgram converts a decoded Bundle into the form vm.VM consumes.
func (b *Bundle) ToProgram() *vm.Program {
	prog := &vm.Program{
		Constants:  make(map[int]vm.Value, len(b.Constants)),
		Functions:  make(map[string]vm.FunctionInfo, len(b.Functions)),
		ParamVdirs: make(map[string][]int, len(b.Functions)),
	}

	for _, c := range b.Constants {
		prog.Constants[c.Vdir] = vm.Value{Typ: c.Typ, I: c.Int, F: c.Float, S: c.Str, IsStr: c.IsStr}
	}

	for _, f := range b.Functions {
		prog.Functions[f.Name] = vm.FunctionInfo{EntryQuad: f.EntryQuad, Sizes: f.SegmentSizes}
		prog.ParamVdirs[f.Name] = f.ParamVdirs
	}

	prog.GlobalInts = b.Header.GlobalInts
	prog.GlobalFloats = b.Header.GlobalFloats
	prog.MainTempInts = b.Header.MainTempInts
	prog.MainTempFloats = b.Header.MainTempFloats

	prog.Quads = make([]ir.Quad, len(b.Quads))
	for i, q := range b.Quads {
		prog.Quads[i] = ir.Quad{Op: q.Op, Arg1: q.Arg1, Arg2: q.Arg2, Result: q.Result, Label: q.Label, Scope: q.Scope}
	}

	return prog
}

// --- wire encoding ---

const (
	fieldHeader    protowire.Number = 1
	fieldConstants protowire.Number = 2
	fieldFunctions protowire.Number = 3
	fieldGlobals   protowire.Number = 4
	fieldQuads     protowire.Number = 5
)

const (
	hFilename     protowire.Number = 1
	hTime         protowire.Number = 2
	hVersion      protowire.Number = 3
	hBuildID      protowire.Number = 4
	hGlobalInts   protowire.Number = 5
	hGlobalFloats protowire.Number = 6
	hMainTempInt  protowire.Number = 7
	hMainTempFlt  protowire.Number = 8
)

const (
	cVdir  protowire.Number = 1
	cKind  protowire.Number = 2
	cInt   protowire.Number = 3
	cFloat protowire.Number = 4
	cStr   protowire.Number = 5
)

const (
	fName       protowire.Number = 1
	fEntryQuad  protowire.Number = 2
	fParamVdirs protowire.Number = 3
	fParamTypes protowire.Number = 4
	fLocalInt   protowire.Number = 5
	fLocalFloat protowire.Number = 6
	fTempInt    protowire.Number = 7
	fTempFloat  protowire.Number = 8
)

const (
	gName protowire.Number = 1
	gType protowire.Number = 2
	gVdir protowire.Number = 3
)

const (
	qOp     protowire.Number = 1
	qArg1   protowire.Number = 2
	qArg2   protowire.Number = 3
	qResult protowire.Number = 4
	qLabel  protowire.Number = 5
	qScope  protowire.Number = 6
)

const constKindInt, constKindFloat, constKindStr = 0, 1, 2

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendZigzagField(b []byte, num protowire.Number, v int) []byte {
	return appendVarintField(b, num, protowire.EncodeZigZag(int64(v)))
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessageField(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// Encode serialises b into the bundle's binary wire format.
func Encode(b *Bundle) []byte {
	var out []byte

	var hdr []byte
	hdr = appendStringField(hdr, hFilename, b.Header.Filename)
	hdr = appendVarintField(hdr, hTime, uint64(b.Header.Timestamp))
	hdr = appendVarintField(hdr, hVersion, uint64(b.Header.Version))
	hdr = appendStringField(hdr, hBuildID, b.Header.BuildID.String())
	hdr = appendVarintField(hdr, hGlobalInts, uint64(b.Header.GlobalInts))
	hdr = appendVarintField(hdr, hGlobalFloats, uint64(b.Header.GlobalFloats))
	hdr = appendVarintField(hdr, hMainTempInt, uint64(b.Header.MainTempInts))
	hdr = appendVarintField(hdr, hMainTempFlt, uint64(b.Header.MainTempFloats))
	out = appendMessageField(out, fieldHeader, hdr)

	for _, c := range b.Constants {
		var m []byte
		m = appendVarintField(m, cVdir, uint64(c.Vdir))
		switch {
		case c.IsStr:
			m = appendVarintField(m, cKind, constKindStr)
			m = appendStringField(m, cStr, c.Str)
		case c.Typ == ast.Float:
			m = appendVarintField(m, cKind, constKindFloat)
			m = protowire.AppendTag(m, cFloat, protowire.Fixed64Type)
			m = protowire.AppendFixed64(m, float64bits(c.Float))
		default:
			m = appendVarintField(m, cKind, constKindInt)
			m = appendZigzagField(m, cInt, int(c.Int))
		}
		out = appendMessageField(out, fieldConstants, m)
	}

	for _, f := range b.Functions {
		var m []byte
		m = appendStringField(m, fName, f.Name)
		m = appendVarintField(m, fEntryQuad, uint64(f.EntryQuad))
		for _, pv := range f.ParamVdirs {
			m = appendVarintField(m, fParamVdirs, uint64(pv))
		}
		for _, pt := range f.ParamTypes {
			m = appendVarintField(m, fParamTypes, uint64(pt))
		}
		m = appendVarintField(m, fLocalInt, uint64(f.SegmentSizes.LocalInt))
		m = appendVarintField(m, fLocalFloat, uint64(f.SegmentSizes.LocalFloat))
		m = appendVarintField(m, fTempInt, uint64(f.SegmentSizes.TempInt))
		m = appendVarintField(m, fTempFloat, uint64(f.SegmentSizes.TempFloat))
		out = appendMessageField(out, fieldFunctions, m)
	}

	for _, g := range b.Globals {
		var m []byte
		m = appendStringField(m, gName, g.Name)
		m = appendVarintField(m, gType, uint64(g.Typ))
		m = appendVarintField(m, gVdir, uint64(g.Vdir))
		out = appendMessageField(out, fieldGlobals, m)
	}

	for _, q := range b.Quads {
		var m []byte
		m = appendVarintField(m, qOp, uint64(q.Op))
		m = appendZigzagField(m, qArg1, q.Arg1)
		m = appendZigzagField(m, qArg2, q.Arg2)
		m = appendZigzagField(m, qResult, q.Result)
		m = appendStringField(m, qLabel, q.Label)
		m = appendStringField(m, qScope, q.Scope)
		out = appendMessageField(out, fieldQuads, m)
	}

	return out
}

// Decode parses the binary wire format produced by Encode.
func Decode(data []byte) (*Bundle, error) {
	b := &Bundle{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, errors.New("bundle: malformed tag")
		}
		data = data[n:]

		switch num {
		case fieldHeader:
			msg, n, err := consumeBytes(typ, data)
			if err != nil {
				return nil, err
			}
			data = data[n:]
			if err := decodeHeader(msg, &b.Header); err != nil {
				return nil, err
			}
		case fieldConstants:
			msg, n, err := consumeBytes(typ, data)
			if err != nil {
				return nil, err
			}
			data = data[n:]
			c, err := decodeConst(msg)
			if err != nil {
				return nil, err
			}
			b.Constants = append(b.Constants, c)
		case fieldFunctions:
			msg, n, err := consumeBytes(typ, data)
			if err != nil {
				return nil, err
			}
			data = data[n:]
			f, err := decodeFunc(msg)
			if err != nil {
				return nil, err
			}
			b.Functions = append(b.Functions, f)
		case fieldGlobals:
			msg, n, err := consumeBytes(typ, data)
			if err != nil {
				return nil, err
			}
			data = data[n:]
			g, err := decodeGlobal(msg)
			if err != nil {
				return nil, err
			}
			b.Globals = append(b.Globals, g)
		case fieldQuads:
			msg, n, err := consumeBytes(typ, data)
			if err != nil {
				return nil, err
			}
			data = data[n:]
			q, err := decodeQuad(msg)
			if err != nil {
				return nil, err
			}
			b.Quads = append(b.Quads, q)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, errors.New("bundle: malformed field")
			}
			data = data[n:]
		}
	}
	return b, nil
}

func consumeBytes(typ protowire.Type, data []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, errors.New("bundle: expected length-delimited field")
	}
	v, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, 0, errors.New("bundle: malformed length-delimited field")
	}
	return v, n, nil
}

func decodeHeader(data []byte, h *Header) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return errors.New("bundle: malformed header tag")
		}
		data = data[n:]
		switch num {
		case hFilename:
			s, n := protowire.ConsumeString(data)
			data = data[n:]
			h.Filename = s
		case hTime:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			h.Timestamp = int64(v)
		case hVersion:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			h.Version = int(v)
		case hBuildID:
			s, n := protowire.ConsumeString(data)
			data = data[n:]
			id, err := uuid.Parse(s)
			if err != nil {
				return errors.Wrap(err, "bundle: invalid build id")
			}
			h.BuildID = id
		case hGlobalInts:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			h.GlobalInts = int(v)
		case hGlobalFloats:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			h.GlobalFloats = int(v)
		case hMainTempInt:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			h.MainTempInts = int(v)
		case hMainTempFlt:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			h.MainTempFloats = int(v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			data = data[n:]
		}
	}
	return nil
}

func decodeConst(data []byte) (ConstVal, error) {
	var c ConstVal
	var kind uint64
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return c, errors.New("bundle: malformed constant tag")
		}
		data = data[n:]
		switch num {
		case cVdir:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			c.Vdir = int(v)
		case cKind:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			kind = v
		case cInt:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			c.Int = protowire.DecodeZigZag(v)
		case cFloat:
			v, n := protowire.ConsumeFixed64(data)
			data = data[n:]
			c.Float = float64frombits(v)
		case cStr:
			s, n := protowire.ConsumeString(data)
			data = data[n:]
			c.Str = s
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			data = data[n:]
		}
	}
	switch kind {
	case constKindFloat:
		c.Typ = ast.Float
	case constKindStr:
		c.IsStr = true
	default:
		c.Typ = ast.Int
	}
	return c, nil
}

func decodeFunc(data []byte) (FuncEntry, error) {
	var f FuncEntry
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return f, errors.New("bundle: malformed function tag")
		}
		data = data[n:]
		switch num {
		case fName:
			s, n := protowire.ConsumeString(data)
			data = data[n:]
			f.Name = s
		case fEntryQuad:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			f.EntryQuad = int(v)
		case fParamVdirs:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			f.ParamVdirs = append(f.ParamVdirs, int(v))
		case fParamTypes:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			f.ParamTypes = append(f.ParamTypes, ast.Type(v))
		case fLocalInt:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			f.SegmentSizes.LocalInt = int(v)
		case fLocalFloat:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			f.SegmentSizes.LocalFloat = int(v)
		case fTempInt:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			f.SegmentSizes.TempInt = int(v)
		case fTempFloat:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			f.SegmentSizes.TempFloat = int(v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			data = data[n:]
		}
	}
	return f, nil
}

func decodeGlobal(data []byte) (GlobalEntry, error) {
	var g GlobalEntry
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return g, errors.New("bundle: malformed global tag")
		}
		data = data[n:]
		switch num {
		case gName:
			s, n := protowire.ConsumeString(data)
			data = data[n:]
			g.Name = s
		case gType:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			g.Typ = ast.Type(v)
		case gVdir:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			g.Vdir = int(v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			data = data[n:]
		}
	}
	return g, nil
}

func decodeQuad(data []byte) (QuadEntry, error) {
	var q QuadEntry
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return q, errors.New("bundle: malformed quad tag")
		}
		data = data[n:]
		switch num {
		case qOp:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			q.Op = ir.Opcode(v)
		case qArg1:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			q.Arg1 = int(protowire.DecodeZigZag(v))
		case qArg2:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			q.Arg2 = int(protowire.DecodeZigZag(v))
		case qResult:
			v, n := protowire.ConsumeVarint(data)
			data = data[n:]
			q.Result = int(protowire.DecodeZigZag(v))
		case qLabel:
			s, n := protowire.ConsumeString(data)
			data = data[n:]
			q.Label = s
		case qScope:
			s, n := protowire.ConsumeString(data)
			data = data[n:]
			q.Scope = s
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			data = data[n:]
		}
	}
	return q, nil
}

func float64bits(f float64) uint64     { return math.Float64bits(f) }
func float64frombits(u uint64) float64 { return math.Float64frombits(u) }
