package util

import "testing"

func TestTempNameFormatsTempSegments(t *testing.T) {
	if got := TempName(baseTempInt + 3); got != "ti3" {
		t.Errorf("TempName(TEMP_INT+3) = %q, want \"ti3\"", got)
	}
	if got := TempName(baseTempFloat); got != "tf0" {
		t.Errorf("TempName(TEMP_FLOAT+0) = %q, want \"tf0\"", got)
	}
}

func TestTempNameFallsBackOutsideTempSegments(t *testing.T) {
	if got := TempName(baseGlobalInt + 5); got != "1005" {
		t.Errorf("TempName(GLOBAL_INT+5) = %q, want \"1005\"", got)
	}
}

func TestSegmentNameCoversAllSevenSegments(t *testing.T) {
	cases := map[int]string{
		baseGlobalInt:   "GLOBAL_INT",
		baseGlobalFloat: "GLOBAL_FLOAT",
		baseLocalInt:    "LOCAL_INT",
		baseLocalFloat:  "LOCAL_FLOAT",
		baseTempInt:     "TEMP_INT",
		baseTempFloat:   "TEMP_FLOAT",
		baseConstant:    "CONSTANT",
	}
	for vdir, want := range cases {
		if got := SegmentName(vdir); got != want {
			t.Errorf("SegmentName(%d) = %q, want %q", vdir, got, want)
		}
	}
	if got := SegmentName(-1); got != "INVALID" {
		t.Errorf("SegmentName(-1) = %q, want \"INVALID\"", got)
	}
}
