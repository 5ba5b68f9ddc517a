// label.go provides deterministic display names for virtual directions used
// by the human-readable quad dump. Unlike vslc's jump-label generator (which
// handed out unique assembly labels from a running counter), BabyDuck's
// temporaries already have a stable identity, their vdir, so naming them
// is a pure function of that vdir, not a stateful allocator.

package util

import "fmt"

// Segment bases mirror the vdir layout; duplicated here (rather than
// importing the ir package) to keep util free of a dependency on ir.
const (
	segSize         = 1000
	baseGlobalInt   = 1000
	baseGlobalFloat = 2000
	baseLocalInt    = 3000
	baseLocalFloat  = 4000
	baseTempInt     = 5000
	baseTempFloat   = 6000
	baseConstant    = 7000
)

// TempName renders a vdir as a short, readable name for the .ovejota dump:
// "ti3" for the 4th TEMP_INT slot, "tf0" for the first TEMP_FLOAT slot, and
// so on. vdirs outside the temp segments fall back to their raw integer form,
// since only compiler-generated temporaries need this treatment.
func TempName(vdir int) string {
	switch {
	case vdir >= baseTempInt && vdir < baseTempInt+segSize:
		return fmt.Sprintf("ti%d", vdir-baseTempInt)
	case vdir >= baseTempFloat && vdir < baseTempFloat+segSize:
		return fmt.Sprintf("tf%d", vdir-baseTempFloat)
	default:
		return fmt.Sprintf("%d", vdir)
	}
}

// SegmentName returns the short mnemonic of the segment vdir falls in, used
// to annotate the dump's constants section.
func SegmentName(vdir int) string {
	switch {
	case vdir >= baseGlobalInt && vdir < baseGlobalFloat:
		return "GLOBAL_INT"
	case vdir >= baseGlobalFloat && vdir < baseLocalInt:
		return "GLOBAL_FLOAT"
	case vdir >= baseLocalInt && vdir < baseLocalFloat:
		return "LOCAL_INT"
	case vdir >= baseLocalFloat && vdir < baseTempInt:
		return "LOCAL_FLOAT"
	case vdir >= baseTempInt && vdir < baseTempFloat:
		return "TEMP_INT"
	case vdir >= baseTempFloat && vdir < baseConstant:
		return "TEMP_FLOAT"
	case vdir >= baseConstant && vdir < baseConstant+segSize:
		return "CONSTANT"
	default:
		return "INVALID"
	}
}
