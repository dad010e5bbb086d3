package types

import (
	"fmt"
	"strings"
)

type PatchType uint8

const (
	PATCH_None PatchType = iota
	PATCH_Wall
	PATCH_In
	PATCH_Out
	PATCH_Symmetry
	PATCH_Cyclic    // Periodic image, the counterpart is a patch of the same mesh
	PATCH_Processor // Partition boundary, the counterpart lives on another partition
)

var (
	PatchNameMap = map[string]PatchType{
		"none":         PATCH_None,
		"wall":         PATCH_Wall,
		"inflow":       PATCH_In,
		"in":           PATCH_In,
		"outflow":      PATCH_Out,
		"out":          PATCH_Out,
		"symmetry":     PATCH_Symmetry,
		"cyclic":       PATCH_Cyclic,
		"periodic":     PATCH_Cyclic,
		"processor":    PATCH_Processor,
		"procboundary": PATCH_Processor,
	}
	PatchPrintNames = []string{"None", "Wall", "Inflow", "Outflow", "Symmetry", "Cyclic", "Processor"}
)

func (pt PatchType) String() string {
	if int(pt) >= len(PatchPrintNames) {
		return fmt.Sprintf("PatchType(%d)", pt)
	}
	return PatchPrintNames[pt]
}

// IsCoupled reports whether faces of this patch have a counterpart face whose owner cell
// is computed somewhere else.
func (pt PatchType) IsCoupled() bool {
	return pt == PATCH_Cyclic || pt == PATCH_Processor
}

func NewPatchType(label string) (pt PatchType) {
	var (
		ok  bool
		err error
	)
	label = strings.ToLower(strings.TrimSpace(label))
	if pt, ok = PatchNameMap[label]; !ok {
		err = fmt.Errorf("unable to use patch type named [%s]", label)
		panic(err)
	}
	return
}
