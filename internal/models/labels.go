package models

import "fmt"

// structureNames maps the FreeSurfer label ids produced by the segmentation
// tool to human-readable structure names. These are the 32 brain structures
// (plus background) in the standard whole-brain labeling.
var structureNames = map[int32]string{
	0:  "background",
	2:  "left cerebral white matter",
	3:  "left cerebral cortex",
	4:  "left lateral ventricle",
	5:  "left inferior lateral ventricle",
	7:  "left cerebellum white matter",
	8:  "left cerebellum cortex",
	10: "left thalamus",
	11: "left caudate",
	12: "left putamen",
	13: "left pallidum",
	14: "3rd ventricle",
	15: "4th ventricle",
	16: "brain-stem",
	17: "left hippocampus",
	18: "left amygdala",
	24: "csf",
	26: "left accumbens area",
	28: "left ventral dc",
	41: "right cerebral white matter",
	42: "right cerebral cortex",
	43: "right lateral ventricle",
	44: "right inferior lateral ventricle",
	46: "right cerebellum white matter",
	47: "right cerebellum cortex",
	49: "right thalamus",
	50: "right caudate",
	51: "right putamen",
	52: "right pallidum",
	53: "right hippocampus",
	54: "right amygdala",
	58: "right accumbens area",
	60: "right ventral dc",
}

// StructureName returns the anatomical name for a label id.
// Unknown labels are reported as "label N" rather than failing, since the
// external tool's label set may grow across versions.
func StructureName(label int32) string {
	if name, ok := structureNames[label]; ok {
		return name
	}
	return fmt.Sprintf("label %d", label)
}

// KnownLabel reports whether the label id belongs to the standard label set.
func KnownLabel(label int32) bool {
	_, ok := structureNames[label]
	return ok
}
