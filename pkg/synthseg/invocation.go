package synthseg

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Request holds the parameters of a single segmentation run. It is built
// fresh per run and treated as immutable once built.
type Request struct {
	// InputPath is the input MRI image (.nii or .nii.gz).
	InputPath string

	// SegPath is where the tool writes the label volume.
	SegPath string

	// VolPath is where the tool writes the structure volumes table.
	VolPath string

	// UseCPU forces inference on the CPU instead of the GPU.
	UseCPU bool

	// Fast enables the tool's faster, lower-accuracy mode.
	Fast bool

	// Crop sets an explicit crop size for inference. Ignored when Fast is
	// set; zero means no crop flag is emitted.
	Crop int

	// Threads is the number of threads the tool may use. Zero means the
	// tool's own default.
	Threads int

	// V1 selects the tool's version-1 model variant.
	V1 bool
}

// BuildArgs produces the complete argument list for the external predictor,
// starting with the interpreter executable. It is a pure function: identical
// inputs always yield an identical list, and the flag order is stable
// (input, output, volumes, then the optional flags in a fixed order).
//
// The flags and their semantics are fixed by the external tool's CLI and are
// reproduced byte-for-byte:
//
//	<interpreter> <entry-script> --i <in> --o <seg> --vol <vol>
//	    [--cpu] [--fast | --crop N] [--threads N] [--v1]
//
// No validation is performed here; a request with a nonexistent input path is
// detected by the tool itself at invocation time.
func BuildArgs(env Environment, req Request) []string {
	args := []string{
		env.Interpreter,
		env.EntryScript(),
		"--i", req.InputPath,
		"--o", req.SegPath,
		"--vol", req.VolPath,
	}

	if req.UseCPU {
		args = append(args, "--cpu")
	}
	switch {
	case req.Fast:
		args = append(args, "--fast")
	case req.Crop > 0:
		args = append(args, "--crop", strconv.Itoa(req.Crop))
	}
	if req.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(req.Threads))
	}
	if req.V1 {
		args = append(args, "--v1")
	}

	return args
}

// DefaultOutputPaths derives the segmentation and volumes-table output paths
// for an input image: "<outputDir>/<base>_seg.nii.gz" and
// "<outputDir>/<base>_vol.csv", where base is the input filename with its
// .nii or .nii.gz extension stripped.
func DefaultOutputPaths(inputPath, outputDir string) (segPath, volPath string) {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, ".nii")
	segPath = filepath.Join(outputDir, base+"_seg.nii.gz")
	volPath = filepath.Join(outputDir, base+"_vol.csv")
	return segPath, volPath
}
