// Package synthseg implements the workflow for driving an external,
// pre-trained brain MRI segmentation tool as a child process: validating the
// configured installation, building the predictor's command line, running it,
// and importing its output files.
package synthseg

import (
	"fmt"
	"os"
	"path/filepath"
)

// Fixed filesystem layout expected under the tool root. These paths are part
// of the external tool's distribution and must not be changed.
var (
	entryScriptRelPath = filepath.Join("SynthSeg", "scripts", "commands", "SynthSeg_predict.py")
	modelRelPath       = filepath.Join("models", "synthseg_1.0.h5")
)

// minModelSize is the smallest plausible size of the real model weight file.
// Checkouts that fetch large files as pointer placeholders leave a tiny text
// file at the model path, which would make the predictor exit without any
// useful message. Package-level variable so tests can lower it.
var minModelSize int64 = 10 << 20

// Environment describes a user-supplied installation of the external
// segmentation tool: where it lives and which interpreter runs it.
// Both paths are expected to be absolute; validity is checked by Validate,
// not enforced at assignment time.
type Environment struct {
	// ToolRoot is the root directory of the external tool's installation.
	ToolRoot string

	// Interpreter is the Python executable used to run the tool. It must
	// belong to an environment with the tool's package dependencies installed.
	Interpreter string
}

// EntryScript returns the absolute path of the tool's command-line entry point.
func (e Environment) EntryScript() string {
	return filepath.Join(e.ToolRoot, entryScriptRelPath)
}

// ModelFile returns the absolute path of the pre-trained model weight file.
func (e Environment) ModelFile() string {
	return filepath.Join(e.ToolRoot, modelRelPath)
}

// ValidationStatus classifies the outcome of an environment validation check.
type ValidationStatus int

const (
	// StatusValid means all configured paths exist and look plausible.
	StatusValid ValidationStatus = iota

	// StatusMissingToolRoot means the tool root directory does not exist.
	StatusMissingToolRoot

	// StatusMissingInterpreter means the interpreter executable does not exist.
	StatusMissingInterpreter

	// StatusMissingEntryScript means the tool root exists but does not contain
	// the expected entry script.
	StatusMissingEntryScript

	// StatusMissingModelFile means the model weight file is absent or is a
	// placeholder rather than the real binary payload.
	StatusMissingModelFile
)

// String returns a short identifier for the status.
func (s ValidationStatus) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusMissingToolRoot:
		return "missing tool root"
	case StatusMissingInterpreter:
		return "missing interpreter"
	case StatusMissingEntryScript:
		return "missing entry script"
	case StatusMissingModelFile:
		return "missing model file"
	default:
		return fmt.Sprintf("unknown status %d", int(s))
	}
}

// ValidationResult is the outcome of validating an Environment: a status
// plus a human-readable diagnostic for the failing check.
type ValidationResult struct {
	// Status classifies the first failing check, or StatusValid.
	Status ValidationStatus

	// Detail describes the failing check in terms of the concrete path involved.
	Detail string
}

// Valid reports whether the environment passed all checks.
func (r ValidationResult) Valid() bool {
	return r.Status == StatusValid
}

// Validate checks that the configured paths exist and that the tool root
// contains the expected entry script and a real model weight file.
//
// The check is advisory and performs filesystem lookups only: it never
// executes a process, so a Valid result does not guarantee that the
// interpreter's package environment can actually run the tool. The invocation
// itself is the authoritative test.
func (e Environment) Validate() ValidationResult {
	info, err := os.Stat(e.ToolRoot)
	if err != nil || !info.IsDir() {
		return ValidationResult{
			Status: StatusMissingToolRoot,
			Detail: fmt.Sprintf("tool root directory not found: %s", e.ToolRoot),
		}
	}

	if info, err := os.Stat(e.Interpreter); err != nil || info.IsDir() {
		return ValidationResult{
			Status: StatusMissingInterpreter,
			Detail: fmt.Sprintf("interpreter executable not found: %s", e.Interpreter),
		}
	}

	if _, err := os.Stat(e.EntryScript()); err != nil {
		return ValidationResult{
			Status: StatusMissingEntryScript,
			Detail: fmt.Sprintf("entry script not found: %s", e.EntryScript()),
		}
	}

	model, err := os.Stat(e.ModelFile())
	if err != nil {
		return ValidationResult{
			Status: StatusMissingModelFile,
			Detail: fmt.Sprintf("model weight file not found: %s", e.ModelFile()),
		}
	}
	if model.Size() < minModelSize {
		return ValidationResult{
			Status: StatusMissingModelFile,
			Detail: fmt.Sprintf("model weight file %s is only %d bytes; expected the real binary payload (looks like a placeholder pointer file)", e.ModelFile(), model.Size()),
		}
	}

	return ValidationResult{Status: StatusValid}
}
