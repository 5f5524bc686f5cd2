package synthseg

import (
	"fmt"
	"strings"
)

// ConfigurationError reports that the configured environment failed
// validation. It is raised before any process is launched and is recoverable
// by correcting the configuration.
type ConfigurationError struct {
	// Result is the failing validation outcome.
	Result ValidationResult
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration invalid (%s): %s", e.Result.Status, e.Result.Detail)
}

// InvocationError reports that the child process failed to start, exited with
// a nonzero code, or was killed by the run deadline. The captured output log
// is retained so the user can see what the tool reported before failing.
type InvocationError struct {
	// ExitCode is the child's exit code, or -1 when the process never
	// produced one (failed to start, or was killed).
	ExitCode int

	// Log is the combined stdout/stderr captured from the child.
	Log string

	// Err is the underlying launch or wait error, if any.
	Err error
}

func (e *InvocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("segmentation process failed: %v", e.Err)
	}
	return fmt.Sprintf("segmentation process exited with code %d", e.ExitCode)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// SilentFailureError reports the known failure mode where the external tool
// exits with code 0 but never writes its output files, typically because of
// environment misconfiguration inside the interpreter's package set. It must
// be reported explicitly rather than misreported as success.
type SilentFailureError struct {
	// Missing lists the expected output paths that do not exist on disk.
	Missing []string
}

func (e *SilentFailureError) Error() string {
	return fmt.Sprintf("tool exited successfully but expected output files are missing: %s (this usually indicates a misconfigured interpreter environment)",
		strings.Join(e.Missing, ", "))
}

// ImportError reports that the output files exist but could not be loaded.
// The underlying reader error is surfaced verbatim.
type ImportError struct {
	Err error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("failed to import segmentation results: %v", e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
