package synthseg

import (
	"os"
	"path/filepath"
	"testing"
)

// lowerModelThreshold shrinks the model size check so tests don't need to
// write tens of megabytes to disk.
func lowerModelThreshold(t *testing.T) {
	t.Helper()
	old := minModelSize
	minModelSize = 1024
	t.Cleanup(func() { minModelSize = old })
}

// writeFakeInstall lays out a fake tool installation in a temporary directory
// and returns an Environment pointing at it. modelSize controls the size of
// the fake model weight file.
func writeFakeInstall(t *testing.T, modelSize int) Environment {
	t.Helper()
	dir := t.TempDir()

	toolRoot := filepath.Join(dir, "synthseg")
	scriptDir := filepath.Join(toolRoot, "SynthSeg", "scripts", "commands")
	if err := os.MkdirAll(scriptDir, 0755); err != nil {
		t.Fatalf("Failed to create script dir: %v", err)
	}
	script := filepath.Join(scriptDir, "SynthSeg_predict.py")
	if err := os.WriteFile(script, []byte("# predictor\n"), 0644); err != nil {
		t.Fatalf("Failed to write entry script: %v", err)
	}

	modelDir := filepath.Join(toolRoot, "models")
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		t.Fatalf("Failed to create model dir: %v", err)
	}
	model := filepath.Join(modelDir, "synthseg_1.0.h5")
	if err := os.WriteFile(model, make([]byte, modelSize), 0644); err != nil {
		t.Fatalf("Failed to write model file: %v", err)
	}

	interpreter := filepath.Join(dir, "python3")
	if err := os.WriteFile(interpreter, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("Failed to write interpreter: %v", err)
	}

	return Environment{ToolRoot: toolRoot, Interpreter: interpreter}
}

func TestValidateValidInstall(t *testing.T) {
	lowerModelThreshold(t)
	env := writeFakeInstall(t, 2048)

	result := env.Validate()
	if !result.Valid() {
		t.Fatalf("Expected valid installation, got %s: %s", result.Status, result.Detail)
	}
}

func TestValidateMissingToolRoot(t *testing.T) {
	env := Environment{
		ToolRoot:    filepath.Join(t.TempDir(), "does-not-exist"),
		Interpreter: "/usr/bin/python3",
	}

	result := env.Validate()
	if result.Status != StatusMissingToolRoot {
		t.Errorf("Expected %s, got %s", StatusMissingToolRoot, result.Status)
	}
	if result.Valid() {
		t.Error("Result should not be valid")
	}
}

func TestValidateMissingInterpreter(t *testing.T) {
	lowerModelThreshold(t)
	env := writeFakeInstall(t, 2048)
	env.Interpreter = filepath.Join(t.TempDir(), "no-such-python")

	result := env.Validate()
	if result.Status != StatusMissingInterpreter {
		t.Errorf("Expected %s, got %s", StatusMissingInterpreter, result.Status)
	}
}

func TestValidateMissingEntryScript(t *testing.T) {
	lowerModelThreshold(t)
	env := writeFakeInstall(t, 2048)
	if err := os.Remove(env.EntryScript()); err != nil {
		t.Fatalf("Failed to remove entry script: %v", err)
	}

	result := env.Validate()
	if result.Status != StatusMissingEntryScript {
		t.Errorf("Expected %s, got %s", StatusMissingEntryScript, result.Status)
	}
}

func TestValidateMissingModelFile(t *testing.T) {
	lowerModelThreshold(t)
	env := writeFakeInstall(t, 2048)
	if err := os.Remove(env.ModelFile()); err != nil {
		t.Fatalf("Failed to remove model file: %v", err)
	}

	result := env.Validate()
	if result.Status != StatusMissingModelFile {
		t.Errorf("Expected %s, got %s", StatusMissingModelFile, result.Status)
	}
}

// A tiny file at the model path is a placeholder left by an incomplete
// download, not the real weights; it must be flagged, not accepted.
func TestValidatePlaceholderModelFile(t *testing.T) {
	lowerModelThreshold(t)
	env := writeFakeInstall(t, 100)

	result := env.Validate()
	if result.Status != StatusMissingModelFile {
		t.Errorf("Expected %s for placeholder model, got %s", StatusMissingModelFile, result.Status)
	}
	if result.Detail == "" {
		t.Error("Expected a diagnostic explaining the placeholder")
	}
}

func TestDerivedPaths(t *testing.T) {
	env := Environment{ToolRoot: "/opt/synthseg", Interpreter: "/usr/bin/python3"}

	wantScript := filepath.Join("/opt/synthseg", "SynthSeg", "scripts", "commands", "SynthSeg_predict.py")
	if got := env.EntryScript(); got != wantScript {
		t.Errorf("EntryScript = %q, want %q", got, wantScript)
	}

	wantModel := filepath.Join("/opt/synthseg", "models", "synthseg_1.0.h5")
	if got := env.ModelFile(); got != wantModel {
		t.Errorf("ModelFile = %q, want %q", got, wantModel)
	}
}
