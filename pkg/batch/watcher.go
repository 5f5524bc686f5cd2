// Package batch runs segmentation over a directory of images on a schedule.
// Each scan picks up images that have no segmentation output yet and runs
// them one at a time, preserving the workflow's single-run-at-a-time model.
package batch

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"slicersynthseg/pkg/synthseg"
)

// RunFunc performs one segmentation run for the given input image.
type RunFunc func(inputPath string) error

// Watcher periodically scans an input directory for unsegmented MRI images
// and feeds them to a run function.
type Watcher struct {
	inputDir  string
	outputDir string
	schedule  string
	run       RunFunc

	cron *cron.Cron

	mu sync.Mutex
	// scanning guards against overlapping scans when a run outlasts the
	// schedule interval; a late tick is skipped, not queued.
	scanning bool
	// failed remembers inputs whose run failed, so a broken image is not
	// retried on every scan. Cleared only by restarting the watcher.
	failed map[string]bool
}

// NewWatcher creates a watcher over inputDir that writes results to
// outputDir. schedule is a cron expression (robfig/cron syntax, e.g.
// "@every 10m").
func NewWatcher(inputDir, outputDir, schedule string, run RunFunc) *Watcher {
	return &Watcher{
		inputDir:  inputDir,
		outputDir: outputDir,
		schedule:  schedule,
		run:       run,
		failed:    make(map[string]bool),
	}
}

// Start registers the scan with the scheduler and starts it. The first scan
// happens on the first schedule tick, not immediately; call ScanOnce first
// for an immediate pass.
func (w *Watcher) Start() error {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.schedule, func() {
		if _, err := w.ScanOnce(); err != nil {
			log.Printf("batch scan failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", w.schedule, err)
	}
	w.cron.Start()
	return nil
}

// Stop stops the scheduler. A scan already in progress runs to completion.
func (w *Watcher) Stop() {
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}

// ScanOnce performs a single scan pass: every pending image is run
// sequentially. Returns the number of successful runs. A scan that would
// overlap an in-flight one is skipped and returns 0.
func (w *Watcher) ScanOnce() (int, error) {
	w.mu.Lock()
	if w.scanning {
		w.mu.Unlock()
		return 0, nil
	}
	w.scanning = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.scanning = false
		w.mu.Unlock()
	}()

	pending, err := w.Pending()
	if err != nil {
		return 0, err
	}

	done := 0
	for _, input := range pending {
		if err := w.run(input); err != nil {
			log.Printf("segmentation of %s failed: %v", input, err)
			w.mu.Lock()
			w.failed[input] = true
			w.mu.Unlock()
			continue
		}
		done++
	}
	return done, nil
}

// Pending lists the input images that have no segmentation output yet,
// sorted by name. Images whose previous run failed are excluded.
func (w *Watcher) Pending() ([]string, error) {
	entries, err := os.ReadDir(w.inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var pending []string
	for _, entry := range entries {
		if entry.IsDir() || !isImageName(entry.Name()) {
			continue
		}
		input := filepath.Join(w.inputDir, entry.Name())

		w.mu.Lock()
		skip := w.failed[input]
		w.mu.Unlock()
		if skip {
			continue
		}

		segPath, _ := synthseg.DefaultOutputPaths(input, w.outputDir)
		if _, err := os.Stat(segPath); err == nil {
			continue
		}
		pending = append(pending, input)
	}

	sort.Strings(pending)
	return pending, nil
}

// isImageName reports whether a filename looks like an input MRI image.
// Segmentation outputs written into the same directory are excluded so a
// watcher whose output directory equals its input directory does not feed
// its own results back in.
func isImageName(name string) bool {
	if !strings.HasSuffix(name, ".nii") && !strings.HasSuffix(name, ".nii.gz") {
		return false
	}
	base := strings.TrimSuffix(strings.TrimSuffix(name, ".gz"), ".nii")
	return !strings.HasSuffix(base, "_seg")
}
