package synthseg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// LineSink receives child process output one line at a time, as it arrives.
type LineSink func(line string)

// Result captures the outcome of a single child process execution.
type Result struct {
	// ExitCode is the child's exit code, or -1 when no code was produced.
	ExitCode int

	// Log is the combined stdout/stderr output of the child.
	Log string
}

// Runner launches a built argument list as a child process and waits for it.
type Runner interface {
	Run(ctx context.Context, env Environment, args []string, sink LineSink) (*Result, error)
}

// ProcessRunner runs the external predictor as a real child process.
//
// The child runs with its working directory set to the tool root, and with
// KMP_DUPLICATE_LIB_OK=TRUE in its environment: without it a duplicate OpenMP
// runtime makes the tool terminate with no error message at all. Stdout and
// stderr are merged into one stream and forwarded to the sink line by line
// for progress visibility, rather than buffered until exit.
//
// Run blocks the calling goroutine until the child terminates. Exactly one
// child is spawned per call; there are no retries. Cancelling the context
// kills the child.
type ProcessRunner struct{}

// kmpDuplicateLibOK works around a known OpenMP runtime conflict that
// otherwise makes the child exit silently.
const kmpDuplicateLibOK = "KMP_DUPLICATE_LIB_OK=TRUE"

// Run executes the argument list and returns the captured exit code and log.
// A non-nil error means the process could not run to completion (failed to
// start, or killed by context cancellation); a nonzero exit code is reported
// through the Result, not as an error.
func (ProcessRunner) Run(ctx context.Context, env Environment, args []string, sink LineSink) (*Result, error) {
	if len(args) == 0 {
		return nil, errors.New("empty argument list")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = env.ToolRoot
	cmd.Env = append(os.Environ(), kmpDuplicateLibOK)

	// Merge stdout and stderr into a single pipe so the sink sees lines in
	// arrival order.
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	var logBuf strings.Builder
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := scanner.Text()
			logBuf.WriteString(line)
			logBuf.WriteByte('\n')
			if sink != nil {
				sink(line)
			}
		}
		// A line over the scanner's cap stops the scan early. The pipe must
		// be drained regardless: with no reader the child's writes block and
		// Wait never returns. Keep the overflow in the log rather than
		// dropping it; it just isn't split into sink lines.
		if scanner.Err() != nil {
			io.Copy(&logBuf, pr)
		}
	}()

	if err := cmd.Start(); err != nil {
		pw.Close()
		<-done
		return nil, fmt.Errorf("failed to start child process: %w", err)
	}

	waitErr := cmd.Wait()
	pw.Close()
	<-done

	if ctx.Err() != nil {
		return &Result{ExitCode: -1, Log: logBuf.String()},
			fmt.Errorf("child process killed: %w", ctx.Err())
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return &Result{ExitCode: -1, Log: logBuf.String()},
				fmt.Errorf("failed waiting for child process: %w", waitErr)
		}
		exitCode = exitErr.ExitCode()
	}

	return &Result{ExitCode: exitCode, Log: logBuf.String()}, nil
}
