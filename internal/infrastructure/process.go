package infrastructure

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/songdl-go/pkg/logger"
)

const waitDelay = 5 * time.Second

// processRunner runs an external tool and appends its combined output to the
// daily acquire log
type processRunner struct {
	binary      string
	eventLogger *logger.MultiLogger // raw output only; nil disables it
}

// run executes the tool and hands every output line to onLine. On failure
// the last line that looks like an error is included in the returned error.
// A cancelled or expired ctx is returned as ctx.Err() so callers can tell a
// timeout from a tool failure.
func (r *processRunner) run(ctx context.Context, label string, args []string, onLine func(string)) error {
	logFile := r.openLog()
	defer logFile.Close()

	writeLogHeader(logFile, label, ShellEscapeCommand(r.binary, args...))

	pr, pw := io.Pipe()
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stdout = pw
	cmd.Stderr = pw
	cmd.WaitDelay = waitDelay

	var (
		wg        sync.WaitGroup
		lastError string
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			fmt.Fprintln(logFile, line)
			if isErrorLine(line) {
				lastError = strings.TrimSpace(line)
			}
			if onLine != nil {
				onLine(line)
			}
		}
		// Drain so the process never blocks on a full pipe
		_, _ = io.Copy(io.Discard, pr)
	}()

	err := cmd.Start()
	if err == nil {
		err = cmd.Wait()
	}
	pw.Close()
	wg.Wait()

	if err != nil {
		if ctx.Err() != nil {
			writeLogFooter(logFile, false, ctx.Err().Error())
			return ctx.Err()
		}
		writeLogFooter(logFile, false, err.Error())
		if lastError != "" {
			return fmt.Errorf("%s failed: %s: %w", label, lastError, err)
		}
		return fmt.Errorf("%s failed: %w", label, err)
	}

	writeLogFooter(logFile, true, label)
	return nil
}

func (r *processRunner) openLog() io.WriteCloser {
	if r.eventLogger != nil {
		if w, err := r.eventLogger.ProcessWriter(); err == nil {
			return w
		}
	}
	return nopWriteCloser{io.Discard}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func isErrorLine(line string) bool {
	return strings.HasPrefix(line, "ERROR") || strings.Contains(line, "Error:")
}

// writeLogHeader writes the process start marker
func writeLogHeader(w io.Writer, label, cmdLine string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(w, "\n=== [%s] %s ===\n", timestamp, label)
	fmt.Fprintf(w, "$ %s\n", cmdLine)
}

// writeLogFooter writes the process end marker
func writeLogFooter(w io.Writer, success bool, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, status, message)
	fmt.Fprint(w, "=== END ===\n\n")
}
