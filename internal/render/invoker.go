package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxDiagnosticBytes caps the transcoder output kept for failure reports.
const maxDiagnosticBytes = 8 << 10

// maxLineBytes caps how much un-terminated output the line logger buffers
// before flushing it as one line.
const maxLineBytes = 64 << 10

// Failure reports a transcoder run that did not produce a usable output:
// non-zero exit, missing/empty output file, or a killed process after the
// caller's timeout. Diagnostics holds a length-capped tail of the process
// output.
type Failure struct {
	ExitCode    int
	Diagnostics string
	Timeout     bool
}

func (f *Failure) Error() string {
	if f.Timeout {
		return "transcoder timed out (exit code " + strconv.Itoa(f.ExitCode) + ")"
	}
	return "transcoder failed with exit code " + strconv.Itoa(f.ExitCode)
}

// InvokeRequest describes one transcoder run.
type InvokeRequest struct {
	PlaylistPath string
	AudioPath    string
	OutputPath   string
	Height       int
}

// Invoker launches and supervises the external transcoder process. All
// process invocations go through Invoke so diagnostics capture is uniform.
type Invoker struct {
	bin string
	log *slog.Logger
}

// NewInvoker returns an Invoker that runs the given transcoder binary
// (normally "ffmpeg").
func NewInvoker(bin string, log *slog.Logger) *Invoker {
	return &Invoker{bin: bin, log: log}
}

// Invoke runs the transcoder and blocks until it exits. The process's error
// stream is merged into its standard output and streamed to the logger.
// Success requires exit code 0 and a non-empty output file; anything else
// returns a *Failure. Cancelling ctx kills the process and the failure is
// marked as a timeout. The temporary playlist is removed on every exit path.
func (inv *Invoker) Invoke(ctx context.Context, req InvokeRequest) error {
	defer os.Remove(req.PlaylistPath)

	args := transcodeArgs(req)
	inv.log.Info("transcoder starting",
		slog.String("bin", inv.bin),
		slog.String("output", req.OutputPath),
		slog.Int("height", req.Height))

	cmd := exec.CommandContext(ctx, inv.bin, args...)
	// Bound the wait for output pipes to close after a kill, in case the
	// process leaves children holding them open.
	cmd.WaitDelay = 3 * time.Second

	tail := &tailBuffer{max: maxDiagnosticBytes}
	lines := &lineWriter{log: inv.log}
	// Stdout and Stderr share the same writer value, so os/exec serializes
	// their writes. Neither destination can fail a write, so process output
	// never stalls on the logging path.
	merged := io.MultiWriter(tail, lines)
	cmd.Stdout = merged
	cmd.Stderr = merged

	runErr := cmd.Run()
	lines.flush()

	if ctx.Err() != nil {
		return &Failure{ExitCode: exitCode(runErr), Diagnostics: tail.String(), Timeout: true}
	}
	if runErr != nil {
		return &Failure{ExitCode: exitCode(runErr), Diagnostics: tail.String()}
	}

	info, err := os.Stat(req.OutputPath)
	if err != nil || info.Size() == 0 {
		diag := "output file missing or empty: " + req.OutputPath
		if s := tail.String(); s != "" {
			diag += "\n" + s
		}
		return &Failure{ExitCode: 0, Diagnostics: diag}
	}

	inv.log.Info("transcoder finished",
		slog.String("output", req.OutputPath),
		slog.Int64("bytes", info.Size()))
	return nil
}

// transcodeArgs builds the fixed transcoder argument contract: concat
// playlist in, narration audio in, scale to the target height preserving
// aspect ratio, normalized pixel format, x264 veryfast at crf 20, aac 192k,
// duration truncated to the shorter input, container optimized for
// progressive playback.
func transcodeArgs(req InvokeRequest) []string {
	return []string{
		"-hide_banner",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", req.PlaylistPath,
		"-i", req.AudioPath,
		"-vf", fmt.Sprintf("scale=-2:%d,format=yuv420p", req.Height),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "20",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		req.OutputPath,
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// lineWriter logs each complete line written to it at debug level. Progress
// runs without a newline longer than maxLineBytes are flushed in chunks so
// the buffer stays bounded.
type lineWriter struct {
	log *slog.Logger
	buf []byte
}

func (l *lineWriter) Write(p []byte) (int, error) {
	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		l.emit(l.buf[:i])
		l.buf = l.buf[i+1:]
	}
	if len(l.buf) > maxLineBytes {
		l.emit(l.buf)
		l.buf = l.buf[:0]
	}
	return len(p), nil
}

// flush logs any trailing output that never got a newline.
func (l *lineWriter) flush() {
	if len(l.buf) > 0 {
		l.emit(l.buf)
		l.buf = l.buf[:0]
	}
}

func (l *lineWriter) emit(b []byte) {
	line := strings.TrimRight(string(b), "\r")
	if line != "" {
		l.log.Debug("transcoder", slog.String("line", line))
	}
}

// tailBuffer keeps the last max bytes written to it. Writes are serialized
// because stdout and stderr share one writer.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
