package worker

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"
)

// Binary name of the external worker
const DefaultBinary = "yt-dlp"

// Output filename template passed to the worker
const outputTemplate = "%(title)s.%(ext)s"

// YTDLP is the production Worker implementation wrapping the yt-dlp CLI
type YTDLP struct {
	binary string
	log    *slog.Logger
}

// NewYTDLP creates an adapter using the given binary name (empty for the
// default) and logger
func NewYTDLP(binary string, log *slog.Logger) *YTDLP {
	if binary == "" {
		binary = DefaultBinary
	}
	return &YTDLP{binary: binary, log: log}
}

// processHandle implements Handle over a live process. Pause/Resume/Cancel
// live in the platform-specific signal files.
type processHandle struct {
	pid  int
	proc *os.Process
}

// buildArgs assembles the yt-dlp invocation for one job
func buildArgs(url string, opts Options) []string {
	args := []string{
		"--newline",
		"--no-playlist",
		"--restrict-filenames",
		"-P", opts.OutputDir,
		"-o", outputTemplate,
	}
	if opts.Quality == "audio" {
		args = append(args, "-x", "--audio-format", opts.Format)
		if opts.EmbedArtwork {
			args = append(args, "--embed-thumbnail")
		}
	} else {
		args = append(args, "-f", selectFormat(opts.Quality), "--merge-output-format", opts.Format)
	}
	return append(args, url)
}

// selectFormat maps a quality preset to a yt-dlp format selector
func selectFormat(quality string) string {
	switch quality {
	case "best":
		return "bv*+ba/b"
	case "medium":
		return "bv*[height<=720]+ba/b[height<=720]"
	default:
		return "bv*+ba/b"
	}
}

// Start spawns a worker process for the URL. The returned handle is
// registered by the caller before any observable transition, so control
// requests racing with startup always find it.
func (y *YTDLP) Start(url string, opts Options, ev Events) (Handle, error) {
	cmd := exec.Command(y.binary, buildArgs(url, opts)...)
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("setup stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", y.binary, err)
	}

	handle := &processHandle{pid: cmd.Process.Pid, proc: cmd.Process}
	started := time.Now()

	go y.run(cmd, stdout, stderr, opts, ev, started)

	return handle, nil
}

// outLine is one scanned output line tagged with its stream
type outLine struct {
	text   string
	stderr bool
}

// run drains the process output and reports the outcome. It owns the single
// lineParser; scanned lines from both streams are serialized through a
// channel so the parser never races.
func (y *YTDLP) run(cmd *exec.Cmd, stdout, stderr io.Reader, opts Options, ev Events, started time.Time) {
	lines := make(chan outLine, 64)

	var g errgroup.Group
	g.Go(func() error { return scanLines(stdout, false, lines) })
	g.Go(func() error { return scanLines(stderr, true, lines) })
	go func() {
		_ = g.Wait()
		close(lines)
	}()

	parser := &lineParser{}
	for l := range lines {
		p := parser.parse(l.text, l.stderr)
		if p.ok && ev.Progress != nil {
			ev.Progress(p.percent, p.converting)
		}
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		detail := parser.errorText()
		if detail == "" {
			detail = fmt.Sprintf("worker process failed: %v", waitErr)
		}
		ev.Done(Result{}, fmt.Errorf("%s", detail))
		return
	}

	res := y.collectResult(parser.outputPath, opts, started)
	ev.Done(res, nil)
}

// collectResult determines the output file and its size/throughput. Every
// step is best-effort; a result with zero fields is still a success.
func (y *YTDLP) collectResult(reported string, opts Options, started time.Time) Result {
	path := reported
	if path == "" {
		// The worker did not print a usable destination; fall back to the
		// newest matching file in the output directory. Concurrent jobs
		// writing the same directory can misattribute files here.
		found, err := newestByExtension(opts.OutputDir, opts.Format)
		if err != nil {
			y.log.Warn("output file discovery failed", "dir", opts.OutputDir, "error", err)
			return Result{}
		}
		path = found
	}

	res := Result{OutputFile: path}
	info, err := os.Stat(path)
	if err != nil {
		y.log.Warn("stat output file failed", "path", path, "error", err)
		return res
	}
	res.FileSizeBytes = info.Size()
	if elapsed := time.Since(started).Seconds(); elapsed > 0 {
		res.ThroughputBytesPerSecond = float64(info.Size()) / elapsed
	}
	return res
}

// scanLines reads a stream line by line, splitting on LF or CR so yt-dlp's
// carriage-return progress updates surface as individual lines.
func scanLines(r io.Reader, fromStderr bool, out chan<- outLine) error {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	scanner.Split(splitByNewlineOrCR)
	for scanner.Scan() {
		out <- outLine{text: scanner.Text(), stderr: fromStderr}
	}
	return scanner.Err()
}

// splitByNewlineOrCR is a bufio.SplitFunc treating both \n and \r as line
// terminators
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
