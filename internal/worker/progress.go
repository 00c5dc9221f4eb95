package worker

import (
	"regexp"
	"strconv"
	"strings"
)

// Output line prefixes that signal the format-conversion phase
var convertingMarkers = []string{
	"[ExtractAudio]",
	"[Merger]",
	"[ffmpeg]",
	"[VideoConvertor]",
}

var (
	percentRe = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)%`)
	destRe    = regexp.MustCompile(`Destination:\s*(.+)$`)
	mergeRe   = regexp.MustCompile(`Merging formats into "(.+)"`)
)

// lineParser extracts progress, output path and diagnostics from the
// worker's text output. It is not safe for concurrent use; the adapter
// serializes lines through it.
type lineParser struct {
	lastPercent float64
	converting  bool
	outputPath  string
	errorLines  []string
}

// parsedProgress is the per-line result: ok is false when the line carried
// no progress change
type parsedProgress struct {
	percent    float64
	converting bool
	ok         bool
}

// parse consumes one output line. fromStderr marks lines read from the
// process's stderr stream.
func (p *lineParser) parse(line string, fromStderr bool) parsedProgress {
	line = strings.TrimSpace(line)
	if line == "" {
		return parsedProgress{}
	}

	if fromStderr {
		if strings.HasPrefix(line, "ERROR:") || !strings.HasPrefix(line, "WARNING:") {
			p.errorLines = append(p.errorLines, line)
		}
	}

	for _, marker := range convertingMarkers {
		if strings.HasPrefix(line, marker) {
			p.converting = true
		}
	}

	if m := mergeRe.FindStringSubmatch(line); m != nil {
		p.outputPath = strings.TrimSpace(m[1])
	} else if m := destRe.FindStringSubmatch(line); m != nil {
		p.outputPath = strings.TrimSpace(m[1])
	}

	if p.converting {
		// A converting line itself is worth surfacing once so observers can
		// show the finishing-up state instead of a stalled bar.
		if p.lastPercent < 100 {
			p.lastPercent = 100
			return parsedProgress{percent: 100, converting: true, ok: true}
		}
		return parsedProgress{}
	}

	m := percentRe.FindStringSubmatch(line)
	if m == nil {
		return parsedProgress{}
	}
	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil || percent > 100 {
		return parsedProgress{}
	}

	// Monotonicity guard: yt-dlp re-prints lines and restarts percentages per
	// fragment; only a strict increase is an observable progress change.
	if percent <= p.lastPercent {
		return parsedProgress{}
	}
	p.lastPercent = percent
	return parsedProgress{percent: percent, ok: true}
}

// errorText returns the collected diagnostic output, or empty when the
// process produced none
func (p *lineParser) errorText() string {
	if len(p.errorLines) == 0 {
		return ""
	}
	// Prefer explicit ERROR: lines when present.
	for _, l := range p.errorLines {
		if strings.HasPrefix(l, "ERROR:") {
			return l
		}
	}
	const maxLines = 5
	lines := p.errorLines
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n")
}
