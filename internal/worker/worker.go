package worker

// Metadata describes a media source, fetched lazily after the worker starts
type Metadata struct {
	Title           string
	Channel         string
	Thumbnail       string
	DurationSeconds int
}

// Options carries the job-specific arguments for one worker process
type Options struct {
	OutputDir    string
	Format       string
	Quality      string
	EmbedArtwork bool
}

// Result is the outcome of a successful worker run. All fields are
// best-effort: a zero value means the adapter could not determine it.
type Result struct {
	OutputFile               string
	FileSizeBytes            int64
	ThroughputBytesPerSecond float64
}

// Events are the callbacks a running worker feeds. They are invoked from the
// adapter's reader goroutines; receivers must funnel them back onto their own
// coordination path.
type Events struct {
	// Progress reports a strictly increasing percentage, with converting set
	// during the final format-conversion phase
	Progress func(percent float64, converting bool)

	// Done fires exactly once when the process exits. err is nil on exit
	// code 0.
	Done func(res Result, err error)
}

// Handle controls a live worker process
type Handle interface {
	// Pause suspends the process group
	Pause() error

	// Resume continues a suspended process group
	Resume() error

	// Cancel terminates the process group, resuming it first if suspended
	Cancel() error
}

// Worker starts external processes for jobs
type Worker interface {
	// Start spawns a process for the URL. The returned handle is valid until
	// Events.Done fires.
	Start(url string, opts Options, ev Events) (Handle, error)
}
