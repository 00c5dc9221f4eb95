package worker

// Package worker adapts the external yt-dlp process to the queue: it spawns
// one process per active job, extracts progress from the unstructured text
// output, and exposes pause/resume/cancel through process-group signals.
//
// Cancellation is cooperative: the adapter sends SIGTERM and does not
// escalate to SIGKILL, so a worker that ignores the signal keeps its job
// occupied until it exits on its own. Pause and resume rely on SIGSTOP and
// SIGCONT and are unsupported on Windows.
