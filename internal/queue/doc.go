package queue

// Package queue implements the download queue orchestrator: admission under
// a configurable concurrency limit, duplicate-submission handling, control
// operations (pause, resume, cancel, retry), and event emission.
//
// All registry mutation and scheduling decisions run on a single coordination
// goroutine consuming a command channel. Worker output, metadata prefetch and
// filesystem work happen off that goroutine and post their results back as
// commands, so per-job transitions are strictly ordered and no map is ever
// written concurrently.
