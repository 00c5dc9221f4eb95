//go:build windows

package worker

import (
	"errors"
	"os/exec"
)

// ErrUnsupported is returned for suspend/continue on platforms without
// process-group stop semantics.
var ErrUnsupported = errors.New("worker: pause/resume not supported on this platform")

func setProcessGroup(_ *exec.Cmd) {}

func (h *processHandle) Pause() error {
	return ErrUnsupported
}

func (h *processHandle) Resume() error {
	return ErrUnsupported
}

func (h *processHandle) Cancel() error {
	return h.proc.Kill()
}
