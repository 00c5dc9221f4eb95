//go:build unix

package worker

import (
	"os/exec"
	"syscall"
)

// setProcessGroup makes the spawned process the leader of its own process
// group so signals reach yt-dlp and any ffmpeg children it forks.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalGroup(pid int, sig syscall.Signal) error {
	return syscall.Kill(-pid, sig)
}

func (h *processHandle) Pause() error {
	return signalGroup(h.pid, syscall.SIGSTOP)
}

func (h *processHandle) Resume() error {
	return signalGroup(h.pid, syscall.SIGCONT)
}

func (h *processHandle) Cancel() error {
	// A stopped process can't handle SIGTERM until it is continued.
	_ = signalGroup(h.pid, syscall.SIGCONT)
	return signalGroup(h.pid, syscall.SIGTERM)
}
