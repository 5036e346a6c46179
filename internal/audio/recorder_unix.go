//go:build unix

package audio

import (
	"os/exec"
	"syscall"
)

// detachProcessGroup puts ffmpeg in its own process group so terminal job control
// signals aimed at the foreground group do not reach it.
func detachProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
