//go:build unix

package execx

import (
	"os/exec"
	"syscall"
)

// detach places the child in its own session so it survives our exit and
// never receives our terminal signals.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
