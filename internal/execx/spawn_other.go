//go:build !unix

package execx

import "os/exec"

func detach(_ *exec.Cmd) {}
