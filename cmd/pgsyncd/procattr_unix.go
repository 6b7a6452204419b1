//go:build !windows

package main

import (
	"os/exec"

	"golang.org/x/sys/unix"
)

// setProcAttr puts the remote agent subprocess in its own process group, so
// the whole subprocess tree can be signalled together on shutdown instead of
// just the immediate child.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
}
