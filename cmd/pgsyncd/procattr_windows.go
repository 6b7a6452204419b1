//go:build windows

package main

import (
	"os/exec"

	"golang.org/x/sys/windows"
)

// setProcAttr puts the remote agent subprocess in its own process group, so
// the whole subprocess tree can be terminated together on shutdown instead of
// just the immediate child.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &windows.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
}
