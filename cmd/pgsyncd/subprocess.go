package main

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"

	"github.com/pixelgardenlabs/pgsync/internal/plog"
)

// agentProcess wraps a spawned remote agent subprocess, exposing its stdio
// pipes as a single io.ReadWriteCloser so jsonagent.NewClient can frame
// envelopes over it, and draining its stderr line-by-line into the logger.
type agentProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// rwc adapts an agentProcess's stdin/stdout pipes to io.ReadWriteCloser.
type rwc struct {
	r io.ReadCloser
	w io.WriteCloser
}

func (p rwc) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p rwc) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p rwc) Close() error {
	werr := p.w.Close()
	rerr := p.r.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// spawnAgent starts the remote agent subprocess described by argv, wiring
// its stdin/stdout as the duplex RPC pipe and its stderr into the logger.
// The subprocess is placed in its own process group (procattr_unix.go /
// procattr_windows.go). Shutdown closes its stdio pipes and waits for it to
// exit; no signal is sent to the process group.
func spawnAgent(argv []string) (*agentProcess, io.ReadWriteCloser, error) {
	if len(argv) == 0 {
		return nil, nil, fmt.Errorf("pgsyncd: agent.command is empty; nothing to spawn")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	setProcAttr(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("pgsyncd: agent stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("pgsyncd: agent stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("pgsyncd: agent stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("pgsyncd: start agent %v: %w", argv, err)
	}

	go drainStderr(stderr)

	ap := &agentProcess{cmd: cmd, stdin: stdin, stdout: stdout}
	return ap, rwc{r: stdout, w: stdin}, nil
}

// drainStderr copies the remote agent's stderr into the logger line by
// line, until the pipe closes.
func drainStderr(stderr io.ReadCloser) {
	sc := bufio.NewScanner(stderr)
	sc.Buffer(make([]byte, 0, 4096), 1024*1024)
	for sc.Scan() {
		plog.Warn("agent stderr", "line", sc.Text())
	}
}

// wait waits for the agent subprocess to exit after its stdio pipes are
// closed, reaping it instead of leaving a zombie behind.
func (p *agentProcess) wait() error {
	return p.cmd.Wait()
}
