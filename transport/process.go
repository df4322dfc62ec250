package transport

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"sync"

	"github.com/alessio/shellescape"
	"github.com/pkg/errors"
)

// Process is an agent running as a child process, driven over its stdio.
type Process struct {
	*Conn

	cmd      *exec.Cmd
	stderr   sync.WaitGroup
	waitOnce sync.Once
	waitErr  error
}

// Spawn starts name with args and connects to it. The agent must speak the
// stream protocol on stdin and stdout; every stderr line goes to the logger.
// Spawn returns once the agent is ready.
func Spawn(ctx context.Context, name string, args []string, opts ...Option) (*Process, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "agent stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "agent stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "agent stderr")
	}

	cmdline := shellescape.QuoteCommand(cmd.Args)
	cfg.logger.Printf("transport: starting agent: %s", cmdline)
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start agent %s", cmdline)
	}

	p := &Process{cmd: cmd}
	p.stderr.Add(1)
	go p.relay(cfg, stderr)

	p.Conn = NewConn(stdout, stdin, opts...)
	if err := p.WaitReady(ctx); err != nil {
		p.Close()
		return nil, errors.Wrapf(err, "agent %s", cmdline)
	}
	return p, nil
}

func (p *Process) relay(cfg config, r io.Reader) {
	defer p.stderr.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cfg.logger.Printf("agent: %s", scanner.Text())
	}
}

// Close closes the agent's stdin and waits for it to exit.
func (p *Process) Close() error {
	p.Conn.Close()
	return p.Wait()
}

// Wait waits for the agent to exit.
func (p *Process) Wait() error {
	p.waitOnce.Do(func() {
		p.stderr.Wait()
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

// Pid returns the agent's process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}
