//go:build linux

package ptyproxy

import (
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kaplanelad/shellfirm-go/internal/agentmode"
	"github.com/kaplanelad/shellfirm-go/internal/env"
	"github.com/kaplanelad/shellfirm-go/internal/pipeline"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
	"github.com/kaplanelad/shellfirm-go/internal/shellfirmconfig"
)

// Decision is what a Prompter returns for one completed statement.
type Decision int

const (
	DecisionForward Decision = iota
	DecisionBlock
)

// Prompter runs the interactive (cooked-mode) challenge for one
// statement and returns whether it should proceed. The PTY proxy owns
// switching into and out of cooked mode around the call; the actual
// terminal prompting UI lives outside this package and is injected here
// as a narrow function type.
type Prompter func(assessment agentmode.RiskAssessment) Decision

// Proxy wraps one interactive child process in a PTY, segmenting the
// user's keystrokes into statements via InputBuffer and running the
// pipeline on each one before it reaches the child.
type Proxy struct {
	Env      env.Environment
	Settings shellfirmconfig.Settings
	Catalog  []rules.Rule
	Options  pipeline.Options
	Wrapper  shellfirmconfig.Wrapper
	Prompt   Prompter

	master *os.File
	slave  *os.File
	cmd    *exec.Cmd
	guard  *RawModeGuard
	input  *InputBuffer
}

// Run opens a PTY, spawns binary with args as its child, and drives the
// event loop until the child exits, returning the child's exit code.
// Fail-open discipline: any analysis or challenge error forwards the
// statement rather than blocking the user's session.
func (p *Proxy) Run(binary string, args []string) (int, error) {
	master, slave, err := openPTY()
	if err != nil {
		return -1, err
	}
	p.master = master
	p.slave = slave
	defer master.Close()

	cmd := exec.Command(binary, args...)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0,
	}
	p.cmd = cmd

	if err := cmd.Start(); err != nil {
		slave.Close()
		return -1, err
	}
	slave.Close()

	hostFd := int(os.Stdin.Fd())
	_ = syncTermSize(hostFd, master)

	guard, err := NewRawModeGuard(hostFd)
	if err != nil {
		return -1, err
	}
	p.guard = guard
	defer guard.Close()

	p.input = NewInputBuffer(DelimiterByte(p.Wrapper))

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)
	done := make(chan struct{})
	defer close(done)
	go p.watchWindowResize(hostFd, winch, done)

	if err := p.eventLoop(hostFd); err != nil {
		_ = cmd.Process.Kill()
	}

	_ = cmd.Wait()
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode(), nil
	}
	return -1, nil
}

// eventLoop polls stdin and the PTY master, forwarding ordinary bytes
// immediately and routing each byte of stdin through the InputBuffer,
// pausing around a completed statement to run the pipeline and the
// challenge in cooked mode.
func (p *Proxy) eventLoop(hostFd int) error {
	stdinFd := hostFd
	masterFd := int(p.master.Fd())

	buf := make([]byte, 4096)
	fds := []unix.PollFd{
		{Fd: int32(stdinFd), Events: unix.POLLIN},
		{Fd: int32(masterFd), Events: unix.POLLIN},
	}

	for {
		n, err := unix.Poll(fds, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		if n == 0 {
			continue
		}

		if fds[1].Revents&(unix.POLLIN|unix.POLLHUP) != 0 {
			read, err := p.master.Read(buf)
			if read > 0 {
				os.Stdout.Write(buf[:read])
			}
			if err != nil {
				if err == io.EOF || fds[1].Revents&unix.POLLHUP != 0 {
					return nil
				}
			}
		}

		if fds[0].Revents&unix.POLLIN != 0 {
			n, err := unix.Read(stdinFd, buf)
			if err != nil || n == 0 {
				continue
			}
			for _, c := range buf[:n] {
				p.handleByte(c)
			}
		}
	}
}

func (p *Proxy) handleByte(c byte) {
	if IsControlPassthrough(c) {
		p.writeToChild([]byte{c})
		if ResetsBufferOnPassthrough(c) {
			p.input.Reset()
		}
		return
	}

	if p.input.Feed(c) != ResultStatementComplete {
		p.writeToChild([]byte{c})
		return
	}

	statement := strings.TrimSpace(p.input.Statement())
	if statement == "" {
		p.writeToChild([]byte{p.Wrapper.Delimiter[0]})
		return
	}

	p.drainChildOutput()

	decision := p.analyzeAndChallenge(statement)
	switch decision {
	case DecisionBlock:
		p.writeToChild([]byte{0x03})
	default:
		p.writeToChild([]byte(p.Wrapper.Delimiter))
	}
}

// analyzeAndChallenge runs the pipeline and the injected Prompter in
// cooked mode, restoring raw mode before returning. Any failure along
// the way fails open: DecisionForward.
func (p *Proxy) analyzeAndChallenge(statement string) Decision {
	if err := p.guard.RestoreCooked(); err != nil {
		return DecisionForward
	}
	defer p.guard.ReEnterRaw()

	result := pipeline.AnalyzeCommand(p.Env, statement, p.Options)
	assessment := agentmode.BuildAssessment(result, p.Options.Settings)

	if p.Prompt == nil {
		return DecisionForward
	}
	return p.Prompt(assessment)
}

func (p *Proxy) drainChildOutput() {
	p.master.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
	buf := make([]byte, 4096)
	for {
		n, err := p.master.Read(buf)
		if n > 0 {
			os.Stdout.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	p.master.SetReadDeadline(time.Time{})
}

// watchWindowResize propagates host terminal resizes (SIGWINCH) onto the
// PTY master for the lifetime of the session. It runs on its own
// goroutine and touches only the master fd's winsize ioctl, sharing no
// state with the event loop.
func (p *Proxy) watchWindowResize(hostFd int, winch <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case <-winch:
			_ = syncTermSize(hostFd, p.master)
		case <-done:
			return
		}
	}
}

func (p *Proxy) writeToChild(b []byte) {
	_, _ = p.master.Write(b)
}
