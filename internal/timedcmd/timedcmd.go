package timedcmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ErrInterrupted is returned by Session.Run after the session
// received a stop signal.
var ErrInterrupted = errors.New("interrupted")

type RunResult struct {
	Stdout []byte
	Stderr []byte
	Time   time.Duration
}

type RunConfig struct {
	Argv    []string
	Workdir string

	// Env entries are appended to the current process environment.
	Env []string

	// Stdout and Stderr, when set, receive a copy of the command
	// output in addition to the result buffers.
	Stdout io.Writer
	Stderr io.Writer
}

// Session runs commands one at a time and tracks the current one so
// that an interrupt can be forwarded to its process group.
type Session struct {
	mu   sync.Mutex
	sig  os.Signal
	proc *os.Process
}

// Interrupt marks the session as stopped and forwards sig to the
// process group of the command being run, if any. Safe to call from
// a signal handler goroutine.
func (s *Session) Interrupt(sig os.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sig = sig
	if s.proc != nil {
		syscall.Kill(-s.proc.Pid, sig.(syscall.Signal))
	}
}

// Interrupted reports whether a stop signal arrived.
func (s *Session) Interrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sig != nil
}

// Run executes the command and reports its wall-clock time.
// On failure the error carries the command's combined output.
// Commands run in their own process group; after an interrupt Run
// refuses to start anything else and returns ErrInterrupted.
func (s *Session) Run(conf RunConfig) (*RunResult, error) {
	runCommand := exec.Command(conf.Argv[0], conf.Argv[1:]...)
	runCommand.Dir = conf.Workdir
	if len(conf.Env) != 0 {
		runCommand.Env = append(os.Environ(), conf.Env...)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runCommand.Stdout = &stdout
	runCommand.Stderr = &stderr
	if conf.Stdout != nil {
		runCommand.Stdout = io.MultiWriter(&stdout, conf.Stdout)
	}
	if conf.Stderr != nil {
		runCommand.Stderr = io.MultiWriter(&stderr, conf.Stderr)
	}

	// New process group, so the whole child tree can be signaled.
	runCommand.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	s.mu.Lock()
	if s.sig != nil {
		s.mu.Unlock()
		return nil, ErrInterrupted
	}
	start := time.Now()
	startErr := runCommand.Start()
	if startErr == nil {
		s.proc = runCommand.Process
	}
	s.mu.Unlock()
	if startErr != nil {
		return nil, fmt.Errorf("start %s: %v", conf.Argv[0], startErr)
	}

	waitErr := runCommand.Wait()
	elapsed := time.Since(start)

	s.mu.Lock()
	s.proc = nil
	interrupted := s.sig != nil
	s.mu.Unlock()

	result := &RunResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
		Time:   elapsed,
	}
	if interrupted {
		return result, ErrInterrupted
	}
	if waitErr != nil {
		var combinedOutput []byte
		combinedOutput = append(combinedOutput, stdout.Bytes()...)
		combinedOutput = append(combinedOutput, stderr.Bytes()...)
		return result, fmt.Errorf("%s: %v: %s", strings.Join(conf.Argv, " "), waitErr, combinedOutput)
	}

	return result, nil
}
