package adapter

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/kadirpekel/studioforge/errs"
)

// SubprocessResult is the outcome of one command invocation.
type SubprocessResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Subprocess wraps the two command-line media tools the system shells
// out to: every invocation runs with
// an explicit argv list (never a shell string), a timeout, and an
// isolated scratch directory removed on exit.
type Subprocess struct {
	defaultTimeout time.Duration
}

// NewSubprocess builds an adapter with the given default per-invocation
// timeout.
func NewSubprocess(defaultTimeout time.Duration) *Subprocess {
	if defaultTimeout <= 0 {
		defaultTimeout = 5 * time.Minute
	}
	return &Subprocess{defaultTimeout: defaultTimeout}
}

// Run executes argv[0] with argv[1:] as arguments, in workDir, killing
// the whole process group if timeout elapses.
func (s *Subprocess) Run(ctx context.Context, argv []string, workDir string, timeout time.Duration) (SubprocessResult, error) {
	if len(argv) == 0 {
		return SubprocessResult{}, errs.New(errs.UserInputError, "subprocess.run", "empty argv", nil)
	}
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = workDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL) }

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Start()
	if err != nil {
		return SubprocessResult{}, errs.New(errs.AdapterFatal, "subprocess.run", argv[0], err)
	}

	waitErr := cmd.Wait()

	if runCtx.Err() == context.DeadlineExceeded {
		killProcessGroup(cmd)
		return SubprocessResult{Stdout: stdout.String(), Stderr: stderr.String()},
			errs.New(errs.AdapterTransient, "subprocess.run", argv[0]+": timed out", runCtx.Err())
	}

	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return SubprocessResult{Stdout: stdout.String(), Stderr: stderr.String()},
				errs.New(errs.AdapterFatal, "subprocess.run", argv[0], waitErr)
		}
	}

	return SubprocessResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}, nil
}

// killProcessGroup sends SIGKILL to the whole process group so children
// spawned by the media tool (e.g. ffmpeg's own workers) die too.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		_ = cmd.Process.Kill()
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}

// ScratchDir creates a fresh temp directory for one subprocess invocation
// under base, returning the path and a cleanup func that removes it
// unconditionally, whether the invocation succeeded or failed.
func ScratchDir(base, prefix string) (string, func(), error) {
	dir, err := os.MkdirTemp(base, prefix+"-")
	if err != nil {
		return "", func() {}, errs.New(errs.ResourceError, "subprocess.scratch_dir", base, err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}
