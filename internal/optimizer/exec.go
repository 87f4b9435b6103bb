package optimizer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// ExecRecompressor is the default Recompressor. It shells out to an
// external lossless PNG optimizer (zopflipng by default) with an
// execution timeout. The command is invoked as
// <command> <extra args...> <path> <path> for in-place rewriting.
type ExecRecompressor struct {
	Command   string
	ExtraArgs []string
	Timeout   time.Duration
}

// NewExecRecompressor returns an ExecRecompressor for the given command.
func NewExecRecompressor(command string, extraArgs []string, timeout time.Duration) *ExecRecompressor {
	if command == "" {
		command = "zopflipng"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ExecRecompressor{
		Command:   command,
		ExtraArgs: extraArgs,
		Timeout:   timeout,
	}
}

// Optimize runs the external optimizer on the destination path.
func (r *ExecRecompressor) Optimize(ctx context.Context, path string) Result {
	res := Result{
		Path:      path,
		StartedAt: time.Now(),
	}

	if info, err := os.Stat(path); err == nil {
		res.SizeBefore = info.Size()
	}

	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	args := make([]string, 0, len(r.ExtraArgs)+2)
	args = append(args, r.ExtraArgs...)
	args = append(args, path, path)

	cmd := exec.CommandContext(runCtx, r.Command, args...)
	out, err := cmd.CombinedOutput()
	res.FinishedAt = time.Now()

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			res.Err = fmt.Errorf("optimizer %s timed out after %v", r.Command, r.Timeout)
		} else {
			res.Err = fmt.Errorf("optimizer %s failed: %w (output: %s)", r.Command, err, string(out))
		}
		return res
	}

	if info, err := os.Stat(path); err == nil {
		res.SizeAfter = info.Size()
	}
	return res
}
