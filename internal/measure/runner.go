// File: internal/measure/runner.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package measure

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/momentics/hioload-pipe/api"
)

// Runner executes one writer and reader connected by a pipe and returns
// the reader's report line.
type Runner interface {
	RunPair(ctx context.Context, writerArgs, readerArgs []string) (string, error)
}

// ExecRunner re-executes Binary with the write and read subcommands.
type ExecRunner struct {
	Binary string
}

// RunPair implements Runner. The writer's stderr is discarded; the reader's
// is returned in the error when it fails.
func (e ExecRunner) RunPair(ctx context.Context, writerArgs, readerArgs []string) (string, error) {
	const op = "measure.RunPair"
	pr, pw, err := os.Pipe()
	if err != nil {
		return "", api.Wrap(api.ErrCodeResource, op, err, "could not create pipe")
	}
	w := exec.CommandContext(ctx, e.Binary, append([]string{"write"}, writerArgs...)...)
	w.Stdout = pw
	r := exec.CommandContext(ctx, e.Binary, append([]string{"read"}, readerArgs...)...)
	r.Stdin = pr
	var out, errOut bytes.Buffer
	r.Stdout = &out
	r.Stderr = &errOut

	if err := w.Start(); err != nil {
		pr.Close()
		pw.Close()
		return "", api.Wrap(api.ErrCodeResource, op, err, "could not start writer")
	}
	if err := r.Start(); err != nil {
		pr.Close()
		pw.Close()
		_ = w.Process.Kill()
		_ = w.Wait()
		return "", api.Wrap(api.ErrCodeResource, op, err, "could not start reader")
	}
	// Only the children may hold the pipe ends, or EOF and EPIPE never arrive.
	pr.Close()
	pw.Close()

	rerr := r.Wait()
	werr := w.Wait()
	if rerr != nil {
		return "", api.Wrap(api.ErrCodeTransport, op, rerr, "reader failed").
			WithContext("stderr", strings.TrimSpace(errOut.String()))
	}
	if werr != nil {
		return "", api.Wrap(api.ErrCodeTransport, op, werr, "writer failed")
	}
	return strings.TrimSpace(out.String()), nil
}
