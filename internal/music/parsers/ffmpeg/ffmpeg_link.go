package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

const (
	Channels   = 2
	SampleRate = 48000
	// FrameSize is 20ms at 48kHz.
	FrameSize = 960
)

// Args builds the decoder command line for url starting at seekSec.
func Args(url string, seekSec float64) []string {
	args := make([]string, 0, 20)
	if seekSec > 0 {
		args = append(args, "-ss", strconv.FormatFloat(seekSec, 'f', 3, 64))
	}
	args = append(args,
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", url,
		"-vn",
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-loglevel", "warning",
		"pipe:1",
	)
	return args
}

// Process is a running decoder. Reading yields interleaved s16le stereo PCM.
type Process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer

	once sync.Once
}

// OpenPCM starts ffmpeg (binary at path) decoding url from seekSec.
func OpenPCM(ctx context.Context, path, url string, seekSec float64) (*Process, error) {
	if path == "" {
		path = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, path, Args(url, seekSec)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("command start error: %w", err)
	}
	return &Process{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

func (p *Process) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

// Close kills the decoder and reaps it. It is safe to call more than once.
func (p *Process) Close() error {
	p.once.Do(func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		_ = p.cmd.Wait()
	})
	return nil
}

// Stderr returns the decoder's diagnostic output. Only valid after Close.
func (p *Process) Stderr() string {
	return strings.TrimSpace(p.stderr.String())
}
