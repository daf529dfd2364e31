package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Stream is an acquired input device delivering raw PCM in Format().
type Stream interface {
	io.Reader
	Format() Format
	Close() error
}

// Device hands out exclusive streams. Acquire fails when the input cannot be
// opened, which the controller reports as a permission failure.
type Device interface {
	Acquire(ctx context.Context) (Stream, error)
}

// DefaultRecordCommand records 16 kHz mono PCM from the default ALSA input.
const DefaultRecordCommand = "arecord -q -f S16_LE -r 16000 -c 1 -t raw"

// ExecDevice runs a recorder command and reads raw PCM from its stdout.
type ExecDevice struct {
	Command string
	Format  Format
}

// NewExecDevice builds a device around command, falling back to DefaultRecordCommand.
func NewExecDevice(command string) *ExecDevice {
	if strings.TrimSpace(command) == "" {
		command = DefaultRecordCommand
	}
	return &ExecDevice{Command: command, Format: DefaultFormat}
}

func (d *ExecDevice) Acquire(ctx context.Context) (Stream, error) {
	args := strings.Fields(d.Command)
	if len(args) == 0 {
		return nil, errors.New("record command is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stderr = io.Discard
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("recorder stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", args[0], err)
	}
	format := d.Format
	if format == (Format{}) {
		format = DefaultFormat
	}
	return &execStream{cmd: cmd, stdout: stdout, format: format}, nil
}

type execStream struct {
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	format   Format
	killed   atomic.Bool
	waitOnce sync.Once
	waitErr  error
}

func (s *execStream) Format() Format { return s.format }

func (s *execStream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if err == nil {
		return n, nil
	}
	s.waitOnce.Do(func() { s.waitErr = s.cmd.Wait() })
	if errors.Is(err, io.EOF) && !s.killed.Load() && s.waitErr != nil {
		return n, fmt.Errorf("recorder exited: %w", s.waitErr)
	}
	return n, err
}

// Close stops the recorder; the pending Read observes EOF and reaps the process.
func (s *execStream) Close() error {
	s.killed.Store(true)
	if s.cmd.Process == nil {
		return nil
	}
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// FileDevice replays a WAV file as if it were spoken into a microphone.
// Pace > 0 throttles delivery to real time so pause and the timer behave as
// they would with live input.
type FileDevice struct {
	Path      string
	Pace      bool
	ChunkTime time.Duration
}

func (d *FileDevice) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	pcm, format, err := DecodeWAV(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Path, err)
	}
	return NewPCMStream(pcm, format, d.Pace, d.ChunkTime), nil
}

// NewPCMStream serves pcm as a stream. With pace set, each chunk of chunkTime
// audio is delivered no sooner than it would be by a live device.
func NewPCMStream(pcm []byte, format Format, pace bool, chunkTime time.Duration) Stream {
	if chunkTime <= 0 {
		chunkTime = 100 * time.Millisecond
	}
	chunk := int(int64(format.BytesPerSecond()) * int64(chunkTime) / int64(time.Second))
	if align := format.blockAlign(); align > 0 && chunk%align != 0 {
		chunk -= chunk % align
	}
	if chunk <= 0 {
		chunk = len(pcm)
	}
	return &pcmStream{
		r:      bytes.NewReader(pcm),
		format: format,
		pace:   pace,
		every:  chunkTime,
		chunk:  chunk,
		closed: make(chan struct{}),
	}
}

type pcmStream struct {
	r         *bytes.Reader
	format    Format
	pace      bool
	every     time.Duration
	chunk     int
	closed    chan struct{}
	closeOnce sync.Once
}

func (s *pcmStream) Format() Format { return s.format }

func (s *pcmStream) Read(p []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, io.EOF
	default:
	}
	if s.pace {
		timer := time.NewTimer(s.every)
		select {
		case <-s.closed:
			timer.Stop()
			return 0, io.EOF
		case <-timer.C:
		}
	}
	if len(p) > s.chunk {
		p = p[:s.chunk]
	}
	return s.r.Read(p)
}

func (s *pcmStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
