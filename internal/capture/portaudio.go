//go:build portaudio

package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/csheth/voiceletter/internal/observability"
)

const (
	// portAudioFrames is 100ms of audio at 16kHz.
	portAudioFrames = 1600
	// portAudioMaxReadFailures ends the stream after this many failed reads in a row.
	portAudioMaxReadFailures = 5
)

// NewMicrophone returns the default PortAudio input, or a recorder command
// when one is configured explicitly.
func NewMicrophone(recordCommand string) Device {
	if strings.TrimSpace(recordCommand) != "" {
		return NewExecDevice(recordCommand)
	}
	return &PortAudioDevice{}
}

// PortAudioDevice records 16 kHz mono PCM from the system default input.
type PortAudioDevice struct{}

func (d *PortAudioDevice) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	in := make([]int16, portAudioFrames*DefaultFormat.Channels)
	stream, err := portaudio.OpenDefaultStream(DefaultFormat.Channels, 0, float64(DefaultFormat.SampleRate), portAudioFrames, in)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	return &portAudioStream{stream: stream, in: in}, nil
}

type portAudioStream struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	in      []int16
	pending []byte
	closed  atomic.Bool
	once    sync.Once
}

func (s *portAudioStream) Format() Format { return DefaultFormat }

// Read blocks for at most one buffer of audio. Close waits for it to return.
func (s *portAudioStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	failures := 0
	for len(s.pending) == 0 {
		if s.closed.Load() {
			return 0, io.EOF
		}
		if err := s.stream.Read(); err != nil {
			failures++
			if failures >= portAudioMaxReadFailures {
				return 0, fmt.Errorf("read input stream: %w", err)
			}
			observability.Logger().Warn("portaudio read failed", "error", err, "attempt", failures)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		s.pending = appendInt16LE(s.pending[:0], s.in)
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *portAudioStream) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		s.mu.Lock()
		defer s.mu.Unlock()
		err = errors.Join(s.stream.Stop(), s.stream.Close(), portaudio.Terminate())
	})
	return err
}
