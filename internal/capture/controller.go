package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/csheth/voiceletter/internal/letter"
	"github.com/csheth/voiceletter/internal/observability"
)

// State is a capture session state.
type State int

const (
	Idle State = iota
	Recording
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const defaultChunkSize = 3200

// Option customizes a Controller.
type Option func(*Controller)

// WithClock injects the time source used by the elapsed counter.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithHandoff registers fn to receive each artifact produced by Stop.
func WithHandoff(fn func(letter.AudioArtifact)) Option {
	return func(c *Controller) { c.handoff = fn }
}

// WithChunkSize sets the read buffer size of the capture loop.
func WithChunkSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithIDGenerator overrides uuid session ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// Controller owns the input device for one capture session at a time.
// Transitions requested from the wrong state are ignored.
type Controller struct {
	device    Device
	now       func() time.Time
	newID     func() string
	handoff   func(letter.AudioArtifact)
	chunkSize int

	mu       sync.Mutex
	state    State
	starting bool
	session  *session
}

type session struct {
	id       string
	stream   Stream
	format   Format
	release  sync.Once
	closeErr error

	chunks  [][]byte
	elapsed time.Duration
	resumed time.Time

	done      chan struct{}
	finished  chan struct{}
	readErr   error
	encodeErr error
}

func (s *session) releaseStream() {
	s.release.Do(func() {
		s.closeErr = s.stream.Close()
	})
}

// NewController builds a controller over device.
func NewController(device Device, opts ...Option) *Controller {
	c := &Controller{
		device:    device,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start acquires the device and begins a new session. It is a no-op unless
// the controller is Idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Idle || c.starting {
		c.mu.Unlock()
		return nil
	}
	c.starting = true
	c.mu.Unlock()

	stream, err := c.device.Acquire(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.starting = false
	if err != nil {
		return letter.Wrap(letter.ErrPermission, "acquire input device", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		_ = stream.Close()
		return letter.Wrap(letter.ErrPermission, "acquire input device", ctxErr)
	}

	s := &session{
		id:       c.newID(),
		stream:   stream,
		format:   stream.Format(),
		resumed:  c.now(),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	c.session = s
	c.state = Recording
	go c.capture(s)

	observability.LoggerFromContext(observability.WithSessionID(ctx, s.id)).Info("capture started",
		"sample_rate", s.format.SampleRate, "channels", s.format.Channels)
	return nil
}

func (c *Controller) capture(s *session) {
	defer close(s.done)
	buf := make([]byte, c.chunkSize)
	for {
		n, err := s.stream.Read(buf)
		if n > 0 {
			c.mu.Lock()
			if c.session == s && c.state == Recording {
				fragment := make([]byte, n)
				copy(fragment, buf[:n])
				s.chunks = append(s.chunks, fragment)
			}
			c.mu.Unlock()
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			c.mu.Lock()
			s.readErr = err
			c.mu.Unlock()
			observability.Logger().Warn("capture stream failed", "session_id", s.id, "error", err)
		}
		s.releaseStream()
		close(s.finished)
		return
	}
}

// Pause halts fragment collection and the elapsed counter.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Recording {
		return
	}
	c.session.elapsed += c.now().Sub(c.session.resumed)
	c.state = Paused
}

// Resume continues a paused session.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Paused {
		return
	}
	c.session.resumed = c.now()
	c.state = Recording
}

// Stop releases the device, assembles the fragments into a WAV artifact and
// hands it off. It returns nil unless the controller was Recording or Paused.
func (c *Controller) Stop() *letter.AudioArtifact {
	c.mu.Lock()
	if c.state != Recording && c.state != Paused {
		c.mu.Unlock()
		return nil
	}
	s := c.session
	if c.state == Recording {
		s.elapsed += c.now().Sub(s.resumed)
	}
	c.state = Stopped
	c.mu.Unlock()

	s.releaseStream()
	<-s.done

	c.mu.Lock()
	size := 0
	for _, chunk := range s.chunks {
		size += len(chunk)
	}
	pcm := make([]byte, 0, size)
	for _, chunk := range s.chunks {
		pcm = append(pcm, chunk...)
	}
	handoff := c.handoff
	c.mu.Unlock()

	artifact := letter.AudioArtifact{
		MIMEType: "audio/wav",
		Filename: "recording.wav",
		Duration: s.format.Duration(len(pcm)),
	}
	if len(pcm) > 0 {
		data, err := EncodeWAV(pcm, s.format)
		if err != nil {
			observability.Logger().Error("encode capture", "session_id", s.id, "error", err)
			c.mu.Lock()
			s.encodeErr = letter.Wrap(letter.ErrTranscription, "encode recording", err)
			c.mu.Unlock()
		} else {
			artifact.Data = data
		}
	}
	observability.Logger().Info("capture stopped", "session_id", s.id,
		"fragments", len(s.chunks), "bytes", len(pcm), "elapsed", s.elapsed.Truncate(time.Second).String())

	if handoff != nil {
		handoff(artifact)
	}
	return &artifact
}

// Cancel abandons a Recording or Paused session without producing audio.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.state != Recording && c.state != Paused {
		c.mu.Unlock()
		return
	}
	s := c.session
	c.session = nil
	c.state = Idle
	c.mu.Unlock()

	s.releaseStream()
	<-s.done
	observability.Logger().Info("capture cancelled", "session_id", s.id)
}

// Reset returns a Stopped controller to Idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Stopped {
		return
	}
	c.session = nil
	c.state = Idle
}

// State reports the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Elapsed is the recorded time of the current session at 1 second resolution.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return 0
	}
	elapsed := c.session.elapsed
	if c.state == Recording {
		elapsed += c.now().Sub(c.session.resumed)
	}
	return elapsed.Truncate(time.Second)
}

// SessionID is the id of the current session, or "" when Idle.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.id
}

// Err reports an abnormal end of the current session's stream, or after
// Stop, a recording that could not be assembled.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	if c.session.readErr != nil {
		return c.session.readErr
	}
	return c.session.encodeErr
}

// Finished is closed when the current session's stream ends on its own or
// fails. It is nil when no session exists.
func (c *Controller) Finished() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return c.session.finished
}
