package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/usbdev"
)

// State is a capture session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateAcknowledged
	StateCapturing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateAcknowledged:
		return "acknowledged"
	case StateCapturing:
		return "capturing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Cause records why a session failed, or why it ran degraded.
type Cause int

const (
	CauseNone Cause = iota
	CauseArmWriteFailed
	CauseReadBudgetExceeded
	CauseInterrupted
)

func (c Cause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseArmWriteFailed:
		return "arm write failed"
	case CauseReadBudgetExceeded:
		return "read budget exceeded"
	case CauseInterrupted:
		return "interrupted"
	}
	return fmt.Sprintf("cause(%d)", int(c))
}

var (
	ErrArmWriteFailed     = errors.New("capture: arm command write failed")
	ErrReadBudgetExceeded = errors.New("capture: read error budget exceeded")
	ErrSessionUsed        = errors.New("capture: session already run")
)

// Result summarizes a finished session. Data holds whatever was captured,
// including partial data from a failed session.
type Result struct {
	State    State
	Cause    Cause
	Degraded bool // the arm write failed and the capture was attempted anyway
	Trace    []State

	Ack        []byte
	ArmErr     error
	AckErr     error
	CaptureErr error

	Reads       int // chunk read attempts
	Chunks      int // successful chunk reads
	Failures    int // failed chunk reads
	ShortPacket bool
	Full        bool
	Data        []byte
	Elapsed     time.Duration
}

// Session drives one arm / acknowledge / capture / stream exchange. A
// session runs once; create a new one for every capture.
type Session struct {
	t     usbdev.Transport
	cfg   Config
	log   logr.Logger
	buf   *Buffer
	state State
	trace []State
	used  bool
}

// NewSession creates a session over t. The transport stays owned by the
// caller.
func NewSession(t usbdev.Transport, cfg Config, log logr.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		t:     t,
		cfg:   cfg,
		log:   log.WithName("capture"),
		buf:   NewBuffer(cfg.MaxBuffer),
		state: StateIdle,
		trace: []State{StateIdle},
	}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

func (s *Session) enter(st State) {
	s.log.V(1).Info("state transition", "from", s.state.String(), "to", st.String())
	s.state = st
	s.trace = append(s.trace, st)
}

// Run executes the session. On failure both the result (with any partial
// data) and an error wrapping ErrArmWriteFailed, ErrReadBudgetExceeded or
// the context error are returned.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	if s.used {
		return nil, ErrSessionUsed
	}
	s.used = true
	start := time.Now()

	res := &Result{}
	err := s.run(ctx, res)

	res.State = s.state
	res.Trace = append([]State(nil), s.trace...)
	res.Data = append([]byte(nil), s.buf.Bytes()...)
	res.Elapsed = time.Since(start)
	s.buf = nil

	s.log.Info("capture finished",
		"state", res.State.String(),
		"cause", res.Cause.String(),
		"bytes", len(res.Data),
		"chunks", res.Chunks,
		"failures", res.Failures,
		"degraded", res.Degraded)
	return res, err
}

func (s *Session) run(ctx context.Context, res *Result) error {
	cfg := s.cfg

	if _, err := s.t.Bulk(cfg.BulkOut, cfg.ArmCommand, cfg.CommandTimeout); err != nil {
		res.ArmErr = err
		res.Cause = CauseArmWriteFailed
		if cfg.StrictArm {
			s.log.Error(err, "arm command failed")
			s.enter(StateFailed)
			return fmt.Errorf("%w: %w", ErrArmWriteFailed, err)
		}
		s.log.Info("arm command failed, continuing degraded", "error", err.Error())
		res.Degraded = true
	}
	s.enter(StateArmed)

	if !cfg.SkipAck {
		ack := make([]byte, cfg.AckLength)
		n, err := s.t.Bulk(cfg.BulkIn, ack, cfg.AckTimeout)
		if err != nil {
			res.AckErr = err
			s.log.Info("no acknowledge", "error", err.Error())
		} else {
			res.Ack = ack[:n]
			s.log.V(1).Info("acknowledge", "bytes", n, "data", fmt.Sprintf("% X", res.Ack))
		}
		// a failed read still advances; AckErr records it
		s.enter(StateAcknowledged)
	}

	if _, err := s.t.Bulk(cfg.BulkOut, cfg.CaptureCommand, cfg.CommandTimeout); err != nil {
		res.CaptureErr = err
		s.log.Info("capture command failed, reading anyway", "error", err.Error())
	}
	s.enter(StateCapturing)

	return s.stream(ctx, res)
}

// stream reads chunks until a short packet, a full buffer, or ErrorBudget
// consecutive failed reads.
func (s *Session) stream(ctx context.Context, res *Result) error {
	cfg := s.cfg
	consecutive := 0

	for {
		if err := ctx.Err(); err != nil {
			if res.Cause == CauseNone {
				res.Cause = CauseInterrupted
			}
			s.enter(StateFailed)
			return err
		}
		if s.buf.Full() {
			res.Full = true
			s.enter(StateDone)
			return nil
		}

		chunk := s.buf.Next(cfg.ChunkSize)
		n, err := s.t.Bulk(cfg.BulkIn, chunk, cfg.ChunkTimeout)
		res.Reads++
		if err != nil {
			res.Failures++
			consecutive++
			s.log.V(1).Info("chunk read failed",
				"attempt", consecutive,
				"budget", cfg.ErrorBudget,
				"timeout", usbdev.IsTimeout(err),
				"error", err.Error())
			if consecutive >= cfg.ErrorBudget {
				res.Cause = CauseReadBudgetExceeded
				s.enter(StateFailed)
				return fmt.Errorf("%w after %d reads: %w", ErrReadBudgetExceeded, res.Reads, err)
			}
			continue
		}

		consecutive = 0
		if n > len(chunk) {
			n = len(chunk)
		}
		s.buf.Advance(n)
		res.Chunks++
		s.log.V(1).Info("chunk", "bytes", n, "total", s.buf.Len())

		if s.buf.Full() {
			res.Full = true
			s.enter(StateDone)
			return nil
		}
		if n < cfg.ShortPacket {
			res.ShortPacket = true
			s.enter(StateDone)
			return nil
		}
	}
}
