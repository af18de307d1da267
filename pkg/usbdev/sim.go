package usbdev

import (
	"errors"
	"time"
)

// CallKind distinguishes recorded simulator calls.
type CallKind uint8

const (
	CallControl CallKind = iota
	CallBulk
	CallReset
)

// Call captures one transfer issued against a SimTransport.
type Call struct {
	Kind     CallKind
	RType    uint8
	Request  uint8
	Value    uint16
	Index    uint16
	Endpoint uint8
	Data     []byte // OUT payload, or the IN buffer as returned
	Length   int    // requested length
	Timeout  time.Duration
	N        int
	Err      error
}

// ControlHook emulates the device side of a control transfer.
type ControlHook func(rType, request uint8, value, index uint16, data []byte) (int, error)

// BulkHook emulates the device side of a bulk transfer.
type BulkHook func(endpoint uint8, data []byte) (int, error)

// SimTransport is an in-memory Transport useful for unit tests. It records
// every call and can provide device behaviour through OnControl and OnBulk.
type SimTransport struct {
	OnControl ControlHook
	OnBulk    BulkHook
	OnReset   func() error

	calls  []Call
	closed bool
}

// NewSimTransport constructs an empty simulator. Without hooks, control IN
// transfers return zeroed data, OUT transfers succeed and bulk IN transfers
// time out.
func NewSimTransport() *SimTransport {
	return &SimTransport{}
}

// ErrSimClosed is returned for transfers issued after Close.
var ErrSimClosed = errors.New("usbdev: simulator closed")

// Control implements Transport.
func (s *SimTransport) Control(rType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error) {
	call := Call{
		Kind:    CallControl,
		RType:   rType,
		Request: request,
		Value:   value,
		Index:   index,
		Length:  len(data),
		Timeout: timeout,
	}

	var n int
	var err error
	switch {
	case s.closed:
		err = ErrSimClosed
	case s.OnControl != nil:
		n, err = s.OnControl(rType, request, value, index, data)
	case IsIn(rType):
		for i := range data {
			data[i] = 0
		}
		n = len(data)
	default:
		n = len(data)
	}

	if err != nil {
		err = wrapSimError(controlOp(rType, request), IsIn(rType), err)
	}
	call.Data = append([]byte(nil), data[:clamp(n, len(data))]...)
	call.N, call.Err = n, err
	s.calls = append(s.calls, call)
	return n, err
}

// Bulk implements Transport.
func (s *SimTransport) Bulk(endpoint uint8, data []byte, timeout time.Duration) (int, error) {
	call := Call{
		Kind:     CallBulk,
		Endpoint: endpoint,
		Length:   len(data),
		Timeout:  timeout,
	}

	var n int
	var err error
	switch {
	case s.closed:
		err = ErrSimClosed
	case s.OnBulk != nil:
		n, err = s.OnBulk(endpoint, data)
	case IsIn(endpoint):
		err = ErrTimeout
	default:
		n = len(data)
	}

	if err != nil {
		err = wrapSimError(bulkOp(endpoint), IsIn(endpoint), err)
	}
	call.Data = append([]byte(nil), data[:clamp(n, len(data))]...)
	call.N, call.Err = n, err
	s.calls = append(s.calls, call)
	return n, err
}

// Reset implements Resetter.
func (s *SimTransport) Reset() error {
	s.calls = append(s.calls, Call{Kind: CallReset})
	if s.OnReset != nil {
		return s.OnReset()
	}
	return nil
}

// Close implements Transport.
func (s *SimTransport) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *SimTransport) Closed() bool {
	return s.closed
}

// Calls returns a copy of every recorded call in issue order.
func (s *SimTransport) Calls() []Call {
	return append([]Call(nil), s.calls...)
}

// ControlWrites returns the recorded control OUT calls.
func (s *SimTransport) ControlWrites() []Call {
	var out []Call
	for _, c := range s.calls {
		if c.Kind == CallControl && !IsIn(c.RType) {
			out = append(out, c)
		}
	}
	return out
}

// BulkReads returns the recorded bulk IN calls.
func (s *SimTransport) BulkReads() []Call {
	var out []Call
	for _, c := range s.calls {
		if c.Kind == CallBulk && IsIn(c.Endpoint) {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log.
func (s *SimTransport) ResetCalls() {
	s.calls = nil
}

// wrapSimError converts hook errors into TransportErrors so callers observe
// the same error shape as with real hardware. Hooks may return the bare
// ErrTimeout / ErrReadFailed / ErrWriteFailed sentinels.
func wrapSimError(op string, in bool, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	switch {
	case errors.Is(err, ErrTimeout):
		return &TransportError{Kind: ErrTimeout, Op: op}
	case errors.Is(err, ErrReadFailed), errors.Is(err, ErrWriteFailed):
		return &TransportError{Kind: err, Op: op}
	}
	return NewTransportError(op, in, false, err)
}

func clamp(n, limit int) int {
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}
