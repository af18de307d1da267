package usbdev

import (
	"errors"
	"fmt"
	"time"
)

// bmRequestType values used for vendor register access. Bit 7 selects the
// data stage direction.
const (
	VendorOut uint8 = 0x40 // vendor | device | host-to-device
	VendorIn  uint8 = 0xC0 // vendor | device | device-to-host

	DirectionIn uint8 = 0x80
)

// Transport abstracts the control and bulk primitives of an opened USB device.
// Every call blocks for at most its timeout. Implementations are not safe for
// concurrent use; callers issue transfers strictly in sequence.
type Transport interface {
	// Control issues a control transfer. The data stage direction follows
	// bit 7 of rType; for IN transfers data is filled by the device.
	Control(rType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error)

	// Bulk issues a bulk transfer on the endpoint address. Bit 7 of the
	// address selects IN (device-to-host) or OUT.
	Bulk(endpoint uint8, data []byte, timeout time.Duration) (int, error)

	Close() error
}

// Resetter is implemented by transports that can issue a USB port reset and
// bring the device back to its configured state.
type Resetter interface {
	Reset() error
}

// IsIn reports whether an endpoint address or request type refers to the
// device-to-host direction.
func IsIn(addrOrType uint8) bool {
	return addrOrType&DirectionIn != 0
}

var (
	// ErrDeviceNotFound is returned by Open when no device matches the
	// requested VID:PID.
	ErrDeviceNotFound = errors.New("usbdev: device not found")

	// Transfer failure kinds carried by TransportError.
	ErrWriteFailed = errors.New("usbdev: write failed")
	ErrReadFailed  = errors.New("usbdev: read failed")
	ErrTimeout     = errors.New("usbdev: transfer timed out")
)

// TransportError describes a failed transfer. Kind is one of ErrWriteFailed,
// ErrReadFailed or ErrTimeout; errors.Is matches both Kind and the cause.
type TransportError struct {
	Kind error
	Op   string // e.g. "control-out 0x24", "bulk-in 0x83"
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Timeout reports whether the transfer ran out of time.
func (e *TransportError) Timeout() bool {
	return e.Kind == ErrTimeout
}

// IsTimeout reports whether err is a transfer timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// NewTransportError builds a TransportError, picking the failure kind from
// the transfer direction unless timedOut is set.
func NewTransportError(op string, in, timedOut bool, cause error) *TransportError {
	kind := ErrWriteFailed
	switch {
	case timedOut:
		kind = ErrTimeout
	case in:
		kind = ErrReadFailed
	}
	return &TransportError{Kind: kind, Op: op, Err: cause}
}

func controlOp(rType, request uint8) string {
	if IsIn(rType) {
		return fmt.Sprintf("control-in 0x%02X", request)
	}
	return fmt.Sprintf("control-out 0x%02X", request)
}

func bulkOp(endpoint uint8) string {
	if IsIn(endpoint) {
		return fmt.Sprintf("bulk-in 0x%02X", endpoint)
	}
	return fmt.Sprintf("bulk-out 0x%02X", endpoint)
}
