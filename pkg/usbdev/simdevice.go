package usbdev

import (
	"bytes"
)

// SimDevice models an undocumented sensor behind a SimTransport: a status
// register whose first bytes follow an internal state machine, registers that
// stall, a register that makes the device emit bulk data, and an arm/capture
// command exchange on the bulk endpoints that streams a frame.
type SimDevice struct {
	StatusRequest uint8
	BulkIn        uint8
	BulkOut       uint8

	// InitialStatus is the status register content after power-up or reset.
	InitialStatus [8]byte

	// StateRegisters set status[0] to the mapped value when written.
	StateRegisters map[uint8]byte
	// FlagRegisters set status[1] to the mapped value when written.
	FlagRegisters map[uint8]byte
	// Rejected registers stall on write.
	Rejected map[uint8]bool
	// ReadRegisters answer control IN requests other than the status request.
	ReadRegisters map[uint8][]byte

	// TriggerRegister queues TriggerData on the bulk IN endpoint when written
	// with TriggerValue. A zero TriggerData disables the trigger.
	TriggerRegister uint8
	TriggerValue    uint16
	TriggerData     []byte

	// ArmCommand and CaptureCommand are matched against bulk OUT payloads.
	ArmCommand     []byte
	AckResponse    []byte
	CaptureCommand []byte
	Frame          []byte

	// Commands maps exact bulk OUT payloads to bulk IN responses.
	Commands map[string][]byte

	status  [8]byte
	pending []byte
	zlp     bool

	transport *SimTransport
}

// NewSimDevice creates an empty device model with the given status request
// and bulk endpoints, attached to a fresh SimTransport.
func NewSimDevice(statusRequest, bulkIn, bulkOut uint8) *SimDevice {
	d := &SimDevice{
		StatusRequest:  statusRequest,
		BulkIn:         bulkIn,
		BulkOut:        bulkOut,
		StateRegisters: make(map[uint8]byte),
		FlagRegisters:  make(map[uint8]byte),
		Rejected:       make(map[uint8]bool),
		ReadRegisters:  make(map[uint8][]byte),
		Commands:       make(map[string][]byte),
	}
	t := NewSimTransport()
	t.OnControl = d.handleControl
	t.OnBulk = d.handleBulk
	t.OnReset = d.handleReset
	d.transport = t
	return d
}

// Transport returns the simulator the device is attached to.
func (d *SimDevice) Transport() *SimTransport {
	return d.transport
}

// Status returns the current status register content.
func (d *SimDevice) Status() [8]byte {
	return d.status
}

// PowerOn loads InitialStatus and clears pending bulk data.
func (d *SimDevice) PowerOn() {
	d.status = d.InitialStatus
	d.pending = nil
	d.zlp = false
}

func (d *SimDevice) handleReset() error {
	d.PowerOn()
	return nil
}

func (d *SimDevice) handleControl(rType, request uint8, value, index uint16, data []byte) (int, error) {
	if IsIn(rType) {
		if request == d.StatusRequest {
			return copy(data, d.status[:]), nil
		}
		if v, ok := d.ReadRegisters[request]; ok {
			return copy(data, v), nil
		}
		return 0, ErrReadFailed
	}

	if d.Rejected[request] {
		return 0, ErrWriteFailed
	}
	if s, ok := d.StateRegisters[request]; ok {
		d.status[0] = s
	}
	if f, ok := d.FlagRegisters[request]; ok {
		d.status[1] = f
	}
	if len(d.TriggerData) > 0 && request == d.TriggerRegister && value == d.TriggerValue {
		d.pending = append(d.pending, d.TriggerData...)
	}
	return len(data), nil
}

func (d *SimDevice) handleBulk(endpoint uint8, data []byte) (int, error) {
	if IsIn(endpoint) {
		if endpoint != d.BulkIn {
			return 0, ErrReadFailed
		}
		if len(d.pending) > 0 {
			n := copy(data, d.pending)
			d.pending = d.pending[n:]
			return n, nil
		}
		if d.zlp {
			d.zlp = false
			return 0, nil
		}
		return 0, ErrTimeout
	}

	if endpoint != d.BulkOut {
		return 0, ErrWriteFailed
	}
	switch {
	case len(d.ArmCommand) > 0 && bytes.Equal(data, d.ArmCommand):
		d.pending = append(d.pending, d.AckResponse...)
	case len(d.CaptureCommand) > 0 && bytes.Equal(data, d.CaptureCommand):
		d.pending = append(d.pending, d.Frame...)
		d.zlp = true
	default:
		if resp, ok := d.Commands[string(data)]; ok {
			d.pending = append(d.pending, resp...)
		}
	}
	return len(data), nil
}

// FT9201 protocol guesses shared by the simulator scenario and the default
// configuration.
const (
	FT9201StatusRequest = 0x02
	FT9201BulkIn        = 0x83
	FT9201BulkOut       = 0x02
)

// NewFT9201Sim builds a device model resembling the FT9201 as observed while
// probing it: register 0x36 enters active mode (status 00), 0x57 forces state
// 04, 0x24 raises a status flag, 0x3C stalls, register 0x30 written with 1
// dumps data on the bulk endpoint, and the 01/02 bulk command pair streams a
// width x height frame.
func NewFT9201Sim(width, height int) *SimDevice {
	d := NewSimDevice(FT9201StatusRequest, FT9201BulkIn, FT9201BulkOut)
	d.InitialStatus = [8]byte{0x02, 0x00}
	d.StateRegisters[0x36] = 0x00
	d.StateRegisters[0x57] = 0x04
	d.FlagRegisters[0x24] = 0x24
	d.Rejected[0x3C] = true
	d.ReadRegisters[0x00] = []byte{0x93, 0xA9, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00}
	d.ReadRegisters[0x63] = []byte{0x01, 0x40}
	d.ReadRegisters[0x6A] = []byte{0xFF, 0xFF}

	d.TriggerRegister = 0x30
	d.TriggerValue = 1
	d.TriggerData = []byte{0xA5, 0x5A, 0x00, 0x10}

	d.ArmCommand = []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	d.AckResponse = []byte{0x01, 0x00}
	d.CaptureCommand = []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	d.Frame = SyntheticFrame(width, height)

	d.PowerOn()
	return d
}

// SyntheticFrame renders a ridge-like ring pattern, enough to tell a
// correctly reassembled frame from a scrambled one.
func SyntheticFrame(width, height int) []byte {
	if width <= 0 || height <= 0 {
		return nil
	}
	frame := make([]byte, width*height)
	cx, cy := width/2, height/2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := x-cx, y-cy
			r := (dx*dx + dy*dy) / 16
			if (r/8)%2 == 0 {
				frame[y*width+x] = byte(64 + r%128)
			} else {
				frame[y*width+x] = byte(192 - r%128)
			}
		}
	}
	return frame
}
