package usbdev

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// Default USB identifiers of the FocalTech FT9201 fingerprint sensor the
// tooling was first pointed at.
const (
	VendorIDFocalTech = 0x2808
	ProductIDFT9201   = 0x93A9
)

// OpenOptions selects the configuration and interface claimed by Open.
type OpenOptions struct {
	Config      int           // configuration value (default 1)
	Interface   int           // interface number (default 0)
	AltSetting  int           // alternate setting (default 0)
	SettleDelay time.Duration // pause after a port reset (default 500ms)
}

func (o OpenOptions) withDefaults() OpenOptions {
	if o.Config == 0 {
		o.Config = 1
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = 500 * time.Millisecond
	}
	return o
}

// USBTransport implements Transport on top of libusb via gousb.
type USBTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	in  map[uint8]*gousb.InEndpoint
	out map[uint8]*gousb.OutEndpoint

	opts OpenOptions
	vid  uint16
	pid  uint16
}

// Open finds the device by VID:PID, detaches any kernel driver and claims the
// configured interface. It returns ErrDeviceNotFound when nothing matches.
func Open(vid, pid uint16, opts OpenOptions) (*USBTransport, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("usbdev: open %04X:%04X: %w", vid, pid, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("%w (VID:0x%04X PID:0x%04X)", ErrDeviceNotFound, vid, pid)
	}

	// Not supported on every platform; claiming reports the real problem.
	_ = dev.SetAutoDetach(true)

	t := &USBTransport{
		ctx:  ctx,
		dev:  dev,
		opts: opts.withDefaults(),
		vid:  vid,
		pid:  pid,
	}

	if err := t.claim(); err != nil {
		t.Close()
		return nil, err
	}

	return t, nil
}

// claim selects the configuration and claims the interface.
func (t *USBTransport) claim() error {
	cfg, err := t.dev.Config(t.opts.Config)
	if err != nil {
		return fmt.Errorf("usbdev: select config %d: %w", t.opts.Config, err)
	}
	t.cfg = cfg

	intf, err := cfg.Interface(t.opts.Interface, t.opts.AltSetting)
	if err != nil {
		return fmt.Errorf("usbdev: claim interface %d: %w", t.opts.Interface, err)
	}
	t.intf = intf

	t.in = make(map[uint8]*gousb.InEndpoint)
	t.out = make(map[uint8]*gousb.OutEndpoint)
	return nil
}

// release drops the interface and configuration, keeping the device open.
func (t *USBTransport) release() {
	if t.intf != nil {
		t.intf.Close()
		t.intf = nil
	}
	if t.cfg != nil {
		t.cfg.Close()
		t.cfg = nil
	}
	t.in = nil
	t.out = nil
}

// Control implements Transport.
func (t *USBTransport) Control(rType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error) {
	t.dev.ControlTimeout = timeout

	n, err := t.dev.Control(rType, request, value, index, data)
	if err != nil {
		return n, NewTransportError(controlOp(rType, request), IsIn(rType), isTimeout(err, nil), err)
	}
	return n, nil
}

// Bulk implements Transport.
func (t *USBTransport) Bulk(endpoint uint8, data []byte, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if IsIn(endpoint) {
		ep, err := t.inEndpoint(endpoint)
		if err != nil {
			return 0, NewTransportError(bulkOp(endpoint), true, false, err)
		}
		n, err := ep.ReadContext(ctx, data)
		if err != nil {
			return n, NewTransportError(bulkOp(endpoint), true, isTimeout(err, ctx), err)
		}
		return n, nil
	}

	ep, err := t.outEndpoint(endpoint)
	if err != nil {
		return 0, NewTransportError(bulkOp(endpoint), false, false, err)
	}
	n, err := ep.WriteContext(ctx, data)
	if err != nil {
		return n, NewTransportError(bulkOp(endpoint), false, isTimeout(err, ctx), err)
	}
	return n, nil
}

func (t *USBTransport) inEndpoint(addr uint8) (*gousb.InEndpoint, error) {
	if t.intf == nil {
		return nil, errors.New("interface not claimed")
	}
	if ep, ok := t.in[addr]; ok {
		return ep, nil
	}
	ep, err := t.intf.InEndpoint(int(addr & 0x0F))
	if err != nil {
		return nil, err
	}
	t.in[addr] = ep
	return ep, nil
}

func (t *USBTransport) outEndpoint(addr uint8) (*gousb.OutEndpoint, error) {
	if t.intf == nil {
		return nil, errors.New("interface not claimed")
	}
	if ep, ok := t.out[addr]; ok {
		return ep, nil
	}
	ep, err := t.intf.OutEndpoint(int(addr & 0x0F))
	if err != nil {
		return nil, err
	}
	t.out[addr] = ep
	return ep, nil
}

// Reset performs a USB port reset, waits for the device to settle and claims
// the interface again.
func (t *USBTransport) Reset() error {
	t.release()
	if err := t.dev.Reset(); err != nil {
		return fmt.Errorf("usbdev: reset: %w", err)
	}
	time.Sleep(t.opts.SettleDelay)
	return t.claim()
}

// Describe returns the descriptor tree of the opened device.
func (t *USBTransport) Describe() DeviceInfo {
	return describeDevice(t.dev)
}

// Close releases USB resources. It is safe to call more than once.
func (t *USBTransport) Close() error {
	t.release()
	if t.dev != nil {
		t.dev.Close()
		t.dev = nil
	}
	if t.ctx != nil {
		t.ctx.Close()
		t.ctx = nil
	}
	return nil
}

// isTimeout classifies libusb failures. A bulk transfer bounded by a context
// deadline surfaces as a cancelled transfer.
func isTimeout(err error, ctx context.Context) bool {
	if errors.Is(err, gousb.ErrorTimeout) || errors.Is(err, gousb.TransferTimedOut) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if ctx != nil && errors.Is(err, gousb.TransferCancelled) {
		return errors.Is(ctx.Err(), context.DeadlineExceeded)
	}
	return false
}
