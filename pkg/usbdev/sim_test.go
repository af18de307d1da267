package usbdev

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestSimTransportDefaults(t *testing.T) {
	sim := NewSimTransport()

	buf := []byte{0xAA, 0xBB}
	n, err := sim.Control(VendorIn, 0x02, 0, 0, buf, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Control IN returned error: %v", err)
	}
	if n != 2 || !bytes.Equal(buf, []byte{0, 0}) {
		t.Fatalf("Control IN = %d %X, want 2 0000", n, buf)
	}

	if _, err := sim.Control(VendorOut, 0x24, 1, 0, nil, time.Second); err != nil {
		t.Fatalf("Control OUT returned error: %v", err)
	}

	_, err = sim.Bulk(0x83, make([]byte, 64), 20*time.Millisecond)
	if !IsTimeout(err) {
		t.Fatalf("Bulk IN err = %v, want timeout", err)
	}

	calls := sim.Calls()
	if len(calls) != 3 {
		t.Fatalf("recorded %d calls, want 3", len(calls))
	}
	if calls[1].Request != 0x24 || calls[1].Value != 1 {
		t.Fatalf("unexpected control write record: %+v", calls[1])
	}
	if calls[2].Timeout != 20*time.Millisecond {
		t.Fatalf("bulk timeout = %v, want 20ms", calls[2].Timeout)
	}
}

func TestSimTransportHookErrorsAreTyped(t *testing.T) {
	sim := NewSimTransport()
	sim.OnControl = func(rType, request uint8, value, index uint16, data []byte) (int, error) {
		return 0, errors.New("pipe stalled")
	}

	_, err := sim.Control(VendorOut, 0x3C, 1, 0, nil, time.Second)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %T, want *TransportError", err)
	}
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("err = %v, want ErrWriteFailed kind", err)
	}
	if te.Timeout() {
		t.Fatalf("stall reported as timeout")
	}

	_, err = sim.Control(VendorIn, 0x3C, 0, 0, make([]byte, 2), time.Second)
	if !errors.Is(err, ErrReadFailed) {
		t.Fatalf("err = %v, want ErrReadFailed kind", err)
	}
}

func TestSimTransportClosed(t *testing.T) {
	sim := NewSimTransport()
	if err := sim.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !sim.Closed() {
		t.Fatalf("Closed() = false after Close")
	}
	if _, err := sim.Bulk(0x02, []byte{1}, time.Second); !errors.Is(err, ErrSimClosed) {
		t.Fatalf("err = %v, want ErrSimClosed", err)
	}
}

func TestTransportErrorMessage(t *testing.T) {
	err := NewTransportError("bulk-in 0x83", true, true, errors.New("libusb: timeout"))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout kind")
	}
	want := "bulk-in 0x83: usbdev: transfer timed out: libusb: timeout"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestSimDeviceStatusAndTrigger(t *testing.T) {
	dev := NewFT9201Sim(16, 4)
	tr := dev.Transport()

	status := make([]byte, 8)
	if _, err := tr.Control(VendorIn, FT9201StatusRequest, 0, 0, status, 100*time.Millisecond); err != nil {
		t.Fatalf("status read failed: %v", err)
	}
	if status[0] != 0x02 || status[1] != 0x00 {
		t.Fatalf("initial status = %X, want 0200...", status)
	}

	if _, err := tr.Control(VendorOut, 0x36, 1, 0, nil, time.Second); err != nil {
		t.Fatalf("write 0x36 failed: %v", err)
	}
	if _, err := tr.Control(VendorOut, 0x24, 1, 0, nil, time.Second); err != nil {
		t.Fatalf("write 0x24 failed: %v", err)
	}
	if got := dev.Status(); got[0] != 0x00 || got[1] != 0x24 {
		t.Fatalf("status after writes = %X, want 0024...", got)
	}

	if _, err := tr.Control(VendorOut, 0x3C, 1, 0, nil, time.Second); !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("write 0x3C err = %v, want ErrWriteFailed", err)
	}

	if _, err := tr.Control(VendorOut, 0x30, 1, 0, nil, time.Second); err != nil {
		t.Fatalf("write 0x30 failed: %v", err)
	}
	buf := make([]byte, 64)
	n, err := tr.Bulk(FT9201BulkIn, buf, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("bulk read failed: %v", err)
	}
	if !bytes.Equal(buf[:n], dev.TriggerData) {
		t.Fatalf("bulk data = %X, want %X", buf[:n], dev.TriggerData)
	}

	if err := tr.Reset(); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if got := dev.Status(); got[0] != 0x02 {
		t.Fatalf("status after reset = %X, want 02...", got)
	}
}

func TestSimDeviceFrameStream(t *testing.T) {
	dev := NewFT9201Sim(16, 4)
	tr := dev.Transport()

	if _, err := tr.Bulk(FT9201BulkOut, dev.CaptureCommand, time.Second); err != nil {
		t.Fatalf("capture command failed: %v", err)
	}

	buf := make([]byte, 40)
	var got []byte
	for i := 0; i < 2; i++ {
		n, err := tr.Bulk(FT9201BulkIn, buf, time.Second)
		if err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		got = append(got, buf[:n]...)
	}
	if !bytes.Equal(got, dev.Frame) {
		t.Fatalf("frame mismatch: got %d bytes, want %d", len(got), len(dev.Frame))
	}

	// Zero-length packet terminates the frame, then the endpoint goes quiet.
	n, err := tr.Bulk(FT9201BulkIn, buf, time.Second)
	if err != nil || n != 0 {
		t.Fatalf("terminator = %d, %v; want 0, nil", n, err)
	}
	if _, err := tr.Bulk(FT9201BulkIn, buf, time.Second); !IsTimeout(err) {
		t.Fatalf("after frame err = %v, want timeout", err)
	}
}

func TestSyntheticFrame(t *testing.T) {
	if SyntheticFrame(0, 10) != nil {
		t.Fatalf("expected nil frame for zero width")
	}
	a := SyntheticFrame(32, 8)
	b := SyntheticFrame(32, 8)
	if len(a) != 256 || !bytes.Equal(a, b) {
		t.Fatalf("frame not deterministic or wrong size: %d", len(a))
	}
}
