package probe

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/usbdev"
)

// fastConfig is DefaultConfig without settle delays.
func fastConfig() *Config {
	cfg := DefaultConfig()
	cfg.Settle = 0
	cfg.WatchInterval = 0
	return cfg
}

func testLogger(t *testing.T) logr.Logger {
	return testr.New(t)
}

func newTestProber(t *testing.T, tr usbdev.Transport, cfg *Config) *Prober {
	t.Helper()
	p, err := NewProber(tr, cfg, testLogger(t))
	if err != nil {
		t.Fatalf("NewProber failed: %v", err)
	}
	return p
}

// statusDevice is a scripted device: status[0..1] change on configured
// writes and data is queued on bulk IN by trigger writes.
type statusDevice struct {
	status   [8]byte
	onWrite  func(d *statusDevice, reg uint8, value uint16) error
	pending  []byte
	statusOK bool
}

func (d *statusDevice) transport() *usbdev.SimTransport {
	sim := usbdev.NewSimTransport()
	sim.OnControl = func(rType, request uint8, value, index uint16, data []byte) (int, error) {
		if usbdev.IsIn(rType) {
			if request != 0x02 || !d.statusOK {
				return 0, usbdev.ErrReadFailed
			}
			return copy(data, d.status[:]), nil
		}
		if d.onWrite != nil {
			return 0, d.onWrite(d, request, value)
		}
		return 0, nil
	}
	sim.OnBulk = func(endpoint uint8, data []byte) (int, error) {
		if !usbdev.IsIn(endpoint) {
			return len(data), nil
		}
		if len(d.pending) == 0 {
			return 0, usbdev.ErrTimeout
		}
		n := copy(data, d.pending)
		d.pending = d.pending[n:]
		return n, nil
	}
	return sim
}

// checkHitShape asserts zero or more StatusChanged hits followed by at most
// one BulkDataObserved.
func checkHitShape(t *testing.T, rep *Report) {
	t.Helper()
	for i, h := range rep.Hits {
		switch h.Outcome {
		case StatusChanged:
		case BulkDataObserved:
			if i != len(rep.Hits)-1 {
				t.Errorf("BulkDataObserved at position %d of %d", i, len(rep.Hits))
			}
		default:
			t.Errorf("unexpected outcome %v in hits", h.Outcome)
		}
	}
	_, bulk := rep.BulkHit()
	if bulk != rep.Halted {
		t.Errorf("Halted=%v but bulk hit present=%v", rep.Halted, bulk)
	}
}
