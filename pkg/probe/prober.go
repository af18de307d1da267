package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/usbdev"
)

// Progress reports the position of a running scan.
type Progress struct {
	Phase    string // "init", "scanning", "done"
	Register uint8  // register being probed
	Value    uint16 // value being written
	Index    int    // probe index (0-based)
	Total    int    // probes planned
	Hits     int    // hits found so far
}

// Prober runs discovery scans against one device. It issues transfers
// strictly one at a time and is not safe for concurrent use.
type Prober struct {
	t       usbdev.Transport
	cfg     *Config
	sampler *Sampler
	log     logr.Logger
}

// NewProber creates a prober over t. A nil cfg selects DefaultConfig.
func NewProber(t usbdev.Transport, cfg *Config, log logr.Logger) (*Prober, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("probe: invalid config: %w", err)
	}
	return &Prober{
		t:       t,
		cfg:     cfg,
		sampler: NewSampler(t, cfg),
		log:     log.WithName("probe"),
	}, nil
}

// Sampler returns the status sampler used by the prober.
func (p *Prober) Sampler() *Sampler { return p.sampler }

// write issues a vendor OUT control transfer with no data stage.
func (p *Prober) write(reg uint8, value uint16) error {
	_, err := p.t.Control(usbdev.VendorOut, reg, value, 0, nil, p.cfg.WriteTimeout)
	return err
}

// writeAll issues best-effort writes; failures are logged.
func (p *Prober) writeAll(ws []RegisterWrite) {
	for _, w := range ws {
		if err := p.write(w.Register, w.Value); err != nil {
			p.log.V(1).Info("write rejected", "write", w.String(), "error", err.Error())
		}
	}
}

// poll issues one bulk IN read and returns the bytes received. Timeouts and
// other failures yield nil.
func (p *Prober) poll(size int, timeout time.Duration) []byte {
	buf := make([]byte, size)
	n, err := p.t.Bulk(p.cfg.BulkIn, buf, timeout)
	if err != nil || n <= 0 {
		return nil
	}
	return buf[:n]
}

// baseline samples status, falling back to all zeros.
func (p *Prober) baseline(ctx context.Context) Snapshot {
	snap, err := p.sampler.Sample(ctx)
	if err != nil {
		p.log.Info("baseline sample failed, assuming zero status", "error", err.Error())
		return Snapshot{}
	}
	return snap
}

// reset resets the device when the transport supports it. The transport
// waits for the device to settle.
func (p *Prober) reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, ok := p.t.(usbdev.Resetter)
	if !ok {
		p.log.V(1).Info("transport cannot reset, skipping")
		return nil
	}
	if err := r.Reset(); err != nil {
		return fmt.Errorf("probe: reset: %w", err)
	}
	return nil
}

// prepare runs the optional reset and wake writes.
func (p *Prober) prepare(ctx context.Context) error {
	if p.cfg.ResetFirst {
		if err := p.reset(ctx); err != nil {
			return err
		}
	}
	p.writeAll(p.cfg.Wake)
	return ctx.Err()
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func send(progress chan<- Progress, p Progress) {
	if progress != nil {
		progress <- p
	}
}
