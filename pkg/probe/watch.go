package probe

import (
	"bytes"
	"context"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/usbdev"
)

// Watch applies the WatchSetup writes, then repeatedly reads the watched
// registers and polls the bulk endpoint, recording every change. It runs for
// iterations rounds, or until ctx is done when iterations is 0. Ending by
// cancellation is normal and not reported as an error.
func (p *Prober) Watch(ctx context.Context, iterations int, events chan<- WatchEvent) (*Report, error) {
	rep := newReport("watch")
	defer rep.finish()

	p.writeAll(p.cfg.WatchSetup)

	last := make(map[uint8][]byte, len(p.cfg.WatchRegisters))
	emit := func(ev WatchEvent) {
		rep.Events = append(rep.Events, ev)
		if events != nil {
			events <- ev
		}
	}

	for i := 0; iterations == 0 || i < iterations; i++ {
		if ctx.Err() != nil {
			rep.Interrupted = true
			return rep, nil
		}

		for _, reg := range p.cfg.WatchRegisters {
			buf := make([]byte, p.cfg.WatchLength)
			var cur []byte
			if n, err := p.t.Control(usbdev.VendorIn, reg, 0, 0, buf, p.cfg.ReadTimeout); err == nil {
				cur = buf[:n]
			}
			rep.Probed++

			prev, seen := last[reg]
			if !seen || !bytes.Equal(prev, cur) {
				emit(WatchEvent{Iteration: i, Register: reg, Old: prev, New: cur})
				p.log.V(1).Info("register changed", "register", reg, "old", HexData(prev), "new", HexData(cur))
				last[reg] = cur
			}
		}

		if data := p.poll(p.cfg.WatchPollSize, p.cfg.WatchPollWait); len(data) > 0 {
			emit(WatchEvent{Iteration: i, Bulk: true, New: data})
			p.log.Info("bulk data", "bytes", len(data))
		}

		if err := sleep(ctx, p.cfg.WatchInterval); err != nil {
			rep.Interrupted = true
			return rep, nil
		}
	}
	return rep, nil
}
