package probe

import (
	"context"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/usbdev"
)

// read issues a vendor IN control transfer and returns the bytes received.
func (p *Prober) read(reg uint8, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := p.t.Control(usbdev.VendorIn, reg, 0, 0, buf, p.cfg.ReadTimeout)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// ReadScan reads every register in first..last and keeps the values that do
// not match an Ignore pattern. Stalled reads are skipped.
func (p *Prober) ReadScan(ctx context.Context, first, last uint8, progress chan<- Progress) (*Report, error) {
	rep := newReport("readscan")
	defer rep.finish()

	if int(last) > p.cfg.MaxRegister {
		last = uint8(p.cfg.MaxRegister)
	}
	total := 0
	if last >= first {
		total = int(last) - int(first) + 1
	}

	send(progress, Progress{Phase: "init", Total: total})
	if err := p.prepare(ctx); err != nil {
		rep.Interrupted = true
		return rep, err
	}

	for i := 0; i < total; i++ {
		reg := first + uint8(i)
		if err := ctx.Err(); err != nil {
			rep.Interrupted = true
			return rep, err
		}
		send(progress, Progress{Phase: "scanning", Register: reg, Index: i, Total: total, Hits: len(rep.Reads)})

		rep.Probed++
		value, err := p.read(reg, p.cfg.ReadLength)
		if err != nil {
			rep.Rejected++
			continue
		}
		if len(value) == 0 || p.cfg.ignored(value) {
			continue
		}
		rep.Reads = append(rep.Reads, RegisterRead{Register: reg, Value: value})
		p.log.Info("register value", "register", reg, "value", HexData(value))
	}

	send(progress, Progress{Phase: "done", Total: total, Hits: len(rep.Reads)})
	return rep, nil
}
