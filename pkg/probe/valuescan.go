package probe

import (
	"context"
)

// ValueScan writes every value 0..255 to each target register. The Restore
// writes put the device into a known state before the baseline sample and
// again after every status change. A status change is followed by a bulk
// poll; data there ends the scan.
//
// Unlike Sweep, the baseline is fixed for the whole scan.
func (p *Prober) ValueScan(ctx context.Context, progress chan<- Progress) (*Report, error) {
	rep := newReport("valuescan")
	defer rep.finish()

	total := len(p.cfg.Targets) * 256
	send(progress, Progress{Phase: "init", Total: total})
	if err := p.prepare(ctx); err != nil {
		rep.Interrupted = true
		return rep, err
	}

	p.writeAll(p.cfg.Restore)
	if err := sleep(ctx, p.cfg.Settle); err != nil {
		rep.Interrupted = true
		return rep, err
	}
	baseline := p.baseline(ctx)
	rep.Baseline = baseline
	p.log.Info("value scan started", "targets", len(p.cfg.Targets), "baseline", baseline.String())

	index := 0
	for _, reg := range p.cfg.Targets {
		for v := 0; v < 256; v++ {
			if err := ctx.Err(); err != nil {
				rep.Interrupted = true
				return rep, err
			}
			value := uint16(v)
			send(progress, Progress{Phase: "scanning", Register: reg, Value: value, Index: index, Total: total, Hits: len(rep.Hits)})
			index++

			rep.Probed++
			if err := p.write(reg, value); err != nil {
				rep.Rejected++
				continue
			}

			snap, err := p.sampler.Sample(ctx)
			if err != nil || !snap.Differs(baseline) {
				continue
			}

			res := Result{Outcome: StatusChanged, Register: reg, Value: value, Old: baseline, New: snap}
			if data := p.poll(p.cfg.ValuePollSize, p.cfg.BulkPollTimeout); len(data) > 0 {
				res.Outcome = BulkDataObserved
				res.Data = data
				rep.add(res)
				p.log.Info("bulk data observed", "register", reg, "value", value, "bytes", len(data))
				send(progress, Progress{Phase: "done", Total: total, Hits: len(rep.Hits)})
				return rep, nil
			}

			rep.add(res)
			p.log.Info("status changed", "register", reg, "value", value, "new", snap.String())
			p.writeAll(p.cfg.Restore)
		}
	}

	send(progress, Progress{Phase: "done", Total: total, Hits: len(rep.Hits)})
	return rep, nil
}
