package probe

import (
	"context"
)

// Step probes one register against baseline and returns the result together
// with the baseline for the next register.
//
// The probe value is written to reg. A rejected write ends the step with no
// further transfers. Otherwise status is resampled; a change in the
// significant bytes yields StatusChanged and becomes the new baseline. One
// short bulk read follows either way, and any data returned yields
// BulkDataObserved.
func (p *Prober) Step(ctx context.Context, reg uint8, baseline Snapshot) (Result, Snapshot) {
	res := Result{Register: reg, Value: p.cfg.ProbeValue, Old: baseline, New: baseline}

	if err := p.write(reg, p.cfg.ProbeValue); err != nil {
		res.Rejected = true
		p.log.V(1).Info("register rejected", "register", reg, "error", err.Error())
		return res, baseline
	}

	if snap, err := p.sampler.Sample(ctx); err != nil {
		p.log.V(1).Info("status sample failed", "register", reg, "error", err.Error())
	} else if snap.Differs(baseline) {
		res.Outcome = StatusChanged
		res.New = snap
		baseline = snap
	}

	if data := p.poll(p.cfg.BulkPollSize, p.cfg.BulkPollTimeout); len(data) > 0 {
		res.Outcome = BulkDataObserved
		res.Data = data
	}
	return res, baseline
}

// Sweep probes registers first..last in ascending order and stops at the
// first BulkDataObserved. Status changes are recorded and the sweep goes on.
// A register that both changes status and produces bulk data is reported as
// a StatusChanged hit followed by the terminal BulkDataObserved hit.
//
// Cancelling ctx stops the sweep between registers; the partial report is
// returned with Interrupted set together with the context error.
func (p *Prober) Sweep(ctx context.Context, first, last uint8, progress chan<- Progress) (*Report, error) {
	rep := newReport("sweep")
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

	baseline := p.baseline(ctx)
	rep.Baseline = baseline
	p.log.Info("sweep started", "first", first, "last", last, "baseline", baseline.String())

	for i := 0; i < total; i++ {
		reg := first + uint8(i)
		if err := ctx.Err(); err != nil {
			rep.Interrupted = true
			rep.Baseline = baseline
			return rep, err
		}
		if p.cfg.skipped(reg) {
			continue
		}
		send(progress, Progress{Phase: "scanning", Register: reg, Value: p.cfg.ProbeValue, Index: i, Total: total, Hits: len(rep.Hits)})

		old := baseline
		res, next := p.Step(ctx, reg, baseline)
		rep.Probed++
		if res.Rejected {
			rep.Rejected++
			continue
		}

		if next.Differs(old) {
			changed := Result{Outcome: StatusChanged, Register: reg, Value: res.Value, Old: old, New: next}
			rep.add(changed)
			p.log.Info("status changed", "register", reg, "old", old.String(), "new", next.String())
		}
		baseline = next

		if res.Outcome == BulkDataObserved {
			rep.add(res)
			p.log.Info("bulk data observed", "register", reg, "bytes", len(res.Data))
			break
		}
	}

	rep.Baseline = baseline
	send(progress, Progress{Phase: "done", Total: total, Hits: len(rep.Hits)})
	return rep, nil
}
