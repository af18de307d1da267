package probe

import (
	"context"
	"encoding/binary"
)

// SumChecksum is the 16-bit sum of b.
func SumChecksum(b []byte) uint16 {
	var s uint16
	for _, c := range b {
		s += uint16(c)
	}
	return s
}

// XORChecksum is the XOR of every byte of b.
func XORChecksum(b []byte) byte {
	var x byte
	for _, c := range b {
		x ^= c
	}
	return x
}

// CommandVariants expands a base payload into the forms sent by the bulk
// command scan, each zero-padded to length: the raw payload, the payload
// followed by its big-endian 16-bit sum, and the payload followed by its
// XOR byte.
func CommandVariants(base []byte, length int) [][]byte {
	pad := func(b []byte) []byte {
		out := make([]byte, length)
		copy(out, b)
		return out
	}

	raw := pad(base)

	withSum := pad(base)
	binary.BigEndian.PutUint16(withSum[len(base):], SumChecksum(base))

	withXOR := pad(base)
	withXOR[len(base)] = XORChecksum(base)

	return [][]byte{raw, withSum, withXOR}
}

// BulkScan sends each command variant on the bulk OUT endpoint and listens
// for a response on bulk IN. A response ends the scan; status changes are
// recorded and become the new baseline. Pending bulk data is drained before
// the baseline sample.
func (p *Prober) BulkScan(ctx context.Context, progress chan<- Progress) (*Report, error) {
	rep := newReport("bulkscan")
	defer rep.finish()

	var payloads [][]byte
	for _, cmd := range p.cfg.Commands {
		payloads = append(payloads, CommandVariants(cmd, p.cfg.CommandLength)...)
	}
	total := len(payloads)

	send(progress, Progress{Phase: "init", Total: total})
	if err := p.prepare(ctx); err != nil {
		rep.Interrupted = true
		return rep, err
	}

	if stale := p.poll(p.cfg.ResponseSize, p.cfg.ResponseWait); len(stale) > 0 {
		p.log.V(1).Info("drained stale bulk data", "bytes", len(stale))
	}
	baseline := p.baseline(ctx)
	rep.Baseline = baseline

	for i, payload := range payloads {
		if err := ctx.Err(); err != nil {
			rep.Interrupted = true
			return rep, err
		}
		send(progress, Progress{Phase: "scanning", Index: i, Total: total, Hits: len(rep.Hits)})

		rep.Probed++
		if _, err := p.t.Bulk(p.cfg.BulkOut, payload, p.cfg.CommandTimeout); err != nil {
			rep.Rejected++
			p.log.V(1).Info("bulk write failed", "command", HexData(payload), "error", err.Error())
			continue
		}

		if resp := p.poll(p.cfg.ResponseSize, p.cfg.ResponseWait); len(resp) > 0 {
			rep.add(Result{Outcome: BulkDataObserved, Old: baseline, New: baseline, Data: resp, Command: payload})
			p.log.Info("bulk response", "command", HexData(payload), "bytes", len(resp))
			break
		}

		if snap, err := p.sampler.Sample(ctx); err == nil && snap.Differs(baseline) {
			rep.add(Result{Outcome: StatusChanged, Old: baseline, New: snap, Command: payload})
			p.log.Info("status changed", "command", HexData(payload), "old", baseline.String(), "new", snap.String())
			baseline = snap
		}
	}

	send(progress, Progress{Phase: "done", Total: total, Hits: len(rep.Hits)})
	return rep, nil
}
