package probe

import (
	"context"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/script"
)

// DefaultSequences is the built-in set of write chains tried by the
// sequence mode. Each starts from a fresh reset and wakes the device with
// 0x36 first.
const DefaultSequences = `
sequence "wake enable 02 10" {
    reset
    write 0x36 1
    write 0x01 1
    write 0x02 1
    write 0x10 1
}

sequence "wake enable mode" {
    reset
    write 0x36 1
    write 0x01 1
    write 0x0C 1
}

sequence "wake fc enable" {
    reset
    write 0x36 1
    write 0xFC 0
    write 0x01 1
}

sequence "unlock enable" {
    reset
    write 0x36 1
    write 0x00 1
    write 0x01 1
}

sequence "wake 10" {
    reset
    write 0x36 1
    write 0x10 1
}

sequence "toggle 3c" {
    reset
    write 0x36 1
    write 0x3C 0
    write 0x3C 1
}

sequence "toggle 00" {
    reset
    write 0x36 1
    write 0x00 0
    write 0x00 1
}
`

// LoadSequences parses a script file, or DefaultSequences when path is empty.
func LoadSequences(path string) ([]script.Sequence, error) {
	if path == "" {
		return script.ParseString(DefaultSequences)
	}
	return script.ParseFile(path)
}

// RunSequences replays each sequence in order. After every write the
// prober waits Settle, compares status with the last snapshot and polls the
// bulk endpoint; the first bulk data ends the whole run. A reset step resets
// the device and takes a new baseline.
func (p *Prober) RunSequences(ctx context.Context, seqs []script.Sequence, progress chan<- Progress) (*Report, error) {
	rep := newReport("sequence")
	defer rep.finish()

	total := 0
	for _, seq := range seqs {
		total += len(seq.Writes())
	}
	send(progress, Progress{Phase: "init", Total: total})

	index := 0
	for _, seq := range seqs {
		if err := ctx.Err(); err != nil {
			rep.Interrupted = true
			return rep, err
		}
		p.log.Info("sequence", "name", seq.Name, "steps", len(seq.Steps))
		last := p.baseline(ctx)
		rep.Baseline = last

		for i, st := range seq.Steps {
			if err := ctx.Err(); err != nil {
				rep.Interrupted = true
				return rep, err
			}

			switch st.Kind {
			case script.StepReset:
				if err := p.reset(ctx); err != nil {
					if ctx.Err() != nil {
						rep.Interrupted = true
						return rep, err
					}
					p.log.Info("reset failed", "sequence", seq.Name, "error", err.Error())
				}
				last = p.baseline(ctx)
				rep.Baseline = last
				continue

			case script.StepSleep:
				if err := sleep(ctx, st.Duration); err != nil {
					rep.Interrupted = true
					return rep, err
				}
				continue
			}

			send(progress, Progress{Phase: "scanning", Register: st.Register, Value: st.Value, Index: index, Total: total, Hits: len(rep.Hits)})
			index++

			rep.Probed++
			if err := p.write(st.Register, st.Value); err != nil {
				rep.Rejected++
				p.log.Info("write failed", "sequence", seq.Name, "step", st.String(), "error", err.Error())
			}
			if err := sleep(ctx, p.cfg.Settle); err != nil {
				rep.Interrupted = true
				return rep, err
			}

			res := Result{Register: st.Register, Value: st.Value, Old: last, New: last, Sequence: seq.Name, Step: i}
			if snap, err := p.sampler.Sample(ctx); err == nil && snap.Differs(last) {
				res.Outcome = StatusChanged
				res.New = snap
				rep.add(res)
				p.log.Info("status changed", "sequence", seq.Name, "step", st.String(), "old", last.String(), "new", snap.String())
				last = snap
			}

			if data := p.poll(p.cfg.BulkPollSize, p.cfg.BulkPollTimeout); len(data) > 0 {
				res.Outcome = BulkDataObserved
				res.Data = data
				rep.add(res)
				p.log.Info("bulk data observed", "sequence", seq.Name, "step", st.String(), "bytes", len(data))
				send(progress, Progress{Phase: "done", Total: total, Hits: len(rep.Hits)})
				return rep, nil
			}
		}
	}

	send(progress, Progress{Phase: "done", Total: total, Hits: len(rep.Hits)})
	return rep, nil
}

// SequenceSummary renders a sequence on one line for progress output.
func SequenceSummary(seq script.Sequence) string {
	s := fmt.Sprintf("%q:", seq.Name)
	for _, st := range seq.Steps {
		s += " " + st.String() + ";"
	}
	return s
}
