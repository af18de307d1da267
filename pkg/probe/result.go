package probe

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Outcome classifies the observable effect of one probe.
type Outcome int

const (
	NoEffect Outcome = iota
	StatusChanged
	BulkDataObserved
)

func (o Outcome) String() string {
	switch o {
	case NoEffect:
		return "no_effect"
	case StatusChanged:
		return "status_changed"
	case BulkDataObserved:
		return "bulk_data_observed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// MarshalText renders the outcome name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// HexData is a byte string rendered as spaced hex in reports.
type HexData []byte

// MarshalText renders spaced hex.
func (h HexData) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("% X", []byte(h))), nil
}

// Result is the effect of one probe. Old and New are set for
// StatusChanged, Data for BulkDataObserved. Rejected marks a write the
// device refused; it is never a hit on its own.
type Result struct {
	Outcome  Outcome  `json:"outcome" yaml:"outcome"`
	Register uint8    `json:"register" yaml:"register"`
	Value    uint16   `json:"value" yaml:"value"`
	Rejected bool     `json:"rejected,omitempty" yaml:"rejected,omitempty"`
	Old      Snapshot `json:"old" yaml:"old"`
	New      Snapshot `json:"new" yaml:"new"`
	Data     HexData  `json:"data,omitempty" yaml:"data,omitempty"`

	// Context for the sequence and bulk command modes.
	Sequence string  `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Step     int     `json:"step,omitempty" yaml:"step,omitempty"`
	Command  HexData `json:"command,omitempty" yaml:"command,omitempty"`
}

// Hit reports whether the result is an observable effect.
func (r Result) Hit() bool {
	return r.Outcome != NoEffect
}

func (r Result) String() string {
	switch r.Outcome {
	case StatusChanged:
		return fmt.Sprintf("reg 0x%02X <- %d: status %s -> %s", r.Register, r.Value, r.Old, r.New)
	case BulkDataObserved:
		return fmt.Sprintf("reg 0x%02X <- %d: %d bytes of bulk data", r.Register, r.Value, len(r.Data))
	}
	if r.Rejected {
		return fmt.Sprintf("reg 0x%02X <- %d: rejected", r.Register, r.Value)
	}
	return fmt.Sprintf("reg 0x%02X <- %d: no effect", r.Register, r.Value)
}

// RegisterRead is one interesting value found by a read scan.
type RegisterRead struct {
	Register uint8   `json:"register" yaml:"register"`
	Value    HexData `json:"value" yaml:"value"`
}

// WatchEvent is a change seen while watching registers. Register is unset
// for bulk events.
type WatchEvent struct {
	Iteration int     `json:"iteration" yaml:"iteration"`
	Register  uint8   `json:"register" yaml:"register"`
	Bulk      bool    `json:"bulk,omitempty" yaml:"bulk,omitempty"`
	Old       HexData `json:"old,omitempty" yaml:"old,omitempty"`
	New       HexData `json:"new,omitempty" yaml:"new,omitempty"`
}

// Report collects the outcome of one discovery run. Hits holds zero or more
// StatusChanged results followed by at most one BulkDataObserved.
type Report struct {
	Mode        string        `json:"mode" yaml:"mode"`
	Started     time.Time     `json:"started" yaml:"started"`
	Elapsed     time.Duration `json:"elapsed" yaml:"elapsed"`
	Baseline    Snapshot      `json:"baseline" yaml:"baseline"`
	Probed      int           `json:"probed" yaml:"probed"`
	Rejected    int           `json:"rejected" yaml:"rejected"`
	Halted      bool          `json:"halted" yaml:"halted"`
	Interrupted bool          `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`

	Hits   []Result       `json:"hits" yaml:"hits"`
	Reads  []RegisterRead `json:"reads,omitempty" yaml:"reads,omitempty"`
	Events []WatchEvent   `json:"events,omitempty" yaml:"events,omitempty"`
}

func newReport(mode string) *Report {
	return &Report{Mode: mode, Started: time.Now(), Hits: []Result{}}
}

func (r *Report) finish() {
	r.Elapsed = time.Since(r.Started)
}

func (r *Report) add(res Result) {
	r.Hits = append(r.Hits, res)
	if res.Outcome == BulkDataObserved {
		r.Halted = true
	}
}

// BulkHit returns the terminal BulkDataObserved result, if any.
func (r *Report) BulkHit() (Result, bool) {
	if n := len(r.Hits); n > 0 && r.Hits[n-1].Outcome == BulkDataObserved {
		return r.Hits[n-1], true
	}
	return Result{}, false
}

// StatusChanges returns the StatusChanged hits in order.
func (r *Report) StatusChanges() []Result {
	var out []Result
	for _, h := range r.Hits {
		if h.Outcome == StatusChanged {
			out = append(out, h)
		}
	}
	return out
}

// ExportJSON exports the report as indented JSON.
func (r *Report) ExportJSON() ([]byte, error) {
	output := struct {
		Version     string `json:"version"`
		GeneratedBy string `json:"generated_by"`
		*Report
	}{
		Version:     "1.0",
		GeneratedBy: "usbre register discovery",
		Report:      r,
	}
	return json.MarshalIndent(output, "", "  ")
}

// ExportYAML exports the report as YAML.
func (r *Report) ExportYAML() ([]byte, error) {
	return yaml.Marshal(r)
}
