package script

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StepKind identifies a sequence step.
type StepKind int

const (
	StepReset StepKind = iota
	StepWrite
	StepSleep
)

func (k StepKind) String() string {
	switch k {
	case StepReset:
		return "reset"
	case StepWrite:
		return "write"
	case StepSleep:
		return "sleep"
	}
	return fmt.Sprintf("step(%d)", int(k))
}

// Step is one resolved statement. Register and Value are set for writes,
// Duration for sleeps.
type Step struct {
	Kind     StepKind
	Register uint8
	Value    uint16
	Duration time.Duration
}

// Write returns a register write step.
func Write(reg uint8, value uint16) Step {
	return Step{Kind: StepWrite, Register: reg, Value: value}
}

// Sleep returns a pause step.
func Sleep(d time.Duration) Step {
	return Step{Kind: StepSleep, Duration: d}
}

// Reset returns a device reset step.
func Reset() Step {
	return Step{Kind: StepReset}
}

func (s Step) String() string {
	switch s.Kind {
	case StepWrite:
		return fmt.Sprintf("write 0x%02X %d", s.Register, s.Value)
	case StepSleep:
		return "sleep " + s.Duration.String()
	}
	return s.Kind.String()
}

// Sequence is a named, ordered list of steps.
type Sequence struct {
	Name  string
	Steps []Step
}

// Writes returns the write steps only.
func (s Sequence) Writes() []Step {
	var out []Step
	for _, st := range s.Steps {
		if st.Kind == StepWrite {
			out = append(out, st)
		}
	}
	return out
}

// Format renders sequences back into script source.
func Format(seqs []Sequence) string {
	var b strings.Builder
	for i, seq := range seqs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "sequence %s {\n", strconv.Quote(seq.Name))
		for _, st := range seq.Steps {
			fmt.Fprintf(&b, "    %s\n", st)
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func lower(f *File) ([]Sequence, error) {
	seen := make(map[string]bool)
	seqs := make([]Sequence, 0, len(f.Sequences))
	for _, decl := range f.Sequences {
		if seen[decl.Name] {
			return nil, fmt.Errorf("script: %s: duplicate sequence %q", decl.Pos, decl.Name)
		}
		seen[decl.Name] = true

		seq := Sequence{Name: decl.Name}
		for _, stmt := range decl.Statements {
			step, err := lowerStatement(stmt)
			if err != nil {
				return nil, fmt.Errorf("script: %s: %w", stmt.Pos, err)
			}
			seq.Steps = append(seq.Steps, step)
		}
		seqs = append(seqs, seq)
	}
	return seqs, nil
}

func lowerStatement(stmt *Statement) (Step, error) {
	switch {
	case stmt.Reset:
		return Reset(), nil
	case stmt.Write != nil:
		reg, err := parseNumber(stmt.Write.Register, 8)
		if err != nil {
			return Step{}, fmt.Errorf("register %s out of range", stmt.Write.Register)
		}
		val, err := parseNumber(stmt.Write.Value, 16)
		if err != nil {
			return Step{}, fmt.Errorf("value %s out of range", stmt.Write.Value)
		}
		return Write(uint8(reg), uint16(val)), nil
	case stmt.Sleep != nil:
		d, err := time.ParseDuration(stmt.Sleep.Duration)
		if err != nil {
			return Step{}, err
		}
		return Sleep(d), nil
	}
	return Step{}, fmt.Errorf("empty statement")
}

// parseNumber reads a decimal or 0x-prefixed hex literal. Leading zeros do
// not switch to octal.
func parseNumber(s string, bits int) (uint64, error) {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return strconv.ParseUint(s[2:], 16, bits)
	}
	return strconv.ParseUint(s, 10, bits)
}
