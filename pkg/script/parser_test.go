package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseSingleSequence(t *testing.T) {
	input := `
	# wake, enable, pick a mode
	sequence "wake enable mode" {
		reset
		write 0x36 1
		sleep 50ms
		write 0x01 1; write 0x0C 0x01
	}
	`

	seqs, err := ParseString(input)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(seqs) != 1 {
		t.Fatalf("Expected 1 sequence, got %d", len(seqs))
	}

	seq := seqs[0]
	if seq.Name != "wake enable mode" {
		t.Errorf("Expected name 'wake enable mode', got '%s'", seq.Name)
	}

	want := []Step{
		Reset(),
		Write(0x36, 1),
		Sleep(50 * time.Millisecond),
		Write(0x01, 1),
		Write(0x0C, 1),
	}
	if len(seq.Steps) != len(want) {
		t.Fatalf("Expected %d steps, got %d: %v", len(want), len(seq.Steps), seq.Steps)
	}
	for i := range want {
		if seq.Steps[i] != want[i] {
			t.Errorf("step %d: expected %v, got %v", i, want[i], seq.Steps[i])
		}
	}

	if got := len(seq.Writes()); got != 3 {
		t.Errorf("Expected 3 writes, got %d", got)
	}
}

func TestParseMultipleSequences(t *testing.T) {
	input := `
	sequence "a" { write 0x36 1 }
	sequence "b" { }
	sequence "c" { sleep 1m30s; write 255 65535 }
	`

	parser, err := NewParser()
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}

	seqs, err := parser.ParseString(input)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(seqs) != 3 {
		t.Fatalf("Expected 3 sequences, got %d", len(seqs))
	}
	if len(seqs[1].Steps) != 0 {
		t.Errorf("Expected empty sequence, got %v", seqs[1].Steps)
	}
	if seqs[2].Steps[0].Duration != 90*time.Second {
		t.Errorf("Expected 1m30s, got %v", seqs[2].Steps[0].Duration)
	}
	if seqs[2].Steps[1] != Write(0xFF, 0xFFFF) {
		t.Errorf("Expected write 0xFF 65535, got %v", seqs[2].Steps[1])
	}
}

func TestParseDecimalLeadingZero(t *testing.T) {
	seqs, err := ParseString(`sequence "z" { write 010 010 }`)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if seqs[0].Steps[0] != Write(10, 10) {
		t.Errorf("Expected decimal 10, got %v", seqs[0].Steps[0])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"register too large", `sequence "x" { write 0x100 1 }`, "register 0x100 out of range"},
		{"value too large", `sequence "x" { write 1 65536 }`, "value 65536 out of range"},
		{"duplicate", `sequence "x" { } sequence "x" { }`, "duplicate sequence"},
		{"unknown statement", `sequence "x" { poke 1 }`, "parse error"},
		{"missing value", `sequence "x" { write 1 }`, "parse error"},
		{"unterminated", `sequence "x" { write 1 1`, "parse error"},
		{"sleep without unit", `sequence "x" { sleep 50 }`, "parse error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	seqs := []Sequence{
		{Name: "wake", Steps: []Step{Reset(), Write(0x36, 1), Sleep(50 * time.Millisecond)}},
		{Name: `quoted "name"`, Steps: []Step{Write(0x3C, 0), Write(0x3C, 1)}},
	}

	text := Format(seqs)
	if !strings.Contains(text, "write 0x36 1") {
		t.Errorf("Formatted script missing write step:\n%s", text)
	}

	back, err := ParseString(text)
	if err != nil {
		t.Fatalf("Failed to parse formatted script: %v\n%s", err, text)
	}
	if len(back) != len(seqs) {
		t.Fatalf("Expected %d sequences, got %d", len(seqs), len(back))
	}
	for i := range seqs {
		if back[i].Name != seqs[i].Name {
			t.Errorf("sequence %d: expected name %q, got %q", i, seqs[i].Name, back[i].Name)
		}
		if len(back[i].Steps) != len(seqs[i].Steps) {
			t.Fatalf("sequence %d: expected %d steps, got %d", i, len(seqs[i].Steps), len(back[i].Steps))
		}
		for j := range seqs[i].Steps {
			if back[i].Steps[j] != seqs[i].Steps[j] {
				t.Errorf("sequence %d step %d: expected %v, got %v", i, j, seqs[i].Steps[j], back[i].Steps[j])
			}
		}
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seq.probe")
	if err := os.WriteFile(path, []byte(`sequence "f" { write 0x57 1 }`), 0o644); err != nil {
		t.Fatal(err)
	}

	seqs, err := ParseFile(path)
	if err != nil {
		t.Fatalf("Failed to parse file: %v", err)
	}
	if len(seqs) != 1 || seqs[0].Steps[0] != Write(0x57, 1) {
		t.Errorf("Unexpected result: %v", seqs)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.probe")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestStepString(t *testing.T) {
	tests := []struct {
		step Step
		want string
	}{
		{Reset(), "reset"},
		{Write(0x36, 1), "write 0x36 1"},
		{Sleep(50 * time.Millisecond), "sleep 50ms"},
	}
	for _, tt := range tests {
		if got := tt.step.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}
