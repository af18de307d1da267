package probe

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/usbdev"
)

const (
	// SnapshotSize is the size of the status block.
	SnapshotSize = 8
	// SignificantBytes is how many leading status bytes are compared. A
	// device that only changes later bytes looks like a no-op.
	SignificantBytes = 2
)

// Snapshot is one status read.
type Snapshot [SnapshotSize]byte

// Differs reports whether the significant bytes of s and other differ.
func (s Snapshot) Differs(other Snapshot) bool {
	return s[0] != other[0] || s[1] != other[1]
}

func (s Snapshot) String() string {
	return fmt.Sprintf("% X", s[:])
}

// MarshalText renders the snapshot as spaced hex.
func (s Snapshot) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses spaced or packed hex.
func (s *Snapshot) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(strings.ReplaceAll(string(text), " ", ""))
	if err != nil {
		return fmt.Errorf("probe: bad snapshot %q: %w", text, err)
	}
	if len(b) > SnapshotSize {
		return fmt.Errorf("probe: snapshot %q longer than %d bytes", text, SnapshotSize)
	}
	*s = Snapshot{}
	copy(s[:], b)
	return nil
}

// Sampler reads the device status block.
type Sampler struct {
	t   usbdev.Transport
	cfg *Config
}

// NewSampler creates a sampler over t.
func NewSampler(t usbdev.Transport, cfg *Config) *Sampler {
	return &Sampler{t: t, cfg: cfg}
}

// Sample issues one vendor IN control read of the status block. Bytes the
// device does not return stay zero.
func (s *Sampler) Sample(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := ctx.Err(); err != nil {
		return snap, err
	}
	_, err := s.t.Control(usbdev.VendorIn, s.cfg.StatusRequest, 0, 0, snap[:s.cfg.StatusLength], s.cfg.StatusTimeout)
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
