package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default returns the compiled-in configuration for the FT9201. The command
// bytes, image width and short-packet rule are guesses carried over from the
// first probing sessions, not protocol knowledge.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			VendorID:    0x2808,
			ProductID:   0x93A9,
			Config:      1,
			Interface:   0,
			BulkIn:      0x83,
			BulkOut:     0x02,
			ResetSettle: 500 * time.Millisecond,
		},
		Probe: ProbeConfig{
			StatusRequest:   0x02,
			StatusLength:    8,
			StatusTimeout:   100 * time.Millisecond,
			WriteTimeout:    100 * time.Millisecond,
			ProbeValue:      1,
			MaxRegister:     0xFF,
			BulkPollSize:    16384,
			BulkPollTimeout: 20 * time.Millisecond,
			ReadLength:      2,
			ReadTimeout:     50 * time.Millisecond,
			Ignore:          []string{"0000", "FFFF", "C0C0"},
			Targets:         []uint8{0x01, 0x0C, 0x24},
			Restore:         []RegisterWrite{{Register: 0x57, Value: 1}},
			ValuePollSize:   1024,
			Settle:          50 * time.Millisecond,
			Commands: []HexBytes{
				{0x55, 0xAA, 0x01, 0x00},
				{0xAA, 0x55, 0x01, 0x00},
				{0xFC, 0x01, 0x00, 0x00},
				{0x01, 0x00, 0x00, 0x00},
			},
			CommandLength:  16,
			CommandTimeout: 100 * time.Millisecond,
			ResponseSize:   64,
			ResponseWait:   50 * time.Millisecond,
			WatchRegisters: []uint8{0x63, 0x6A},
			WatchSetup:     []RegisterWrite{{Register: 0x57, Value: 1}, {Register: 0x01, Value: 1}},
			WatchLength:    8,
			WatchPollSize:  64,
			WatchPollWait:  10 * time.Millisecond,
			WatchInterval:  50 * time.Millisecond,
		},
		Capture: CaptureConfig{
			ArmCommand:     HexBytes{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			CaptureCommand: HexBytes{0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			CommandTimeout: 5 * time.Second,
			AckLength:      64,
			AckTimeout:     5 * time.Second,
			ChunkSize:      4096,
			ChunkTimeout:   time.Second,
			ShortPacket:    64,
			ErrorBudget:    5,
			MaxBuffer:      1024 * 1024,
		},
		Image: ImageConfig{
			Width: 160,
		},
		Output: OutputConfig{
			Dir:     ".",
			RawName: "fingerprint.raw",
			BMPName: "fingerprint_preview.bmp",
		},
	}
}

// HexBytes is a byte string written in YAML as hex, with optional spaces:
// "01 00 00 00 00 00 00 00".
type HexBytes []byte

// ParseHexBytes decodes a hex string, ignoring spaces, colons and a 0x prefix.
func ParseHexBytes(s string) (HexBytes, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex bytes %q: %w", s, err)
	}
	return HexBytes(b), nil
}

func (h HexBytes) String() string {
	parts := make([]string, len(h))
	for i, b := range h {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (h *HexBytes) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	b, err := ParseHexBytes(s)
	if err != nil {
		return err
	}
	*h = b
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (h HexBytes) MarshalYAML() (interface{}, error) {
	return h.String(), nil
}
