package capture

import (
	"fmt"
	"time"
)

// Config controls one capture session.
type Config struct {
	BulkIn  uint8
	BulkOut uint8

	// Command exchange
	ArmCommand     []byte
	CaptureCommand []byte
	CommandTimeout time.Duration
	StrictArm      bool // abort the session when the arm write fails (default: false)

	SkipAck    bool
	AckLength  int
	AckTimeout time.Duration

	// Streaming read
	ChunkSize    int           // bytes requested per bulk read (default: 4096)
	ChunkTimeout time.Duration // per-chunk timeout (default: 1s)
	ShortPacket  int           // reads returning fewer bytes end the transfer (default: 64)
	ErrorBudget  int           // consecutive failed reads before giving up (default: 5)
	MaxBuffer    int           // capture buffer capacity (default: 1 MiB)
}

// DefaultConfig returns the FT9201 capture guesses.
func DefaultConfig() Config {
	return Config{
		BulkIn:         0x83,
		BulkOut:        0x02,
		ArmCommand:     []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		CaptureCommand: []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		CommandTimeout: 5 * time.Second,
		AckLength:      64,
		AckTimeout:     5 * time.Second,
		ChunkSize:      4096,
		ChunkTimeout:   time.Second,
		ShortPacket:    64,
		ErrorBudget:    5,
		MaxBuffer:      1024 * 1024,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.BulkIn&0x80 == 0 {
		return fmt.Errorf("capture: bulk IN endpoint 0x%02X lacks the IN bit", c.BulkIn)
	}
	if c.BulkOut&0x80 != 0 {
		return fmt.Errorf("capture: bulk OUT endpoint 0x%02X has the IN bit", c.BulkOut)
	}
	if len(c.ArmCommand) == 0 || len(c.CaptureCommand) == 0 {
		return fmt.Errorf("capture: arm and capture commands are required")
	}
	if c.ChunkSize <= 0 || c.MaxBuffer <= 0 {
		return fmt.Errorf("capture: chunk size and buffer capacity must be positive")
	}
	if c.ShortPacket <= 0 || c.ShortPacket > c.ChunkSize {
		return fmt.Errorf("capture: short packet threshold %d must be in (0, %d]", c.ShortPacket, c.ChunkSize)
	}
	if c.ErrorBudget < 1 {
		return fmt.Errorf("capture: error budget must be at least 1")
	}
	if c.CommandTimeout <= 0 || c.ChunkTimeout <= 0 {
		return fmt.Errorf("capture: timeouts must be positive")
	}
	if !c.SkipAck && (c.AckLength <= 0 || c.AckTimeout <= 0) {
		return fmt.Errorf("capture: acknowledge read needs a positive length and timeout")
	}
	return nil
}
