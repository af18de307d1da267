package config

import (
	"fmt"
	"time"
)

// maxStatusTimeout bounds the status sample so a sweep over 256 registers
// stays interactive.
const maxStatusTimeout = 150 * time.Millisecond

// Validate checks configuration correctness.
// It does not mutate the configuration.
func Validate(cfg *Config) error {
	d := cfg.Device
	if d.VendorID == 0 || d.ProductID == 0 {
		return fmt.Errorf("config: device vendor_id/product_id must be set")
	}
	if d.BulkIn&0x80 == 0 {
		return fmt.Errorf("config: bulk_in 0x%02X is not an IN endpoint", d.BulkIn)
	}
	if d.BulkOut&0x80 != 0 {
		return fmt.Errorf("config: bulk_out 0x%02X is not an OUT endpoint", d.BulkOut)
	}

	p := cfg.Probe
	if p.StatusLength < 2 {
		return fmt.Errorf("config: status_length %d too short, need at least 2", p.StatusLength)
	}
	if p.StatusTimeout <= 0 || p.StatusTimeout > maxStatusTimeout {
		return fmt.Errorf("config: status_timeout %v must be in (0, %v]", p.StatusTimeout, maxStatusTimeout)
	}
	if p.WriteTimeout <= 0 || p.BulkPollTimeout <= 0 || p.ReadTimeout <= 0 {
		return fmt.Errorf("config: probe timeouts must be positive")
	}
	if p.MaxRegister < 0 || p.MaxRegister > 0xFF {
		return fmt.Errorf("config: max_register %d out of range [0, 255]", p.MaxRegister)
	}
	if p.BulkPollSize <= 0 {
		return fmt.Errorf("config: bulk_poll_size must be positive")
	}
	if p.ReadLength <= 0 {
		return fmt.Errorf("config: read_length must be positive")
	}
	for _, pat := range p.Ignore {
		if _, err := ParseHexBytes(pat); err != nil {
			return fmt.Errorf("config: ignore pattern: %w", err)
		}
	}

	for _, cmd := range p.Commands {
		if len(cmd)+2 > p.CommandLength {
			return fmt.Errorf("config: command %s does not fit command_length %d with a checksum", cmd, p.CommandLength)
		}
	}
	if p.ValuePollSize <= 0 || p.ResponseSize <= 0 || p.WatchPollSize <= 0 || p.WatchLength <= 0 {
		return fmt.Errorf("config: poll and read sizes must be positive")
	}

	c := cfg.Capture
	if len(c.ArmCommand) == 0 || len(c.CaptureCommand) == 0 {
		return fmt.Errorf("config: arm_command and capture_command must be set")
	}
	if c.CommandTimeout <= 0 || c.ChunkTimeout <= 0 || (!c.SkipAck && c.AckTimeout <= 0) {
		return fmt.Errorf("config: capture timeouts must be positive")
	}
	if !c.SkipAck && c.AckLength <= 0 {
		return fmt.Errorf("config: ack_length must be positive")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk_size must be positive")
	}
	if c.ShortPacket <= 0 || c.ShortPacket > c.ChunkSize {
		return fmt.Errorf("config: short_packet %d must be in (0, chunk_size]", c.ShortPacket)
	}
	if c.ErrorBudget < 1 {
		return fmt.Errorf("config: error_budget must be at least 1")
	}
	if c.MaxBuffer <= 0 {
		return fmt.Errorf("config: max_buffer must be positive")
	}

	if cfg.Image.Width <= 0 {
		return fmt.Errorf("config: image width must be positive, got %d", cfg.Image.Width)
	}
	if cfg.Output.RawName == "" || cfg.Output.BMPName == "" {
		return fmt.Errorf("config: output raw_name and bmp_name must be set")
	}

	return nil
}
