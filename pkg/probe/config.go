package probe

import (
	"fmt"
	"time"
)

// MaxStatusTimeout bounds the status read timeout; sampling runs once per
// probed register.
const MaxStatusTimeout = 150 * time.Millisecond

// RegisterWrite is one vendor control write (register <- value).
type RegisterWrite struct {
	Register uint8  `json:"register" yaml:"register"`
	Value    uint16 `json:"value" yaml:"value"`
}

func (w RegisterWrite) String() string {
	return fmt.Sprintf("0x%02X<-%d", w.Register, w.Value)
}

// Config controls the probing algorithms.
type Config struct {
	// Status sampling
	StatusRequest uint8         // vendor IN request returning the status block (default: 0x02)
	StatusLength  int           // bytes requested, 2..8 (default: 8)
	StatusTimeout time.Duration // must not exceed MaxStatusTimeout (default: 100ms)

	// Register writes
	WriteTimeout time.Duration // (default: 100ms)
	ProbeValue   uint16        // value written to every swept register (default: 1)
	MaxRegister  int           // highest register swept, 0..255 (default: 0xFF)

	// Bulk data detection
	BulkIn          uint8
	BulkOut         uint8
	BulkPollSize    int           // (default: 16384)
	BulkPollTimeout time.Duration // (default: 20ms)

	// Sweep preparation
	ResetFirst bool            // reset the device before the baseline sample
	Wake       []RegisterWrite // writes issued before the baseline sample
	Skip       []uint8         // registers never probed

	// Read scan
	ReadLength  int           // (default: 2)
	ReadTimeout time.Duration // (default: 50ms)
	Ignore      [][]byte      // uninteresting read values (default: 00 00, FF FF, C0 C0)

	// Value scan
	Targets       []uint8         // (default: 0x01, 0x0C, 0x24)
	Restore       []RegisterWrite // issued after a status change (default: 0x57<-1)
	ValuePollSize int             // (default: 1024)

	// Sequence replay
	Settle time.Duration // pause after each write (default: 50ms)

	// Bulk command scan
	Commands       [][]byte // base payloads before padding and checksums
	CommandLength  int      // payloads are zero-padded to this length (default: 16)
	CommandTimeout time.Duration
	ResponseSize   int
	ResponseWait   time.Duration

	// Watch
	WatchRegisters []uint8         // (default: 0x63, 0x6A)
	WatchSetup     []RegisterWrite // (default: 0x57<-1, 0x01<-1)
	WatchLength    int             // (default: 8)
	WatchPollSize  int             // (default: 64)
	WatchPollWait  time.Duration   // (default: 10ms)
	WatchInterval  time.Duration   // (default: 50ms)
}

// DefaultConfig returns a Config describing the FT9201.
func DefaultConfig() *Config {
	return &Config{
		StatusRequest:   0x02,
		StatusLength:    SnapshotSize,
		StatusTimeout:   100 * time.Millisecond,
		WriteTimeout:    100 * time.Millisecond,
		ProbeValue:      1,
		MaxRegister:     0xFF,
		BulkIn:          0x83,
		BulkOut:         0x02,
		BulkPollSize:    16384,
		BulkPollTimeout: 20 * time.Millisecond,

		ReadLength:  2,
		ReadTimeout: 50 * time.Millisecond,
		Ignore:      [][]byte{{0x00, 0x00}, {0xFF, 0xFF}, {0xC0, 0xC0}},

		Targets:       []uint8{0x01, 0x0C, 0x24},
		Restore:       []RegisterWrite{{Register: 0x57, Value: 1}},
		ValuePollSize: 1024,

		Settle: 50 * time.Millisecond,

		Commands: [][]byte{
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
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.StatusLength < SignificantBytes || c.StatusLength > SnapshotSize {
		return fmt.Errorf("status length %d must be in [%d, %d]", c.StatusLength, SignificantBytes, SnapshotSize)
	}
	if c.StatusTimeout <= 0 || c.StatusTimeout > MaxStatusTimeout {
		return fmt.Errorf("status timeout %v must be in (0, %v]", c.StatusTimeout, MaxStatusTimeout)
	}
	if c.WriteTimeout <= 0 || c.BulkPollTimeout <= 0 {
		return fmt.Errorf("write and bulk poll timeouts must be positive")
	}
	if c.MaxRegister < 0 || c.MaxRegister > 0xFF {
		return fmt.Errorf("max register %d must be in [0, 255]", c.MaxRegister)
	}
	if c.BulkIn&0x80 == 0 {
		return fmt.Errorf("bulk IN endpoint 0x%02X lacks the IN bit", c.BulkIn)
	}
	if c.BulkOut&0x80 != 0 {
		return fmt.Errorf("bulk OUT endpoint 0x%02X has the IN bit", c.BulkOut)
	}
	if c.BulkPollSize <= 0 {
		return fmt.Errorf("bulk poll size must be positive")
	}
	if c.ReadLength <= 0 || c.WatchLength <= 0 {
		return fmt.Errorf("read lengths must be positive")
	}
	if c.ValuePollSize <= 0 || c.ResponseSize <= 0 || c.WatchPollSize <= 0 {
		return fmt.Errorf("poll sizes must be positive")
	}
	for _, cmd := range c.Commands {
		// payload + 2-byte checksum must fit the padded length
		if len(cmd)+2 > c.CommandLength {
			return fmt.Errorf("command % X does not fit %d bytes with a checksum", cmd, c.CommandLength)
		}
	}
	return nil
}

// skipped reports whether reg is on the skip list.
func (c *Config) skipped(reg uint8) bool {
	for _, s := range c.Skip {
		if s == reg {
			return true
		}
	}
	return false
}

// ignored reports whether a read value matches an uninteresting pattern.
func (c *Config) ignored(value []byte) bool {
	for _, pat := range c.Ignore {
		if string(pat) == string(value) {
			return true
		}
	}
	return false
}
