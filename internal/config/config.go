// Package config holds the protocol constants of the device under study.
// Compiled-in defaults describe the FT9201 as observed; a YAML file can
// override any of them for a different target.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Probe   ProbeConfig   `yaml:"probe"`
	Capture CaptureConfig `yaml:"capture"`
	Image   ImageConfig   `yaml:"image"`
	Output  OutputConfig  `yaml:"output"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	VendorID    uint16        `yaml:"vendor_id"`
	ProductID   uint16        `yaml:"product_id"`
	Config      int           `yaml:"config"`
	Interface   int           `yaml:"interface"`
	BulkIn      uint8         `yaml:"bulk_in"`
	BulkOut     uint8         `yaml:"bulk_out"`
	ResetSettle time.Duration `yaml:"reset_settle"`
}

// ---- PROBE ----

// RegisterWrite is one vendor control write (register <- value).
type RegisterWrite struct {
	Register uint8  `yaml:"register"`
	Value    uint16 `yaml:"value"`
}

type ProbeConfig struct {
	StatusRequest uint8         `yaml:"status_request"`
	StatusLength  int           `yaml:"status_length"`
	StatusTimeout time.Duration `yaml:"status_timeout"`

	WriteTimeout time.Duration `yaml:"write_timeout"`
	ProbeValue   uint16        `yaml:"probe_value"`
	MaxRegister  int           `yaml:"max_register"`

	BulkPollSize    int           `yaml:"bulk_poll_size"`
	BulkPollTimeout time.Duration `yaml:"bulk_poll_timeout"`

	ResetFirst bool            `yaml:"reset_first"`
	Wake       []RegisterWrite `yaml:"wake"`
	Skip       []uint8         `yaml:"skip"`

	// read scan
	ReadLength  int           `yaml:"read_length"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	Ignore      []string      `yaml:"ignore"` // hex patterns, e.g. "0000"

	// value scan
	Targets       []uint8         `yaml:"targets"`
	Restore       []RegisterWrite `yaml:"restore"`
	ValuePollSize int             `yaml:"value_poll_size"`

	// sequence replay
	Settle   time.Duration `yaml:"settle"`
	Sequence string        `yaml:"sequence_script"` // empty: built-in sequences

	// bulk command scan
	Commands       []HexBytes    `yaml:"commands"`
	CommandLength  int           `yaml:"command_length"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	ResponseSize   int           `yaml:"response_size"`
	ResponseWait   time.Duration `yaml:"response_wait"`

	// watch
	WatchRegisters []uint8         `yaml:"watch_registers"`
	WatchSetup     []RegisterWrite `yaml:"watch_setup"`
	WatchLength    int             `yaml:"watch_length"`
	WatchPollSize  int             `yaml:"watch_poll_size"`
	WatchPollWait  time.Duration   `yaml:"watch_poll_wait"`
	WatchInterval  time.Duration   `yaml:"watch_interval"`
}

// ---- CAPTURE ----

type CaptureConfig struct {
	ArmCommand     HexBytes      `yaml:"arm_command"`
	CaptureCommand HexBytes      `yaml:"capture_command"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	StrictArm      bool          `yaml:"strict_arm"`

	SkipAck    bool          `yaml:"skip_ack"`
	AckLength  int           `yaml:"ack_length"`
	AckTimeout time.Duration `yaml:"ack_timeout"`

	ChunkSize    int           `yaml:"chunk_size"`
	ChunkTimeout time.Duration `yaml:"chunk_timeout"`
	ShortPacket  int           `yaml:"short_packet"`
	ErrorBudget  int           `yaml:"error_budget"`
	MaxBuffer    int           `yaml:"max_buffer"`
}

// ---- IMAGE / OUTPUT ----

type ImageConfig struct {
	Width int `yaml:"width"`
}

type OutputConfig struct {
	Dir     string `yaml:"dir"`
	RawName string `yaml:"raw_name"`
	BMPName string `yaml:"bmp_name"`
}

// Load reads a YAML file on top of Default. Fields absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
