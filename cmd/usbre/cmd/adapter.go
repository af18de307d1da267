package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceUSB/internal/config"
	"github.com/OpenTraceLab/OpenTraceUSB/pkg/capture"
	"github.com/OpenTraceLab/OpenTraceUSB/pkg/probe"
	"github.com/OpenTraceLab/OpenTraceUSB/pkg/usbdev"
)

// simHeight is the frame height streamed by the simulator.
var simHeight = 120

// device is an open transport plus a label for output.
type device struct {
	usbdev.Transport
	Name string
}

// openDevice opens the transport selected by --adapter. The caller must
// Close it on every path.
func openDevice() (*device, error) {
	switch adapterType {
	case "simulator", "sim":
		if verbose {
			fmt.Println("Using FT9201 simulator")
		}
		sim := usbdev.NewFT9201Sim(cfg.Image.Width, simHeight)
		return &device{Transport: sim.Transport(), Name: "FT9201 simulator"}, nil

	case "usb":
		d := cfg.Device
		t, err := usbdev.Open(d.VendorID, d.ProductID, usbdev.OpenOptions{
			Config:      d.Config,
			Interface:   d.Interface,
			SettleDelay: d.ResetSettle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open %04X:%04X: %w", d.VendorID, d.ProductID, err)
		}
		return &device{Transport: t, Name: t.Describe().Label()}, nil
	}
	return nil, fmt.Errorf("unknown adapter %q (want usb or simulator)", adapterType)
}

// commandContext is cancelled by Ctrl-C.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func toProbeWrites(ws []config.RegisterWrite) []probe.RegisterWrite {
	out := make([]probe.RegisterWrite, len(ws))
	for i, w := range ws {
		out[i] = probe.RegisterWrite{Register: w.Register, Value: w.Value}
	}
	return out
}

// probeConfig maps the loaded configuration onto probe.Config.
func probeConfig() (*probe.Config, error) {
	p := cfg.Probe
	pc := probe.DefaultConfig()

	pc.StatusRequest = p.StatusRequest
	pc.StatusLength = p.StatusLength
	pc.StatusTimeout = p.StatusTimeout
	pc.WriteTimeout = p.WriteTimeout
	pc.ProbeValue = p.ProbeValue
	pc.MaxRegister = p.MaxRegister
	pc.BulkIn = cfg.Device.BulkIn
	pc.BulkOut = cfg.Device.BulkOut
	pc.BulkPollSize = p.BulkPollSize
	pc.BulkPollTimeout = p.BulkPollTimeout

	pc.ResetFirst = p.ResetFirst
	pc.Wake = toProbeWrites(p.Wake)
	pc.Skip = p.Skip

	pc.ReadLength = p.ReadLength
	pc.ReadTimeout = p.ReadTimeout
	pc.Ignore = nil
	for _, pat := range p.Ignore {
		b, err := config.ParseHexBytes(pat)
		if err != nil {
			return nil, err
		}
		pc.Ignore = append(pc.Ignore, b)
	}

	pc.Targets = p.Targets
	pc.Restore = toProbeWrites(p.Restore)
	pc.ValuePollSize = p.ValuePollSize
	pc.Settle = p.Settle

	pc.Commands = nil
	for _, c := range p.Commands {
		pc.Commands = append(pc.Commands, []byte(c))
	}
	pc.CommandLength = p.CommandLength
	pc.CommandTimeout = p.CommandTimeout
	pc.ResponseSize = p.ResponseSize
	pc.ResponseWait = p.ResponseWait

	pc.WatchRegisters = p.WatchRegisters
	pc.WatchSetup = toProbeWrites(p.WatchSetup)
	pc.WatchLength = p.WatchLength
	pc.WatchPollSize = p.WatchPollSize
	pc.WatchPollWait = p.WatchPollWait
	pc.WatchInterval = p.WatchInterval

	return pc, nil
}

// captureConfig maps the loaded configuration onto capture.Config.
func captureConfig() capture.Config {
	c := cfg.Capture
	return capture.Config{
		BulkIn:         cfg.Device.BulkIn,
		BulkOut:        cfg.Device.BulkOut,
		ArmCommand:     c.ArmCommand,
		CaptureCommand: c.CaptureCommand,
		CommandTimeout: c.CommandTimeout,
		StrictArm:      c.StrictArm,
		SkipAck:        c.SkipAck,
		AckLength:      c.AckLength,
		AckTimeout:     c.AckTimeout,
		ChunkSize:      c.ChunkSize,
		ChunkTimeout:   c.ChunkTimeout,
		ShortPacket:    c.ShortPacket,
		ErrorBudget:    c.ErrorBudget,
		MaxBuffer:      c.MaxBuffer,
	}
}

// parseRegister parses a decimal or 0x-prefixed register number.
func parseRegister(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid register %q", s)
	}
	return uint8(v), nil
}

// parseWrites parses "reg=value" pairs such as "0x36=1".
func parseWrites(args []string) ([]probe.RegisterWrite, error) {
	var out []probe.RegisterWrite
	for _, arg := range args {
		reg, val, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid write %q, want reg=value", arg)
		}
		r, err := parseRegister(reg)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseUint(strings.TrimSpace(val), 0, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid value in %q", arg)
		}
		out = append(out, probe.RegisterWrite{Register: r, Value: uint16(v)})
	}
	return out, nil
}

func parseRegisters(args []string) ([]uint8, error) {
	var out []uint8
	for _, s := range args {
		r, err := parseRegister(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
