package usbdev

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFT9201Constants(t *testing.T) {
	if VendorIDFocalTech != 0x2808 {
		t.Errorf("Expected VID 0x2808, got 0x%04X", VendorIDFocalTech)
	}
	if ProductIDFT9201 != 0x93A9 {
		t.Errorf("Expected PID 0x93A9, got 0x%04X", ProductIDFT9201)
	}
	if !IsIn(FT9201BulkIn) || IsIn(FT9201BulkOut) {
		t.Errorf("bulk endpoint directions are wrong: in=0x%02X out=0x%02X", FT9201BulkIn, FT9201BulkOut)
	}
}

func TestOpenOptionsDefaults(t *testing.T) {
	o := OpenOptions{}.withDefaults()
	if o.Config != 1 || o.Interface != 0 || o.SettleDelay != 500*time.Millisecond {
		t.Fatalf("unexpected defaults: %+v", o)
	}
}

func TestDeviceInfoBulkEndpoints(t *testing.T) {
	info := DeviceInfo{
		Configs: []ConfigInfo{{
			Number: 1,
			Interfaces: []InterfaceInfo{{
				Endpoints: []EndpointInfo{
					{Address: 0x81, TransferType: "interrupt"},
					{Address: 0x02, TransferType: "bulk"},
					{Address: 0x83, TransferType: "bulk"},
				},
			}},
		}},
	}
	in, out := info.BulkEndpoints()
	if in != 0x83 || out != 0x02 {
		t.Fatalf("BulkEndpoints = 0x%02X/0x%02X, want 0x83/0x02", in, out)
	}
}

func TestDiscoverDevices(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// This will work even if no hardware is connected
	devices, err := DiscoverDevices(ctx, Filter{OnlyKnown: true})
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	t.Logf("Found %d known device(s)", len(devices))
	for _, dev := range devices {
		t.Logf("  %s bus %d addr %d", dev.Label(), dev.Bus, dev.Address)
	}
}

// Integration test - only runs with real hardware
func TestUSBTransportIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tr, err := Open(VendorIDFocalTech, ProductIDFT9201, OpenOptions{})
	if errors.Is(err, ErrDeviceNotFound) {
		t.Skipf("No FT9201 hardware found: %v", err)
	}
	if err != nil {
		t.Skipf("Cannot open FT9201: %v", err)
	}
	defer tr.Close()

	status := make([]byte, 8)
	n, err := tr.Control(VendorIn, FT9201StatusRequest, 0, 0, status, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("status read failed: %v", err)
	}
	t.Logf("Status (%d bytes): % X", n, status[:n])
}
