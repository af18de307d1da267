package usbdev

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/gousb"
)

// EndpointInfo describes one endpoint of an interface setting.
type EndpointInfo struct {
	Address       uint8  `json:"address" yaml:"address"`
	Direction     string `json:"direction" yaml:"direction"`
	TransferType  string `json:"transfer_type" yaml:"transfer_type"`
	MaxPacketSize int    `json:"max_packet_size" yaml:"max_packet_size"`
}

// InterfaceInfo describes one alternate setting of an interface.
type InterfaceInfo struct {
	Number    int            `json:"number" yaml:"number"`
	Alternate int            `json:"alternate" yaml:"alternate"`
	Class     string         `json:"class" yaml:"class"`
	Endpoints []EndpointInfo `json:"endpoints" yaml:"endpoints"`
}

// ConfigInfo describes one configuration of a device.
type ConfigInfo struct {
	Number     int             `json:"number" yaml:"number"`
	Interfaces []InterfaceInfo `json:"interfaces" yaml:"interfaces"`
}

// DeviceInfo represents a discovered USB device and its descriptor tree.
type DeviceInfo struct {
	VendorID    uint16       `json:"vendor_id" yaml:"vendor_id"`
	ProductID   uint16       `json:"product_id" yaml:"product_id"`
	Bus         int          `json:"bus" yaml:"bus"`
	Address     int          `json:"address" yaml:"address"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Known       bool         `json:"known" yaml:"known"`
	Configs     []ConfigInfo `json:"configs" yaml:"configs"`
}

// Label returns a user-friendly description for the device.
func (d DeviceInfo) Label() string {
	if d.Description != "" {
		return fmt.Sprintf("%s (%04X:%04X)", d.Description, d.VendorID, d.ProductID)
	}
	return fmt.Sprintf("Device %04X:%04X", d.VendorID, d.ProductID)
}

// BulkEndpoints returns the first bulk IN and OUT endpoint addresses found in
// the descriptor tree, or zero when absent.
func (d DeviceInfo) BulkEndpoints() (in, out uint8) {
	for _, cfg := range d.Configs {
		for _, intf := range cfg.Interfaces {
			for _, ep := range intf.Endpoints {
				if ep.TransferType != gousb.TransferTypeBulk.String() {
					continue
				}
				if IsIn(ep.Address) && in == 0 {
					in = ep.Address
				}
				if !IsIn(ep.Address) && out == 0 {
					out = ep.Address
				}
			}
		}
	}
	return in, out
}

// Filter selects devices during discovery. A zero VendorID matches any
// vendor; a zero ProductID matches any product of that vendor.
type Filter struct {
	VendorID  uint16
	ProductID uint16
	OnlyKnown bool
}

func (f Filter) match(desc *gousb.DeviceDesc) bool {
	if f.VendorID != 0 && uint16(desc.Vendor) != f.VendorID {
		return false
	}
	if f.ProductID != 0 && uint16(desc.Product) != f.ProductID {
		return false
	}
	if f.OnlyKnown {
		_, ok := lookupKnown(uint16(desc.Vendor), uint16(desc.Product))
		return ok
	}
	return true
}

// DiscoverDevices enumerates attached USB devices matching the filter and
// returns their descriptor trees. Devices are not opened.
func DiscoverDevices(ctx context.Context, filter Filter) ([]DeviceInfo, error) {
	var results []DeviceInfo
	usb := gousb.NewContext()
	defer usb.Close()

	_, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		if filter.match(desc) {
			results = append(results, describeDesc(desc))
		}
		return false
	})
	if err != nil && err != gousb.ErrorAccess {
		return results, fmt.Errorf("usbdev: enumerate devices: %w", err)
	}

	return results, nil
}

func describeDevice(dev *gousb.Device) DeviceInfo {
	info := describeDesc(dev.Desc)
	if !info.Known {
		manufacturer, _ := dev.Manufacturer()
		product, _ := dev.Product()
		if manufacturer != "" || product != "" {
			info.Description = fmt.Sprintf("%s %s", manufacturer, product)
		}
	}
	return info
}

func describeDesc(desc *gousb.DeviceDesc) DeviceInfo {
	info := DeviceInfo{
		VendorID:  uint16(desc.Vendor),
		ProductID: uint16(desc.Product),
		Bus:       desc.Bus,
		Address:   desc.Address,
	}
	if known, ok := lookupKnown(info.VendorID, info.ProductID); ok {
		info.Known = true
		info.Description = known.Description
	}

	cfgNums := make([]int, 0, len(desc.Configs))
	for n := range desc.Configs {
		cfgNums = append(cfgNums, n)
	}
	sort.Ints(cfgNums)

	for _, n := range cfgNums {
		cfg := desc.Configs[n]
		ci := ConfigInfo{Number: cfg.Number}
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				ii := InterfaceInfo{
					Number:    alt.Number,
					Alternate: alt.Alternate,
					Class:     alt.Class.String(),
				}
				for _, ep := range alt.Endpoints {
					ii.Endpoints = append(ii.Endpoints, EndpointInfo{
						Address:       uint8(ep.Address),
						Direction:     ep.Direction.String(),
						TransferType:  ep.TransferType.String(),
						MaxPacketSize: ep.MaxPacketSize,
					})
				}
				sort.Slice(ii.Endpoints, func(a, b int) bool {
					return ii.Endpoints[a].Address < ii.Endpoints[b].Address
				})
				ci.Interfaces = append(ci.Interfaces, ii)
			}
		}
		info.Configs = append(info.Configs, ci)
	}

	return info
}

type knownUSBDevice struct {
	VendorID    uint16
	ProductID   uint16
	Description string
}

var knownDevices = []knownUSBDevice{
	{VendorID: VendorIDFocalTech, ProductID: ProductIDFT9201, Description: "FocalTech FT9201 Fingerprint Sensor"},
	{VendorID: 0x27c6, ProductID: 0x5395, Description: "Goodix Fingerprint Sensor"},
	{VendorID: 0x06cb, ProductID: 0x00bd, Description: "Synaptics Fingerprint Sensor"},
}

func lookupKnown(vid, pid uint16) (knownUSBDevice, bool) {
	for _, k := range knownDevices {
		if k.VendorID == vid && k.ProductID == pid {
			return k, true
		}
	}
	return knownUSBDevice{}, false
}
