package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/usbdev"
)

var devicesAll bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List USB devices and their endpoints",
	Long: `Enumerate attached USB devices and print their configurations,
interfaces and endpoints. By default only the configured device
(device.vendor_id / device.product_id) is shown. Use this to confirm the
sensor is attached and to find its bulk endpoints.`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)

	devicesCmd.Flags().BoolVar(&devicesAll, "all", false, "list every attached device")
}

func runDevices(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := usbdev.Filter{VendorID: cfg.Device.VendorID, ProductID: cfg.Device.ProductID}
	if devicesAll {
		filter = usbdev.Filter{}
	}

	infos, err := usbdev.DiscoverDevices(ctx, filter)
	if err != nil {
		return fmt.Errorf("discover devices: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No devices found.")
		return nil
	}

	fmt.Println("Detected USB devices:")
	for _, d := range infos {
		printDevice(d)
	}
	return nil
}

func printDevice(d usbdev.DeviceInfo) {
	fmt.Printf("  - %s [bus %d, address %d]\n", d.Label(), d.Bus, d.Address)
	for _, c := range d.Configs {
		fmt.Printf("      config %d\n", c.Number)
		for _, intf := range c.Interfaces {
			fmt.Printf("        interface %d alt %d (%s)\n", intf.Number, intf.Alternate, intf.Class)
			for _, ep := range intf.Endpoints {
				fmt.Printf("          0x%02X %-4s %-11s max packet %d\n",
					ep.Address, ep.Direction, ep.TransferType, ep.MaxPacketSize)
			}
		}
	}
	if in, out := d.BulkEndpoints(); in != 0 || out != 0 {
		fmt.Printf("      bulk IN 0x%02X, bulk OUT 0x%02X\n", in, out)
	}
}
