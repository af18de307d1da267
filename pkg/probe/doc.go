// Package probe discovers how an undocumented USB device reacts to vendor
// requests.
//
// Every scan follows the same pattern: poke the device, then look for an
// observable effect. Two effects count. A change in the first two bytes of
// the status block (vendor IN request 0x02 on the FT9201) is a
// StatusChanged hit. Any data arriving on the bulk IN endpoint is a
// BulkDataObserved hit and ends the scan, since that is what a capture
// trigger looks like. A refused write is not evidence of anything.
//
// # Scans
//
//   - Sweep: write the probe value to every register in a range.
//   - ReadScan: read every register and keep the interesting values.
//   - ValueScan: write every value 0..255 to a few target registers.
//   - RunSequences: replay write chains parsed from a script.
//   - BulkScan: send candidate commands, with checksums, on bulk OUT.
//   - Watch: poll a few registers and the bulk endpoint for changes.
//
// # Usage
//
//	t, err := usbdev.Open(usbdev.VendorIDFocalTech, usbdev.ProductIDFT9201, usbdev.OpenOptions{})
//	if err != nil {
//		return err
//	}
//	defer t.Close()
//
//	p, err := probe.NewProber(t, probe.DefaultConfig(), log)
//	if err != nil {
//		return err
//	}
//
//	rep, err := p.Sweep(ctx, 0x00, 0xFF, nil)
//	if err != nil {
//		return err
//	}
//	if hit, ok := rep.BulkHit(); ok {
//		fmt.Printf("register 0x%02X triggers bulk data\n", hit.Register)
//	}
//
//	data, _ := rep.ExportJSON()
//	os.WriteFile("sweep.json", data, 0644)
//
// A Prober issues one transfer at a time; every transfer carries its own
// timeout and the context is checked between probes.
package probe
