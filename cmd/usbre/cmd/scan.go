package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/probe"
)

// scanFunc runs one discovery mode on a prepared prober.
type scanFunc func(ctx context.Context, p *probe.Prober, progress chan<- probe.Progress) (*probe.Report, error)

// runScan opens the device, runs scan, prints the report and saves it to
// output. An interrupted scan still prints and saves its partial report.
func runScan(label string, pc *probe.Config, output string, scan scanFunc) (*probe.Report, error) {
	dev, err := openDevice()
	if err != nil {
		return nil, err
	}
	defer dev.Close()

	p, err := probe.NewProber(dev.Transport, pc, logger)
	if err != nil {
		return nil, err
	}

	ctx, stop := commandContext()
	defer stop()

	fmt.Printf("Running %s on %s...\n", label, dev.Name)

	progress, wait := startProgress(label)
	rep, scanErr := scan(ctx, p, progress)
	wait()

	if rep != nil {
		printReport(rep)
		if err := writeReport(rep, output); err != nil {
			return rep, err
		}
	}

	if scanErr != nil {
		if errors.Is(scanErr, context.Canceled) {
			return rep, nil
		}
		return rep, fmt.Errorf("%s failed: %w", label, scanErr)
	}
	return rep, nil
}

// registerRange resolves --first/--last against the configured maximum.
func registerRange(first, last string, limit int) (uint8, uint8, error) {
	f, err := parseRegister(first)
	if err != nil {
		return 0, 0, err
	}
	l := uint8(limit)
	if last != "" {
		if l, err = parseRegister(last); err != nil {
			return 0, 0, err
		}
	}
	if f > l {
		return 0, 0, fmt.Errorf("first register 0x%02X is after last 0x%02X", f, l)
	}
	return f, l, nil
}
