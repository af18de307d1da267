package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/probe"
)

// startProgress shows a progress bar until the returned function is called.
// In verbose mode the log replaces the bar and nil channel is returned.
func startProgress(label string) (chan<- probe.Progress, func()) {
	if verbose {
		return nil, func() {}
	}
	ch := make(chan probe.Progress, 16)
	done := make(chan struct{})
	go func() {
		displayProgress(label, ch)
		close(done)
	}()
	return ch, func() {
		close(ch)
		<-done
	}
}

// displayProgress shows real-time progress updates
func displayProgress(label string, progressCh <-chan probe.Progress) {
	lastPercent := -1
	shown := false

	for p := range progressCh {
		if p.Phase != "scanning" || p.Total == 0 {
			continue
		}

		percent := (p.Index * 100) / p.Total

		// Only update on percent change to reduce flicker
		if percent != lastPercent {
			barWidth := 40
			filled := (percent * barWidth) / 100
			bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

			fmt.Printf("\r[%s] %3d%% | %s 0x%02X <- %d | Hits: %d",
				bar, percent, label, p.Register, p.Value, p.Hits)

			lastPercent = percent
			shown = true
		}
	}

	if shown {
		fmt.Printf("\r%-80s\r", "") // Clear line
	}
}

// printReport displays the hits of a discovery run
func printReport(rep *probe.Report) {
	fmt.Println()
	fmt.Printf("Mode:            %s\n", rep.Mode)
	fmt.Printf("Baseline status: %s\n", rep.Baseline)
	fmt.Printf("Probes:          %d (%d rejected)\n", rep.Probed, rep.Rejected)
	fmt.Printf("Time elapsed:    %s\n", rep.Elapsed.Round(1e6))
	if rep.Interrupted {
		fmt.Println("⚠ Interrupted, results are partial")
	}
	fmt.Println()

	if len(rep.Hits) == 0 {
		fmt.Println("No status changes or bulk data observed.")
	}
	for _, h := range rep.Hits {
		switch h.Outcome {
		case probe.StatusChanged:
			fmt.Printf("  [!] %s\n", describeHit(h))
		case probe.BulkDataObserved:
			fmt.Printf("  [!!!] %s\n", describeHit(h))
			fmt.Printf("        data: % X\n", preview(h.Data, 32))
		}
	}

	if hit, ok := rep.BulkHit(); ok {
		fmt.Printf("\n✓ Bulk data triggered by %s\n", hitSource(hit))
	}
}

func describeHit(h probe.Result) string {
	switch h.Outcome {
	case probe.StatusChanged:
		return fmt.Sprintf("STATUS CHANGE %s: %s -> %s", hitSource(h), h.Old, h.New)
	case probe.BulkDataObserved:
		return fmt.Sprintf("BULK DATA %s: %d bytes", hitSource(h), len(h.Data))
	}
	return h.String()
}

func hitSource(h probe.Result) string {
	switch {
	case len(h.Command) > 0:
		return fmt.Sprintf("command % X", []byte(h.Command))
	case h.Sequence != "":
		return fmt.Sprintf("sequence %q step %d (reg 0x%02X <- %d)", h.Sequence, h.Step, h.Register, h.Value)
	}
	return fmt.Sprintf("reg 0x%02X <- %d", h.Register, h.Value)
}

func preview(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// writeReport saves the report as YAML for .yaml/.yml paths, JSON otherwise.
func writeReport(rep *probe.Report, path string) error {
	if path == "" {
		return nil
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = rep.ExportYAML()
	default:
		data, err = rep.ExportJSON()
	}
	if err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Printf("✓ Report saved to: %s\n", path)
	return nil
}
