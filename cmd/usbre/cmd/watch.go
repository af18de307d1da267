package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/probe"
)

var (
	watchIterations int
	watchDuration   time.Duration
	watchRegisters  []string
	watchOutput     string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch registers and the bulk endpoint for changes",
	Long: `Apply the watch setup writes, then read the watched registers and poll
the bulk endpoint in a loop, printing every change. Useful while touching the
sensor. Stops after --iterations rounds, after --duration, or on Ctrl-C.

Examples:
  usbre watch --adapter simulator --iterations 20
  usbre watch --register 0x63 --register 0x6A --duration 30s`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().IntVarP(&watchIterations, "iterations", "n", 0, "rounds to run (0 = until interrupted)")
	watchCmd.Flags().DurationVar(&watchDuration, "duration", 0, "stop after this long (0 = no limit)")
	watchCmd.Flags().StringSliceVar(&watchRegisters, "register", nil, "registers to watch (default: probe.watch_registers)")
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "save the report (.json, .yaml)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	pc, err := probeConfig()
	if err != nil {
		return err
	}
	if len(watchRegisters) > 0 {
		if pc.WatchRegisters, err = parseRegisters(watchRegisters); err != nil {
			return err
		}
	}

	dev, err := openDevice()
	if err != nil {
		return err
	}
	defer dev.Close()

	p, err := probe.NewProber(dev.Transport, pc, logger)
	if err != nil {
		return err
	}

	ctx, stop := commandContext()
	defer stop()
	if watchDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, watchDuration)
		defer cancel()
	}

	fmt.Printf("Watching %s on %s (Ctrl-C to stop)...\n", formatRegisters(pc.WatchRegisters), dev.Name)

	events := make(chan probe.WatchEvent, 16)
	done := make(chan struct{})
	go func() {
		for ev := range events {
			printEvent(ev)
		}
		close(done)
	}()

	rep, err := p.Watch(ctx, watchIterations, events)
	close(events)
	<-done
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	fmt.Printf("\n%d register reads, %d changes\n", rep.Probed, len(rep.Events))
	return writeReport(rep, watchOutput)
}

func printEvent(ev probe.WatchEvent) {
	if ev.Bulk {
		fmt.Printf("  [%4d] BULK %d bytes: % X\n", ev.Iteration, len(ev.New), preview(ev.New, 32))
		return
	}
	fmt.Printf("  [%4d] 0x%02X: % X -> % X\n", ev.Iteration, ev.Register, []byte(ev.Old), []byte(ev.New))
}

func formatRegisters(regs []uint8) string {
	s := ""
	for i, r := range regs {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("0x%02X", r)
	}
	return s
}
