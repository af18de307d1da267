package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/probe"
)

var (
	// Flags for sweep command
	sweepFirst  string
	sweepLast   string
	sweepReset  bool
	sweepWake   []string
	sweepSkip   []string
	sweepValue  int
	sweepOutput string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Write every vendor register and watch for a reaction",
	Long: `Sweep the vendor control registers in ascending order.

For every register the probe value is written with a vendor OUT control
transfer. The status request is then re-read and the bulk IN endpoint is
polled once:

  - a change in the first two status bytes is reported as a status change
    and becomes the new baseline
  - any bytes on the bulk endpoint are reported and stop the sweep

Writes the device rejects are counted and skipped.

Examples:
  # Full sweep against the simulator
  usbre sweep --adapter simulator

  # Reset first, wake the sensor, skip a register that hangs the device
  usbre sweep --reset --wake 0x36=1 --skip 0x3C --output sweep.json

  # Only part of the register space
  usbre sweep --first 0x20 --last 0x40`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVar(&sweepFirst, "first", "0x00", "first register")
	sweepCmd.Flags().StringVar(&sweepLast, "last", "", "last register (default: probe.max_register)")
	sweepCmd.Flags().BoolVar(&sweepReset, "reset", false, "reset the device before sweeping")
	sweepCmd.Flags().StringSliceVar(&sweepWake, "wake", nil, "writes issued before the sweep (e.g. 0x36=1)")
	sweepCmd.Flags().StringSliceVar(&sweepSkip, "skip", nil, "registers never written")
	sweepCmd.Flags().IntVar(&sweepValue, "value", -1, "probe value (default: probe.probe_value)")
	sweepCmd.Flags().StringVarP(&sweepOutput, "output", "o", "", "save the report (.json, .yaml)")
}

func runSweep(cmd *cobra.Command, args []string) error {
	pc, err := probeConfig()
	if err != nil {
		return err
	}

	if sweepReset {
		pc.ResetFirst = true
	}
	wake, err := parseWrites(sweepWake)
	if err != nil {
		return err
	}
	pc.Wake = append(pc.Wake, wake...)
	skip, err := parseRegisters(sweepSkip)
	if err != nil {
		return err
	}
	pc.Skip = append(pc.Skip, skip...)
	if sweepValue >= 0 {
		if sweepValue > 0xFFFF {
			return fmt.Errorf("probe value %d does not fit 16 bits", sweepValue)
		}
		pc.ProbeValue = uint16(sweepValue)
	}

	first, last, err := registerRange(sweepFirst, sweepLast, pc.MaxRegister)
	if err != nil {
		return err
	}

	_, err = runScan("sweep", pc, sweepOutput,
		func(ctx context.Context, p *probe.Prober, progress chan<- probe.Progress) (*probe.Report, error) {
			return p.Sweep(ctx, first, last, progress)
		})
	return err
}
