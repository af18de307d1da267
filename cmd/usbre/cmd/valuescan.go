package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/probe"
)

var (
	valueTargets []string
	valueOutput  string
)

var valuescanCmd = &cobra.Command{
	Use:   "valuescan",
	Short: "Write every value 0-255 to a few target registers",
	Long: `For each target register write every value from 0 to 255. A status
change triggers a larger bulk poll; data there ends the scan, otherwise the
restore writes put the device back before the next value.

Examples:
  usbre valuescan --adapter simulator
  usbre valuescan --target 0x01 --target 0x24 --output values.json`,
	RunE: runValuescan,
}

func init() {
	rootCmd.AddCommand(valuescanCmd)

	valuescanCmd.Flags().StringSliceVar(&valueTargets, "target", nil, "target registers (default: probe.targets)")
	valuescanCmd.Flags().StringVarP(&valueOutput, "output", "o", "", "save the report (.json, .yaml)")
}

func runValuescan(cmd *cobra.Command, args []string) error {
	pc, err := probeConfig()
	if err != nil {
		return err
	}
	if len(valueTargets) > 0 {
		if pc.Targets, err = parseRegisters(valueTargets); err != nil {
			return err
		}
	}

	_, err = runScan("valuescan", pc, valueOutput,
		func(ctx context.Context, p *probe.Prober, progress chan<- probe.Progress) (*probe.Report, error) {
			return p.ValueScan(ctx, progress)
		})
	return err
}
