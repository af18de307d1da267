package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceUSB/internal/config"
	"github.com/OpenTraceLab/OpenTraceUSB/pkg/probe"
)

var (
	bulkCommands []string
	bulkOutput   string
)

var bulkscanCmd = &cobra.Command{
	Use:   "bulkscan",
	Short: "Send candidate commands on the bulk OUT endpoint",
	Long: `Send each candidate command, raw and with a 16-bit sum or XOR checksum
appended, then poll the bulk IN endpoint for a response. The first response
ends the scan.

Examples:
  usbre bulkscan --adapter simulator
  usbre bulkscan --command "55 AA 01 00" --command "FC 01"`,
	RunE: runBulkscan,
}

func init() {
	rootCmd.AddCommand(bulkscanCmd)

	bulkscanCmd.Flags().StringArrayVar(&bulkCommands, "command", nil, "candidate command in hex (default: probe.commands)")
	bulkscanCmd.Flags().StringVarP(&bulkOutput, "output", "o", "", "save the report (.json, .yaml)")
}

func runBulkscan(cmd *cobra.Command, args []string) error {
	pc, err := probeConfig()
	if err != nil {
		return err
	}
	if len(bulkCommands) > 0 {
		pc.Commands = nil
		for _, c := range bulkCommands {
			b, err := config.ParseHexBytes(c)
			if err != nil {
				return err
			}
			pc.Commands = append(pc.Commands, b)
		}
	}

	_, err = runScan("bulkscan", pc, bulkOutput,
		func(ctx context.Context, p *probe.Prober, progress chan<- probe.Progress) (*probe.Report, error) {
			return p.BulkScan(ctx, progress)
		})
	return err
}
