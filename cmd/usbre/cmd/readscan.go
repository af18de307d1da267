package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/probe"
)

var (
	readFirst  string
	readLast   string
	readLength int
	readOutput string
)

var readscanCmd = &cobra.Command{
	Use:   "readscan",
	Short: "Read every vendor register and list the interesting values",
	Long: `Issue a vendor IN control read for each register and print the values
that are not on the ignore list (00 00, FF FF and C0 C0 by default).

Examples:
  usbre readscan --adapter simulator
  usbre readscan --length 8 --output reads.yaml`,
	RunE: runReadscan,
}

func init() {
	rootCmd.AddCommand(readscanCmd)

	readscanCmd.Flags().StringVar(&readFirst, "first", "0x00", "first register")
	readscanCmd.Flags().StringVar(&readLast, "last", "", "last register (default: probe.max_register)")
	readscanCmd.Flags().IntVar(&readLength, "length", 0, "bytes per read (default: probe.read_length)")
	readscanCmd.Flags().StringVarP(&readOutput, "output", "o", "", "save the report (.json, .yaml)")
}

func runReadscan(cmd *cobra.Command, args []string) error {
	pc, err := probeConfig()
	if err != nil {
		return err
	}
	if readLength > 0 {
		pc.ReadLength = readLength
	}

	first, last, err := registerRange(readFirst, readLast, pc.MaxRegister)
	if err != nil {
		return err
	}

	rep, err := runScan("readscan", pc, readOutput,
		func(ctx context.Context, p *probe.Prober, progress chan<- probe.Progress) (*probe.Report, error) {
			return p.ReadScan(ctx, first, last, progress)
		})
	if rep != nil {
		printReads(rep)
	}
	return err
}

func printReads(rep *probe.Report) {
	if len(rep.Reads) == 0 {
		fmt.Println("\nNo interesting register values.")
		return
	}
	fmt.Printf("\nInteresting registers (%d):\n", len(rep.Reads))
	for _, r := range rep.Reads {
		fmt.Printf("  0x%02X: % X\n", r.Register, []byte(r.Value))
	}
}
