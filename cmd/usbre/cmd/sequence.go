package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/probe"
	"github.com/OpenTraceLab/OpenTraceUSB/pkg/script"
)

var (
	seqScript string
	seqDump   bool
	seqOnly   []string
	seqOutput string
)

var sequenceCmd = &cobra.Command{
	Use:   "sequence",
	Short: "Replay register write sequences",
	Long: `Replay named write sequences and watch status and bulk data after every
write. Sequences come from a script file or the built-in set:

  sequence "wake-and-go" {
      reset
      write 0x36 1
      sleep 50ms
      write 0x30 1
  }

Examples:
  usbre sequence --adapter simulator
  usbre sequence --dump > sequences.seq
  usbre sequence --script sequences.seq --only wake-and-go`,
	RunE: runSequence,
}

func init() {
	rootCmd.AddCommand(sequenceCmd)

	sequenceCmd.Flags().StringVarP(&seqScript, "script", "s", "", "sequence script (default: probe.sequence_script or built-in)")
	sequenceCmd.Flags().BoolVar(&seqDump, "dump", false, "print the sequences and exit")
	sequenceCmd.Flags().StringSliceVar(&seqOnly, "only", nil, "run only the named sequences")
	sequenceCmd.Flags().StringVarP(&seqOutput, "output", "o", "", "save the report (.json, .yaml)")
}

func runSequence(cmd *cobra.Command, args []string) error {
	path := seqScript
	if path == "" {
		path = cfg.Probe.Sequence
	}
	seqs, err := probe.LoadSequences(path)
	if err != nil {
		return err
	}
	if seqs, err = selectSequences(seqs, seqOnly); err != nil {
		return err
	}

	if seqDump {
		fmt.Print(script.Format(seqs))
		return nil
	}

	if verbose {
		for _, s := range seqs {
			fmt.Println("  " + probe.SequenceSummary(s))
		}
	}

	pc, err := probeConfig()
	if err != nil {
		return err
	}

	_, err = runScan("sequence", pc, seqOutput,
		func(ctx context.Context, p *probe.Prober, progress chan<- probe.Progress) (*probe.Report, error) {
			return p.RunSequences(ctx, seqs, progress)
		})
	return err
}

func selectSequences(seqs []script.Sequence, names []string) ([]script.Sequence, error) {
	if len(names) == 0 {
		return seqs, nil
	}
	byName := make(map[string]script.Sequence, len(seqs))
	for _, s := range seqs {
		byName[s.Name] = s
	}
	var out []script.Sequence
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("no sequence named %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}
