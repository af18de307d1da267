package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/capture"
)

var (
	captureOutDir    string
	captureWidth     int
	captureStrictArm bool
	captureSkipAck   bool
	captureMaxBuffer int
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a raw sensor frame",
	Long: `Arm the sensor, wait for its acknowledge, send the capture command and
stream the bulk IN endpoint until a short packet, a full buffer or too many
failed reads in a row. Whatever was received is written as a raw dump plus a
grayscale bitmap preview, also when the capture fails part way.

A failed arm write is reported and the capture continues in degraded mode,
unless --strict-arm is given.

Examples:
  usbre capture --adapter simulator --out-dir /tmp/cap
  usbre capture --width 160 --strict-arm`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringVarP(&captureOutDir, "out-dir", "d", "", "output directory (default: output.dir)")
	captureCmd.Flags().IntVarP(&captureWidth, "width", "w", 0, "preview width in pixels (default: image.width)")
	captureCmd.Flags().BoolVar(&captureStrictArm, "strict-arm", false, "abort when the arm command cannot be written")
	captureCmd.Flags().BoolVar(&captureSkipAck, "skip-ack", false, "do not wait for the acknowledge")
	captureCmd.Flags().IntVar(&captureMaxBuffer, "max-buffer", 0, "capture buffer size in bytes (default: capture.max_buffer)")
}

func runCapture(cmd *cobra.Command, args []string) error {
	cc := captureConfig()
	if captureStrictArm {
		cc.StrictArm = true
	}
	if captureSkipAck {
		cc.SkipAck = true
	}
	if captureMaxBuffer > 0 {
		cc.MaxBuffer = captureMaxBuffer
	}
	width := cfg.Image.Width
	if captureWidth > 0 {
		width = captureWidth
	}
	dir := cfg.Output.Dir
	if captureOutDir != "" {
		dir = captureOutDir
	}

	dev, err := openDevice()
	if err != nil {
		return err
	}
	defer dev.Close()

	session, err := capture.NewSession(dev.Transport, cc, logger)
	if err != nil {
		return err
	}

	ctx, stop := commandContext()
	defer stop()

	fmt.Printf("Capturing from %s...\n", dev.Name)
	res, runErr := session.Run(ctx)

	printCapture(res)

	art, err := capture.SaveArtifacts(dir, cfg.Output.RawName, cfg.Output.BMPName, res.Data, width)
	if err != nil {
		return errors.Join(runErr, err)
	}
	if art.RawPath != "" {
		fmt.Printf("✓ Raw dump saved to: %s (%d bytes)\n", art.RawPath, len(res.Data))
		fmt.Printf("✓ Preview saved to: %s (%dx%d)\n", art.BMPPath, art.Width, art.Height)
	} else {
		fmt.Println("No data captured, nothing written.")
	}

	if runErr != nil {
		return fmt.Errorf("capture failed: %w", runErr)
	}
	return nil
}

func printCapture(res *capture.Result) {
	fmt.Println()
	fmt.Printf("State:         %s\n", res.State)
	if res.Cause != capture.CauseNone {
		fmt.Printf("Cause:         %s\n", res.Cause)
	}
	if res.Degraded {
		fmt.Printf("⚠ Degraded:    arm write failed (%v)\n", res.ArmErr)
	}
	if res.Ack != nil {
		fmt.Printf("Acknowledge:   % X\n", res.Ack)
	} else if res.AckErr != nil {
		fmt.Printf("Acknowledge:   none (%v)\n", res.AckErr)
	}
	fmt.Printf("Chunks:        %d of %d reads (%d failed)\n", res.Chunks, res.Reads, res.Failures)
	fmt.Printf("Bytes:         %d\n", len(res.Data))
	switch {
	case res.Full:
		fmt.Println("End:           buffer full")
	case res.ShortPacket:
		fmt.Println("End:           short packet")
	}
	fmt.Printf("Time elapsed:  %s\n", res.Elapsed.Round(1e6))
	fmt.Println()
}
