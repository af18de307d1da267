package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/bmp"
)

var (
	convertWidth  int
	convertOutput string
)

var convertCmd = &cobra.Command{
	Use:   "convert <raw-file>",
	Short: "Render a raw dump as a grayscale bitmap",
	Long: `Render a raw capture as an 8-bit grayscale BMP, one byte per pixel, rows
top-down. Trailing bytes that do not fill a row are dropped.

Examples:
  usbre convert fingerprint.raw
  usbre convert fingerprint.raw --width 192 --output wide.bmp`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().IntVarP(&convertWidth, "width", "w", 0, "image width in pixels (default: image.width)")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "bitmap path (default: <raw-file>.bmp)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	src := args[0]
	width := cfg.Image.Width
	if convertWidth > 0 {
		width = convertWidth
	}
	out := convertOutput
	if out == "" {
		out = strings.TrimSuffix(src, filepath.Ext(src)) + ".bmp"
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read raw dump: %w", err)
	}
	height, err := bmp.Dimensions(len(data), width)
	if err != nil {
		return err
	}
	if err := bmp.WriteFile(out, data, width); err != nil {
		return err
	}

	fmt.Printf("✓ %s -> %s (%dx%d", src, out, width, height)
	if rest := len(data) - width*height; rest > 0 {
		fmt.Printf(", %d trailing bytes dropped", rest)
	}
	fmt.Println(")")
	return nil
}
