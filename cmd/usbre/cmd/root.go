package cmd

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceUSB/internal/config"
	"github.com/OpenTraceLab/OpenTraceUSB/internal/logging"
)

var (
	// Global flags
	verbose     bool
	jsonLogs    bool
	configPath  string
	adapterType string

	// Set up before every command
	cfg    *config.Config
	logger = logr.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "usbre",
	Short: "USB register discovery and capture for undocumented sensors",
	Long: `A reverse engineering tool for USB devices with an undocumented vendor
protocol. It sweeps vendor control registers looking for status changes or
bulk data, replays write sequences, tries bulk commands, and captures raw
sensor frames with a grayscale bitmap preview.

The defaults describe the FocalTech FT9201 fingerprint sensor (2808:93A9);
use --config to target another device.

Examples:
  usbre devices                                   # List attached USB devices
  usbre sweep --adapter simulator                 # Register sweep against the simulator
  usbre sweep --output sweep.json                 # Sweep the real device, save the report
  usbre capture --out-dir captures/               # Capture a frame and write raw + BMP
  usbre convert fingerprint.raw --width 160       # Re-render a raw dump`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync(logger)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (log every transfer)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "log-json", false, "write logs as JSON lines")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file (default: built-in FT9201 settings)")
	rootCmd.PersistentFlags().StringVarP(&adapterType, "adapter", "a", "usb",
		"transport (usb, simulator)")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err = logging.New(logging.Options{Verbose: verbose, JSON: jsonLogs})
	if err != nil {
		return err
	}
	return nil
}
