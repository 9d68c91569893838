package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"selenex/internal/capture"
	"selenex/internal/config"
	"selenex/internal/fingerprint"
	"selenex/internal/logging"
	"selenex/internal/recorder"
)

var (
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "selenex",
	Short: "Record web interactions as replayable, self-describing action sessions",
	Long: `selenex records clicks, inputs, key presses and scrolls in a web page and stores
each one with a rich description of the element and a fingerprint of the page, so
a later run can find the same element again after the page changed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Log, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func captureOptions(c *config.Config) capture.Options {
	return capture.Options{
		AncestorLimit:  c.Recorder.AncestorLimit,
		MaxParentDepth: c.Recorder.MaxParentDepth,
		Fingerprint: fingerprint.Options{
			MaxTextChars: c.Recorder.MaxTextChars,
			MaxLandmarks: c.Recorder.MaxLandmarks,
		},
		ScrollWindow: c.Recorder.ScrollWindow,
		Keys:         c.Recorder.Keys,
	}
}

func recorderOptions(c *config.Config) recorder.Options {
	return recorder.Options{
		Capture:     captureOptions(c),
		ChromePath:  c.Chrome.Path,
		Headless:    c.Chrome.Headless,
		LoadTimeout: c.Chrome.LoadTimeout,
		QueueSize:   c.Recorder.QueueSize,
	}
}
