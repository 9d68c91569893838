package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"selenex/internal/export"
	"selenex/internal/recorder"
	"selenex/pkg/chrome"
)

var (
	recordURL      string
	recordDevice   string
	recordOut      string
	recordHeadless bool
	recordFollow   bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Open a browser, record until interrupted, then write session.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("headless") {
			cfg.Chrome.Headless = recordHeadless
		}
		if recordDevice == "" {
			recordDevice = cfg.Chrome.Device
		}
		if recordOut == "" {
			recordOut = cfg.Recorder.OutputDir
		}
		return runRecord(cmd.OutOrStdout())
	},
}

func init() {
	recordCmd.Flags().StringVarP(&recordURL, "url", "u", "", "Page to open")
	recordCmd.Flags().StringVarP(&recordDevice, "device", "d", "", "Device to emulate (see chrome device list)")
	recordCmd.Flags().StringVarP(&recordOut, "out", "o", "", "Directory for session.json")
	recordCmd.Flags().BoolVar(&recordHeadless, "headless", false, "Run the browser headless")
	recordCmd.Flags().BoolVarP(&recordFollow, "follow", "f", false, "Print each action as it is recorded")
	_ = recordCmd.MarkFlagRequired("url")
}

func runRecord(w io.Writer) error {
	device, err := chrome.LookupDevice(recordDevice)
	if err != nil {
		return fmt.Errorf("%w (known: %v)", err, chrome.DeviceNames())
	}

	rec := recorder.NewChromeRecorder(uuid.NewString(), recordURL, device, recorderOptions(cfg), logger)
	if recordFollow {
		rec.Subscribe(&lineWriter{w: w})
	}

	if err := rec.StartRecording(); err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	logger.Info("recording, press Ctrl+C to stop", zap.String("session_id", rec.ID()), zap.String("url", recordURL))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	signal.Stop(sig)

	actions, err := rec.StopRecording()
	if err != nil {
		return err
	}
	path, err := export.WriteFile(recordOut, actions)
	if err != nil {
		if errors.Is(err, export.ErrEmptySession) {
			return fmt.Errorf("nothing recorded: %w", err)
		}
		return err
	}
	fmt.Fprintf(w, "wrote %d actions to %s\n", len(actions), path)
	return nil
}

// lineWriter prints each broadcast record as one JSON line.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = fmt.Fprintf(l.w, "%s\n", data)
	return err
}
