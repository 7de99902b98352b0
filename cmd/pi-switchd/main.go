package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dsyorkd/pi-switchd/internal/config"
	"github.com/dsyorkd/pi-switchd/internal/device"
	"github.com/dsyorkd/pi-switchd/internal/logger"
	"github.com/dsyorkd/pi-switchd/internal/pairing"
	"github.com/dsyorkd/pi-switchd/internal/schedule"
	"github.com/dsyorkd/pi-switchd/pkg/gpio"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pi-switchd",
	Short: "Pi Switchd - GPIO switch and schedule daemon",
	Long: `Pi Switchd drives relay outputs, momentary buttons and notification LEDs
on Raspberry Pi GPIO pins, and runs daily on/off schedules with fixed and
solar triggers against paired devices.`,
	RunE: runDaemon,
}

var (
	configFile string
	logLevel   string
	logFormat  string
	mockGPIO   bool
)

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "", "log format (json, text)")
	rootCmd.Flags().BoolVar(&mockGPIO, "mock-gpio", false, "use the mock GPIO backend")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Pi Switchd %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
	},
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Flags override file and environment settings
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if mockGPIO {
		cfg.GPIO.MockMode = true
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"version": version,
		"commit":  commit,
		"date":    date,
	}).Info("Starting Pi Switchd")

	pollInterval, err := cfg.GPIO.PollIntervalDuration()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hw := gpio.NewSubsystem(gpio.New(&gpio.Config{MockMode: cfg.GPIO.MockMode}))
	registry := pairing.NewRegistry(log)
	runner := device.NewExecRunner(log)
	solar := schedule.NewCalculator()

	var switches []*device.Switch
	var schedules []*schedule.Schedule

	shutdown := func() {
		for i := len(schedules) - 1; i >= 0; i-- {
			if err := schedules[i].Close(); err != nil {
				log.WithError(err).Warn("Schedule shutdown error")
			}
		}
		for i := len(switches) - 1; i >= 0; i-- {
			if err := switches[i].Close(); err != nil {
				log.WithError(err).Warn("Switch shutdown error")
			}
		}
	}

	for _, dc := range cfg.Devices {
		s, err := device.New(ctx, device.Config{
			Name:                dc.Name,
			Port:                dc.Port,
			OutputPin:           dc.OutputPin,
			OutputCommands:      dc.OutputCommands,
			Toggle:              dc.Type == "toggle",
			InputPin:            dc.InputPin,
			InputPullDirection:  dc.InputPullDirection,
			NotificationPin:     dc.NotificationPin,
			LongPressIntervalMs: dc.LongPressIntervalMs,
			LongPressAction:     dc.LongPressAction,
			PairedDeviceName:    dc.PairedDeviceName,
			PollInterval:        pollInterval,
		}, registry, hw, runner, log)
		if err != nil {
			shutdown()
			return fmt.Errorf("failed to create device %s: %w", dc.Name, err)
		}
		switches = append(switches, s)
	}

	for _, sc := range cfg.Schedules {
		s, err := schedule.New(schedule.Config{
			Name:             sc.Name,
			Port:             sc.Port,
			PairedDeviceName: sc.PairedDeviceName,
			Timezone:         sc.Timezone,
			Latitude:         sc.Latitude,
			Longitude:        sc.Longitude,
			InitialState:     sc.InitialState,
			Events:           sc.ScheduleEvents,
		}, registry, solar, log)
		if err != nil {
			shutdown()
			return fmt.Errorf("failed to create schedule %s: %w", sc.Name, err)
		}
		schedules = append(schedules, s)
	}

	log.WithFields(map[string]interface{}{
		"devices":   len(switches),
		"schedules": len(schedules),
	}).Info("Pi Switchd started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithField("signal", sig).Info("Received shutdown signal")

	shutdown()
	log.Info("Pi Switchd shutdown complete")
	return nil
}
