package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ble-finder.klederson.com/internal/app"
	"ble-finder.klederson.com/internal/bluetooth"
	"ble-finder.klederson.com/internal/config"
	"ble-finder.klederson.com/internal/history"
	"ble-finder.klederson.com/internal/permission"
	"ble-finder.klederson.com/internal/scan"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagDemo     bool
	flagAdapter  string
	flagRange    float64
	flagAlpha    float64
	flagDB       string
	flagLogLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ble-finder",
		Short: "BLE Finder - find your earbuds, tags and phones by signal strength",
		Long: `BLE Finder scans for nearby Bluetooth Low Energy devices and helps you
walk toward the one you lost: pick it from the list and watch the proximity
gauge climb as you get closer.

Requires sudo or CAP_NET_ADMIN capability for real Bluetooth scanning.
Use --demo flag for demonstration mode without Bluetooth hardware.`,
		SilenceUsage: true,
		RunE:         run,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	pf.StringVar(&flagDB, "db", "", "History database path")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.Flags().BoolVar(&flagDemo, "demo", false, "Run in demo mode with fake devices (no Bluetooth required)")
	rootCmd.Flags().StringVar(&flagAdapter, "adapter", "hci0", "Bluetooth adapter to use")
	rootCmd.Flags().Float64Var(&flagRange, "range", config.DefaultMaxDistance, "Distance in meters shown as 0%")
	rootCmd.Flags().Float64Var(&flagAlpha, "alpha", config.DefaultSmoothingAlpha, "Smoothing factor in (0,1], weight of the newest reading")

	rootCmd.AddCommand(newHistoryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("demo") {
		cfg.Scan.Demo = flagDemo
	}
	if flags.Changed("adapter") {
		cfg.Scan.Adapter = flagAdapter
	}
	if flags.Changed("range") {
		cfg.Tracking.MaxDistance = flagRange
	}
	if flags.Changed("alpha") {
		cfg.Tracking.SmoothingAlpha = flagAlpha
	}
	if flags.Changed("db") {
		cfg.History.DBPath = flagDB
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, cfg.Validate()
}

// newLogger writes to the configured log file. The TUI owns the terminal.
func newLogger(cfg config.LogConfig) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: f, NoColor: true}).
		Level(level).
		With().Timestamp().Logger()
	return logger, f, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, logFile, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger.Info().Str("version", config.AppVersion).Bool("demo", cfg.Scan.Demo).Msg("starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := history.OpenSQLite(ctx, cfg.History.DBPath, config.HistoryLimit, logger)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	sampler := bluetooth.NewSampler(cfg.Scan.LostAfter, logger)
	provider, gate, cleanup := buildProviders(cfg.Scan, sampler, logger)
	defer cleanup()

	ctrl, err := scan.New(scan.Options{
		Sampler:        sampler,
		Provider:       provider,
		Gate:           gate,
		SmoothingAlpha: cfg.Tracking.SmoothingAlpha,
		MaxDistance:    cfg.Tracking.MaxDistance,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	samplerDone := make(chan struct{})
	go func() {
		defer close(samplerDone)
		_ = sampler.Run(ctx, cfg.Scan.SweepInterval)
	}()

	model := app.New(ctrl, ctrl.Registry(), store, app.Options{
		Adapter:     cfg.Scan.Adapter,
		MaxDistance: cfg.Tracking.MaxDistance,
		ListRefresh: cfg.UI.ListRefresh,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithFPS(config.TargetFPS),
	)
	bridge := app.NewBridge(p)
	ctrl.SetListener(bridge)

	_, err = p.Run()

	ctrl.SetListener(nil)
	bridge.Close()
	ctrl.Stop()
	cancel()
	<-samplerDone

	if ctrl.Status().Access == scan.AccessDenied && !cfg.Scan.Demo {
		fmt.Fprintln(os.Stderr, "\nBluetooth scanning requires elevated permissions.")
		fmt.Fprintln(os.Stderr, "Try one of:")
		fmt.Fprintln(os.Stderr, "  sudo ./ble-finder")
		fmt.Fprintln(os.Stderr, "  sudo setcap cap_net_admin+ep ./ble-finder")
		fmt.Fprintln(os.Stderr, "  ./ble-finder --demo    (demo mode, no hardware needed)")
	}
	logger.Info().Msg("stopped")
	return err
}

// buildProviders picks the demo or hardware scan sources.
func buildProviders(cfg config.ScanConfig, sampler *bluetooth.Sampler, logger zerolog.Logger) (bluetooth.Provider, permission.Requester, func()) {
	if cfg.Demo {
		return bluetooth.NewMockScanner(sampler), permission.Static(true), func() {}
	}

	opts := bluetooth.BLEOptions{
		IncludeUnnamed: cfg.IncludeUnnamed,
		Logger:         logger,
	}
	providers := bluetooth.Providers{}
	cleanup := func() {}

	if bluetooth.HcitoolAvailable() {
		monitor := bluetooth.NewConnectionMonitor(sampler, cfg.ConnPoll, logger)
		opts.Connections = monitor
		providers = append(providers, monitor)
		if cfg.ResolveNames {
			resolver := bluetooth.NewNameResolver(logger)
			opts.Names = resolver
			cleanup = resolver.Stop
		}
	} else {
		logger.Warn().Msg("hcitool not found, connection state and name resolution disabled")
	}

	providers = append(providers, bluetooth.NewBLEScanner(sampler, opts))
	return providers, permission.NewAdapterGate(logger), cleanup
}
