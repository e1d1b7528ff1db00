//go:build linux

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

const defaultConfigPath = "/etc/wheeldrive/config.yaml"

func printVersion() {
	fmt.Printf("wheeldrive v%s\n", version)
	fmt.Println("Motorized wheel controller with speed-following drive and a menu panel")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  wheeldrive [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Samples a wheel encoder, filters its speed and drives a PWM motor")
	fmt.Println("  toward the configured duty whenever the wheel is turned. A second")
	fmt.Println("  encoder and a push button run the settings menu on a small OLED.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Printf("        YAML config file (default %q; missing default file means built-in defaults)\n", defaultConfigPath)
	fmt.Println()
	fmt.Println("  -backend string")
	fmt.Println("        Override hardware.backend: periph|sim")
	fmt.Println()
	fmt.Println("  -storage string")
	fmt.Println("        Override storage.backend: file|eeprom|memory")
	fmt.Println()
	fmt.Println("  -storage-path string")
	fmt.Println("        Override storage.path")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Override ipc.socket_path")
	fmt.Println()
	fmt.Println("  -http-port int")
	fmt.Println("        Override http.port (0 disables)")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Override logging.level: error, warn, info, debug")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Run on the target with the installed config")
	fmt.Println("  wheeldrive")
	fmt.Println()
	fmt.Println("  # Run on a workstation without hardware")
	fmt.Println("  wheeldrive -backend sim -storage memory")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires access to /dev/input, /dev/gpiochip* and /dev/i2c-* (run as root or add user to the matching groups)")
	fmt.Println("  - Observe state on ws://HOST:PORT/ws/state and the display on http://HOST:PORT/display.png")
	fmt.Println()
}

// setFlags returns the names of flags that were set on the command line.
func setFlags(fset *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fset.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// loadConfig resolves defaults, then the config file, then flag overrides.
func loadConfig(path string, explicit bool, o FlagOverrides) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		fileCfg, err := LoadConfigFile(path)
		switch {
		case err == nil:
			cfg = fileCfg
		case !explicit && errors.Is(err, fs.ErrNotExist):
			// No installed config; run on defaults.
		default:
			return Config{}, err
		}
	}
	o.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func main() {
	var (
		configPath    = flag.String("config", defaultConfigPath, "YAML config file")
		backend       = flag.String("backend", "", "Override hardware.backend: periph|sim")
		storage       = flag.String("storage", "", "Override storage.backend: file|eeprom|memory")
		storagePath   = flag.String("storage-path", "", "Override storage.path")
		ipcSocketPath = flag.String("ipc-socket", "", "Override ipc.socket_path")
		httpPort      = flag.Int("http-port", 0, "Override http.port (0 disables)")
		logLevelStr   = flag.String("log-level", "", "Override logging.level")
		showVersion   = flag.Bool("version", false, "Print version and exit")
		showHelp      = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Only flags given on the command line override the file.
	set := setFlags(flag.CommandLine)
	var o FlagOverrides
	if set["backend"] {
		o.Backend = backend
	}
	if set["storage"] {
		o.StorageBackend = storage
	}
	if set["storage-path"] {
		o.StoragePath = storagePath
	}
	if set["ipc-socket"] {
		o.IPCSocketPath = ipcSocketPath
	}
	if set["http-port"] {
		o.HTTPPort = httpPort
	}
	if set["log-level"] {
		o.LogLevel = logLevelStr
	}

	cfg, err := loadConfig(*configPath, set["config"], o)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	level, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(os.Stdout, level)

	if err := run(cfg, logger); err != nil {
		logger.Error("wheeldrive stopped", "error", err)
		os.Exit(1)
	}
}

// run owns the daemon's lifetime: it opens the hardware, starts every
// goroutine and tears down when a signal arrives or any of them fails.
func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hw, err := openHardware(&cfg, logger)
	if err != nil {
		return fmt.Errorf("open hardware: %w", err)
	}
	defer func() {
		if err := hw.Close(); err != nil {
			logger.Warn("hardware close", "error", err)
		}
	}()

	settings, err := LoadSettings(hw.store, logger)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	state := newDaemonState(settings, cfg.NewFilter())
	events := make(chan Event, 64)

	// Broadcasts only have a consumer when the HTTP side is up.
	var broadcasts chan StateBroadcast
	if cfg.HTTP.Port > 0 {
		broadcasts = make(chan StateBroadcast, 256)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runDaemon(gctx, events, hw.inputs(), hw.effects(), cfg.ReducerConfig(), cfg.Intervals(), state, broadcasts, logger)
		return nil
	})

	if hw.runInputs != nil {
		g.Go(func() error {
			if err := hw.runInputs(gctx); err != nil {
				return fmt.Errorf("encoder inputs: %w", err)
			}
			return nil
		})
	}

	if cfg.IPC.Enabled {
		inj := newBenchInjector(hw.wheel, hw.menu, hw.button)
		g.Go(func() error {
			return runIPCServer(gctx, ExpandPath(cfg.IPC.SocketPath), inj, logger)
		})
	}

	if cfg.HTTP.Port > 0 {
		wsServer := NewServer(logger, events, ServerConfig{})
		mux := http.NewServeMux()
		wsServer.Register(mux, "/ws/state")
		mux.Handle("/display.png", hw.png)

		g.Go(func() error {
			wsServer.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, wsServer.Hub(), broadcasts, logger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.Port, mux, logger)
		})
	}

	logger.Info("wheeldrive started",
		"version", version,
		"backend", cfg.Hardware.Backend,
		"storage", cfg.Storage.Backend,
		"ipc", cfg.IPC.Enabled,
		"http_port", cfg.HTTP.Port)

	err = g.Wait()
	logger.Info("shutting down")
	return err
}
