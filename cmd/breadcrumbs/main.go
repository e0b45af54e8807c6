// Command breadcrumbs runs the components declared in a configuration file.
//
// Usage:
//
//	breadcrumbs [flags]
//
// Flags:
//
//	-config string        Configuration file (default "breadcrumbs.yaml")
//	-log-level string     Override logging.level
//	-metrics string       Override metrics.address, e.g. ":9102"
//	-protocol-log string  Write protocol events to this CBOR file
//	-interactive          Start the interactive console
//	-version              Print the version and exit
//
// Examples:
//
//	# Run a bridge server and a test app
//	breadcrumbs -config server.yaml
//
//	# Run a client with a console and capture its traffic
//	breadcrumbs -config client.yaml -interactive -protocol-log client.cbor
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/breadcrumbs/breadcrumbs-go/cmd/breadcrumbs/interactive"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/config"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/logging"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/version"
)

var (
	configPath  = flag.String("config", "breadcrumbs.yaml", "Configuration file")
	logLevel    = flag.String("log-level", "", "Override logging.level: debug, info, warn, error")
	metricsAddr = flag.String("metrics", "", "Override metrics.address")
	protocolLog = flag.String("protocol-log", "", "File path for protocol event logging (CBOR format)")
	interact    = flag.Bool("interactive", false, "Start the interactive console")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("breadcrumbs %s (protocol %s)\n", version.Build, version.Protocol)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		console *interactive.Console
		logger  *slog.Logger
	)
	if *interact {
		console, err = interactive.New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = logging.NewWithWriter(cfg.Logging, version.Build, console.Stdout())
	} else {
		logger = logging.New(cfg.Logging, version.Build)
	}
	slog.SetDefault(logger)

	if err := run(ctx, stop, cfg, logger, console); err != nil {
		logger.Error("breadcrumbs failed", "error", err)
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config) {
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *metricsAddr != "" {
		cfg.Metrics.Address = *metricsAddr
	}
	if *protocolLog != "" {
		cfg.ProtocolLog.Path = *protocolLog
	}
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *slog.Logger, console *interactive.Console) error {
	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	logger.Info("starting", "components", len(cfg.Components))

	if console != nil {
		console.Bind(app.Runtime())
		go console.Run(ctx, cancel)
	}

	if err := app.Run(ctx); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
