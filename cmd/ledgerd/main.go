package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/kongsikongsideveloper/WaykiChain/node"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg := node.DefaultConfig()
	subCmd, opts, err := parseCommandLine(args, &cfg, stdout)
	if errors.Is(err, errHelp) {
		return 0
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	logger, err := node.NewLogger(stderr, cfg.LogLevel, cfg.LogDir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "logger: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsListen != "" {
		go func() {
			if err := node.ServeMetrics(ctx, cfg.MetricsListen); err != nil {
				logger.Error().Err(err).Str("addr", cfg.MetricsListen).Msg("metrics server stopped")
			}
		}()
	}

	e := &env{cfg: cfg, log: logger, stdout: stdout}
	if err := e.dispatch(ctx, subCmd, opts); err != nil {
		logger.Error().Err(err).Str("cmd", subCmd).Msg("command failed")
		return 1
	}
	return 0
}
