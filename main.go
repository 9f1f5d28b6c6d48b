package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/ls1intum/hades/hadesLogForwarder/cloudwatch"
	"github.com/ls1intum/hades/hadesLogForwarder/forwarder"
	"github.com/ls1intum/hades/hadesLogForwarder/nats"
	"github.com/ls1intum/hades/hadesLogForwarder/utils"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2

	cleanupTimeout = 30 * time.Second
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			return exitOK
		}
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	var cfg ForwarderConfig
	if err := utils.LoadConfig(&cfg); err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		return exitError
	}

	closeLogging, err := utils.SetupLogging(cfg.Log, os.Stderr)
	if err != nil {
		slog.Error("Failed to set up logging", slog.Any("error", err))
		return exitError
	}
	defer closeLogging()

	cfg.applyFlags(opts)
	if err := cfg.validate(); err != nil {
		slog.Error("Invalid configuration", slog.Any("error", err))
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		newClient: func(ctx context.Context, cfg cloudwatch.Config) (forwarder.Client, error) {
			return cloudwatch.New(ctx, cfg)
		},
		newExecutor: newExecutor,
		logger:      utils.ComponentLogger("main"),
	}

	if cfg.Nats.Enabled() {
		nc, err := nats.SetupNatsConnection(cfg.Nats)
		if err != nil {
			slog.Warn("Continuing without log mirror", slog.Any("error", err))
		} else {
			defer nc.Close()
			publisher, err := nats.NewBatchPublisher(ctx, nc)
			if err != nil {
				slog.Warn("Continuing without log mirror", slog.Any("error", err))
			} else {
				a.mirror = publisher
			}
		}
	}

	if err := a.forward(ctx, cfg); err != nil {
		slog.Error("Log forwarding failed", slog.Any("error", err))
		return exitError
	}
	return exitOK
}

type app struct {
	newClient   func(ctx context.Context, cfg cloudwatch.Config) (forwarder.Client, error)
	newExecutor func(cfg ForwarderConfig) (executor, error)
	mirror      forwarder.Mirror
	logger      *slog.Logger
}

// forward makes sure the destination exists, runs the command and forwards
// its output until the command closes it. The process is removed on every
// path once it has been started.
func (a *app) forward(ctx context.Context, cfg ForwarderConfig) error {
	client, err := a.newClient(ctx, cfg.AWS)
	if err != nil {
		return fmt.Errorf("creating CloudWatch Logs client: %w", err)
	}

	dest := forwarder.Destination{Group: cfg.Group, Stream: cfg.Stream}
	token, err := forwarder.EnsureDestination(ctx, client, dest)
	if err != nil {
		return err
	}

	options := []forwarder.Option{
		forwarder.WithLimits(cfg.limits()),
		forwarder.WithLogger(utils.ComponentLogger("forwarder").With(
			slog.String("destination", dest.String()),
			slog.String("executor", cfg.Executor))),
	}
	if a.mirror != nil {
		options = append(options, forwarder.WithMirror(a.mirror))
	}
	fwd, err := forwarder.New(client, dest, token, options...)
	if err != nil {
		return err
	}

	exec, err := a.newExecutor(cfg)
	if err != nil {
		return fmt.Errorf("creating %s executor: %w", cfg.Executor, err)
	}
	defer exec.Close()

	proc, err := exec.Start(ctx, cfg.Image, cfg.Command)
	if err != nil {
		return fmt.Errorf("starting command: %w", err)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if err := proc.Remove(cleanupCtx); err != nil {
			a.logger.Warn("Failed to remove process", slog.Any("error", err))
		}
	}()

	source, err := proc.Logs(ctx)
	if err != nil {
		return err
	}
	defer source.Close()

	a.logger.Info("Forwarding logs", slog.String("image", cfg.Image), slog.String("destination", dest.String()))
	if err := fwd.Run(ctx, source); err != nil {
		return err
	}

	code, err := proc.Wait(ctx)
	if err != nil {
		a.logger.Warn("Failed to get exit status", slog.Any("error", err))
	} else {
		a.logger.Info("Command finished", slog.Int64("exit_code", code), slog.Int("lines", fwd.Forwarded()))
	}
	return nil
}
