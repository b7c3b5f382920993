package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/novastream/gateway/internal/config"
	"github.com/novastream/gateway/internal/handlers"
	"github.com/novastream/gateway/internal/httpserver"
	"github.com/novastream/gateway/internal/middleware"
)

// Run bootstraps the NovaStream gateway CLI. args includes the program name.
func Run(ctx context.Context, args []string) error {
	return newCommand(os.Stdout).Run(ctx, args)
}

func newCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "novastream",
		Usage:  "Private video library and photo gallery gateway",
		Writer: stdout,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP gateway until interrupted",
				Flags: configFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return serve(ctx, loadOptions(cmd), stdout)
				},
			},
			tokenCommand(stdout),
		},
	}
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a TOML configuration file",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Path to a dotenv file; ignored when missing",
			Value: ".env",
		},
	}
}

func loadOptions(cmd *cli.Command) config.LoadOptions {
	return config.LoadOptions{
		File:    cmd.String("config"),
		EnvFile: cmd.String("env-file"),
	}
}

func serve(ctx context.Context, opts config.LoadOptions, stdout io.Writer) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	deps, err := buildDependencies(ctx, cfg)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, deps)

	handler := middleware.RequestLogger(logger)(withCORS(cfg.CORSOrigins, mux))

	srv := httpserver.New(cfg.Port, handler, cfg.HTTPTimeout)

	logger.Info("starting http server",
		"port", cfg.Port,
		"backend", cfg.Media.Backend,
		"maxUploadBytes", cfg.Upload.MaxBytes,
		"maxConcurrentUploads", cfg.Upload.MaxConcurrent,
	)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
