package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/config"
	"github.com/aretw0/intake/internal/logging"
	httpAdapter "github.com/aretw0/intake/pkg/adapters/http"
	"github.com/aretw0/intake/pkg/adapters/telegram"
	"github.com/aretw0/intake/pkg/dispatch"
	"github.com/aretw0/intake/pkg/form"
	"github.com/aretw0/intake/pkg/observability"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	Long: `Starts long polling against the Telegram Bot API and, when an address is
configured, the HTTP API with health, metrics and session endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("http"); addr != "" {
			cfg.HTTPAddr = addr
		}
		if err := cfg.ValidateTelegram(); err != nil {
			return fmt.Errorf("invalid configuration:\n%w", err)
		}
		logger, err := logging.FromConfig(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("http", "", "HTTP listen address, e.g. :8080 (overrides INTAKE_HTTP_ADDR)")
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	def, err := loadForm(cfg)
	if err != nil {
		return err
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	logger.Info("authorized on telegram", "bot", api.Self.UserName)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg, fieldNames(def))
	streams := httpAdapter.NewStreamManager(logger)

	opts := []intake.Option{
		intake.WithForm(def),
		intake.WithStore(store.store),
		intake.WithLogger(logger),
		intake.WithMetrics(metrics),
		intake.WithLifecycleHooks(streams.Hooks()),
		intake.WithIdleCancelAck(cfg.IdleCancelAck),
		intake.WithDispatchOptions(dispatch.WithMaxInputSize(cfg.MaxInputSize)),
	}
	if store.locker != nil {
		opts = append(opts, intake.WithLocker(store.locker))
	}
	bot, err := intake.New(telegram.NewMessenger(api), cfg.AdminChannel, opts...)
	if err != nil {
		return err
	}
	defer bot.Close()

	errs := make(chan error, 1)

	var srv *http.Server
	if cfg.HTTPAddr != "" {
		srv = &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: httpAdapter.NewHandler(bot.Dispatcher(), bot.Sessions(), def,
				httpAdapter.WithLogger(logger),
				httpAdapter.WithGatherer(reg),
				httpAdapter.WithStreams(streams),
				httpAdapter.WithToken(cfg.HTTPToken),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}
		if cfg.HTTPToken == "" {
			logger.Warn("http api has no INTAKE_HTTP_TOKEN; /v1 is unauthenticated", "addr", cfg.HTTPAddr)
		}
		go func() {
			logger.Info("http api listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	poller := telegram.NewPoller(api, bot.Dispatcher(),
		telegram.WithPollTimeout(cfg.PollTimeoutSec),
		telegram.WithLogger(logger),
	)
	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	polled := make(chan error, 1)
	go func() {
		polled <- poller.Run(pollCtx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case runErr = <-errs:
		logger.Error("component failed", "err", runErr)
	case runErr = <-polled:
		polled = nil
	}

	stopPolling()
	if polled != nil {
		<-polled
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			srv.Close()
		}
	}
	logger.Info("intake stopped")
	return runErr
}

func fieldNames(def *form.Definition) []string {
	names := make([]string, 0, def.StepCount())
	for _, s := range def.Steps {
		names = append(names, s.Field)
	}
	return names
}
