package main

import (
	"context"
	"finance-tracker-client/config"
	"finance-tracker-client/internal/devserver"
	"finance-tracker-client/internal/metrics"
	"finance-tracker-client/internal/util"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// @title Finance tracker dev server
// @version 1.0
// @description REST API учёта доходов и расходов для локальной разработки клиента

// @host localhost:8080

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := util.NewLogger(os.Stdout, cfg.Logging.Env, cfg.Logging.Level)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	dev, err := devserver.New(&cfg.DevServer.JWT, logger)
	if err != nil {
		log.Fatalf("Ошибка создания dev-сервера: %v", err)
	}

	srv, router := config.SetupServer(cfg.DevServer.Addr)
	dev.Routes(router)
	router.Handle("/metrics", metrics.Handler(registry))

	runServer(ctx, srv)
}

func runServer(ctx context.Context, server *http.Server) {
	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("сервер запущен", slog.String("addr", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("ошибка работы сервера: %v", err)
		}
	case sig := <-signalChannel:
		slog.Info("получен сигнал остановки сервера", slog.String("signal", sig.String()))
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		slog.Error("ошибка при остановке сервера", slog.Any("error", err))
	} else {
		slog.Info("сервер успешно остановлен")
	}
}
