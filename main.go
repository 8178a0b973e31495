// main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/LilVoxy/fabric_activity_etl/ETL/config"
	"github.com/LilVoxy/fabric_activity_etl/ETL/runner"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
	"github.com/LilVoxy/fabric_activity_etl/routes"
	"github.com/LilVoxy/fabric_activity_etl/websocket"
)

func main() {
	cfg := config.GetConfig()

	addrPtr := flag.String("addr", cfg.AdminAddr, "Адрес административного сервера")
	schedulePtr := flag.Bool("schedule", false, "Запускать сборки по расписанию")
	flag.Parse()
	cfg.AdminAddr = *addrPtr

	logger, err := utils.NewETLLogger(cfg.Log)
	if err != nil {
		log.Fatalf("❌ Ошибка инициализации логгера: %v", err)
	}
	defer logger.Sync()

	etlRunner, err := runner.NewETLRunner(cfg, logger)
	if err != nil {
		logger.Error("❌ Не удалось создать ETL Runner: %v", err)
		logger.Sync()
		os.Exit(1)
	}
	defer etlRunner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Менеджер WebSocket получает события сборок
	wsManager := websocket.NewManager(logger)
	go wsManager.Run(ctx)
	etlRunner.AddSink(wsManager)

	if *schedulePtr {
		go func() {
			if err := etlRunner.StartScheduler(ctx); err != nil {
				logger.Error("Ошибка планировщика: %v", err)
			}
		}()
	}

	router := mux.NewRouter()
	routes.SetupRoutes(router, routes.Dependencies{
		Builds:       etlRunner,
		Metrics:      etlRunner.Metrics().Handler(),
		Events:       wsManager.HandleConnections,
		Logger:       logger,
		BuildContext: ctx,
	})

	server := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("🚀 Административный сервер запущен на %s", cfg.AdminAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("❌ Ошибка запуска сервера: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Получен сигнал завершения, останавливаем сервер...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка при остановке сервера: %v", err)
	}

	// Дожидаемся завершения фоновой сборки
	for etlRunner.Running() {
		select {
		case <-shutdownCtx.Done():
			logger.Warn("Сборка не завершилась до истечения таймаута остановки")
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
	logger.Info("Сервер остановлен")
}
