package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hollowmap/docdb/internal/config"
	"github.com/hollowmap/docdb/internal/docdb"
	"github.com/hollowmap/docdb/internal/httpapi"
	"github.com/hollowmap/docdb/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the server config file")
	env := flag.String("env", "dev", "deployment environment (dev|prod)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(*env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting docdb server",
		zap.String("env", *env),
		zap.String("listen_addr", cfg.HTTP.ListenAddr),
		zap.Bool("in_memory", cfg.Database.IsMemory),
	)

	var engine *docdb.Engine
	if cfg.Database.IsMemory {
		engine, err = docdb.OpenMem()
	} else {
		if err := os.MkdirAll(cfg.Database.Dir, 0o755); err != nil {
			log.Fatal("failed to create database directory", zap.Error(err))
		}
		engine, err = docdb.Open(cfg.StorePath(), docdb.Options{})
	}
	if err != nil {
		log.Fatal("failed to open engine", zap.Error(err))
	}
	defer engine.Close()

	server := httpapi.New(engine, log, cfg.Auth.APIKey)

	srv := httpapi.NewHTTPServer(
		cfg.HTTP.ListenAddr,
		server,
		time.Duration(cfg.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.HTTP.WriteTimeoutSec)*time.Second,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTP.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-quit
	log.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server stopped gracefully")
}
