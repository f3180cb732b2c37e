package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payflow/auth"
	"payflow/config"
	"payflow/crypto"
	"payflow/db"
	"payflow/handlers"
	"payflow/logger"
	"payflow/store"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file (optional)")
	flag.Parse()

	path := *configPath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		path = ""
	}

	cfg, err := config.Load(path)
	log := logger.New(logger.Config{Level: logger.ParseLevel(cfg.LogLevel)})
	logger.SetDefault(log)
	if err != nil {
		log.Error("Error loading config", logger.FieldError, err)
		os.Exit(1)
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.WithComponent(logger.ComponentStorage).Error("Failed to open database", logger.FieldError, err)
		os.Exit(1)
	}
	defer database.Close()
	log.WithComponent(logger.ComponentStorage).Info("Database ready", "dialect", database.Dialect.String())

	keys := crypto.NewKeys(cfg.SessionKey)
	authenticator := auth.New(keys, cfg.SecureCookies, cfg.TokenTTL)
	server := handlers.NewServer(cfg, store.New(database), authenticator, keys, log)

	srv := &http.Server{
		Addr:           cfg.Addr(),
		Handler:        server.Routes(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		log.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", logger.FieldError, err)
		}
		cancel()
	}()

	log.Info("Server starting", "addr", srv.Addr, "app", cfg.AppName,
		"csrf", cfg.CSRFEnabled, "signup_captcha", cfg.SignupCaptcha)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Server error", logger.FieldError, err)
		os.Exit(1)
	}

	<-ctx.Done()
	log.Info("Server stopped gracefully")
}
