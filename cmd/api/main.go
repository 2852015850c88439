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

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/colmado/internal/app"
	"github.com/MrJamesThe3rd/colmado/internal/config"
	colmadoHttp "github.com/MrJamesThe3rd/colmado/internal/http"
	inventoryHandler "github.com/MrJamesThe3rd/colmado/internal/http/inventory"
	ledgerHandler "github.com/MrJamesThe3rd/colmado/internal/http/ledger"
	saleHandler "github.com/MrJamesThe3rd/colmado/internal/http/sale"
	settlementHandler "github.com/MrJamesThe3rd/colmado/internal/http/settlement"
	taxHandler "github.com/MrJamesThe3rd/colmado/internal/http/tax"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	a.RepostPending(ctx)

	router := colmadoHttp.New(
		colmadoHttp.Options{
			CORSOrigins: cfg.Server.CORSOrigins,
			JWTSecret:   cfg.Auth.JWTSecret,
			Timeout:     cfg.Server.Timeout,
		},
		saleHandler.NewHandler(a.Sales),
		settlementHandler.NewHandler(a.Settlements),
		inventoryHandler.NewHandler(a.Inventory),
		ledgerHandler.NewHandler(a.Ledger),
		taxHandler.NewHandler(a.Tax),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down server", "error", err)
		}
	}()

	slog.Info("starting server", "port", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
