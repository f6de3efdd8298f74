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

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/account"
	accountStore "github.com/valmirpst/gestao-financeira-ai-sub000/internal/account/store"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/auth"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/budget"
	budgetStore "github.com/valmirpst/gestao-financeira-ai-sub000/internal/budget/store"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/category"
	categoryStore "github.com/valmirpst/gestao-financeira-ai-sub000/internal/category/store"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/config"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/database"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/export"
	apiHttp "github.com/valmirpst/gestao-financeira-ai-sub000/internal/http"
	accountHandler "github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/account"
	budgetHandler "github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/budget"
	categoryHandler "github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/category"
	exportHandler "github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/export"
	importHandler "github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/importcsv"
	matchingHandler "github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/matching"
	txHandler "github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/transaction"
	transferHandler "github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/transfer"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/importer"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/matching"
	matchingStore "github.com/valmirpst/gestao-financeira-ai-sub000/internal/matching/store"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
	txStore "github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction/store"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transfer"
)

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		slog.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if len(os.Args) > 1 && os.Args[1] == "token" {
		return printToken(cfg, os.Args[2:])
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DB.Migrate {
		if err := database.Migrate(cfg.ConnectionString()); err != nil {
			return err
		}

		slog.Info("database migrated")
	}

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		ledger             = txStore.New(db)
		accounts           = accountStore.New(db)
		transactionService = transaction.NewService(ledger)
		categoryService    = category.NewService(categoryStore.New(db))
		matchingService    = matching.NewService(matchingStore.New(db))
		projector          = account.NewProjector(accounts, transactionService, account.WithFailSoft(cfg.Ledger.FailSoftBalance))
		accountService     = account.NewService(accounts, projector)
		budgetService      = budget.NewService(budgetStore.New(db), transactionService)
		transferService    = transfer.NewCoordinator(ledger, categoryService,
			transfer.WithLegacyCompensation(cfg.Ledger.LegacyTransferCompensation))
		importService = importer.NewService(transactionService, matchingService)
		exportService = export.NewService(transactionService)
	)

	handlers := apiHttp.Handlers{
		Accounts:     accountHandler.NewHandler(accountService, projector),
		Categories:   categoryHandler.NewHandler(categoryService),
		Transactions: txHandler.NewHandler(transactionService),
		Transfers:    transferHandler.NewHandler(transferService, time.Now),
		Budgets:      budgetHandler.NewHandler(budgetService),
		Rules:        matchingHandler.NewHandler(matchingService),
		Import:       importHandler.NewHandler(importService, time.Now),
		Export:       exportHandler.NewHandler(exportService, time.Now),
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           apiHttp.New(handlers, issuer.Middleware, cfg.CORS.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "addr", srv.Addr,
			"fail_soft_balance", cfg.Ledger.FailSoftBalance,
			"legacy_transfer_compensation", cfg.Ledger.LegacyTransferCompensation)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	return nil
}

// printToken signs a session token for the given user with the server's secret
// and AUTH_TOKEN_TTL. Users are provisioned by the identity provider; this is
// how an operator gets a token for one of them.
func printToken(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: api token <user-id>")
	}

	userID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("parsing user id: %w", err)
	}

	token, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Issue(userID)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(os.Stdout, token)

	return err
}
