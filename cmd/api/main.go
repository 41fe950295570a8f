package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/spendy/internal/auth"
	"github.com/MrJamesThe3rd/spendy/internal/config"
	"github.com/MrJamesThe3rd/spendy/internal/database"
	spendyHttp "github.com/MrJamesThe3rd/spendy/internal/http"
	authHandler "github.com/MrJamesThe3rd/spendy/internal/http/auth"
	categoryHandler "github.com/MrJamesThe3rd/spendy/internal/http/category"
	importHandler "github.com/MrJamesThe3rd/spendy/internal/http/importcsv"
	matchingHandler "github.com/MrJamesThe3rd/spendy/internal/http/matching"
	profileHandler "github.com/MrJamesThe3rd/spendy/internal/http/profile"
	txHandler "github.com/MrJamesThe3rd/spendy/internal/http/transaction"
	walletHandler "github.com/MrJamesThe3rd/spendy/internal/http/wallet"
	"github.com/MrJamesThe3rd/spendy/internal/image"
	"github.com/MrJamesThe3rd/spendy/internal/importer"
	"github.com/MrJamesThe3rd/spendy/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/spendy/internal/matching/store"
	"github.com/MrJamesThe3rd/spendy/internal/transaction"
	txStore "github.com/MrJamesThe3rd/spendy/internal/transaction/store"
	"github.com/MrJamesThe3rd/spendy/internal/user"
	userStore "github.com/MrJamesThe3rd/spendy/internal/user/store"
	"github.com/MrJamesThe3rd/spendy/internal/wallet"
	walletStore "github.com/MrJamesThe3rd/spendy/internal/wallet/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var (
		uploader = image.NewClient(cfg.Images.UploadURL, cfg.Images.Token)
		tokens   = auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL)

		userService        = user.NewService(userStore.New(db), uploader, cfg.Images.Folder)
		walletService      = wallet.NewService(walletStore.New(db), uploader, cfg.Images.Folder)
		transactionService = transaction.NewService(txStore.New(db), uploader, cfg.Images.Folder)
		matchingService    = matching.NewService(matchingStore.New(db))
		importService      = importer.NewService()
	)

	var (
		authH     = authHandler.NewHandler(userService, tokens)
		profileH  = profileHandler.NewHandler(userService)
		walletH   = walletHandler.NewHandler(walletService)
		txH       = txHandler.NewHandler(transactionService)
		importH   = importHandler.NewHandler(importService, transactionService, matchingService)
		matchingH = matchingHandler.NewHandler(matchingService)
		categoryH = categoryHandler.NewHandler()
	)

	router := spendyHttp.New(tokens, authH, profileH, walletH, txH, importH, matchingH, categoryH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
