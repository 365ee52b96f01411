package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/01moynul/techxchange-golang/internal/auth"
	"github.com/01moynul/techxchange-golang/internal/catalog"
	"github.com/01moynul/techxchange-golang/internal/config"
	"github.com/01moynul/techxchange-golang/internal/database"
	"github.com/01moynul/techxchange-golang/internal/email"
	"github.com/01moynul/techxchange-golang/internal/escrow"
	"github.com/01moynul/techxchange-golang/internal/handlers"
	"github.com/01moynul/techxchange-golang/internal/identity"
	"github.com/01moynul/techxchange-golang/internal/logging"
	"github.com/01moynul/techxchange-golang/internal/routes"
	"github.com/01moynul/techxchange-golang/internal/storage"
	"github.com/01moynul/techxchange-golang/internal/store"
	"github.com/01moynul/techxchange-golang/internal/subscription"
)

const localUploadsDir = "./uploads"

func main() {
	// 0. --- Load Configuration ---
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. --- Main Database Connection (Read/Write) ---
	db, err := database.OpenDB(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to primary database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	st := store.New(db)

	// 2. --- Object Storage ---
	var objects storage.ObjectStore
	uploadsDir := ""
	if cfg.StorageConfigured() {
		objects = storage.New(storage.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
	} else {
		logger.Warn("S3 is not configured, storing uploads on local disk", "dir", localUploadsDir)
		objects = storage.NewDisk(localUploadsDir, cfg.BaseURL+"/uploads")
		uploadsDir = localUploadsDir
	}

	// 3. --- Email ---
	var mailer email.Mailer
	if cfg.EmailConfigured() {
		ses, err := email.NewSES(ctx, email.Config{
			Region:    cfg.SESRegion,
			Endpoint:  cfg.SESEndpoint,
			AccessKey: cfg.SESAccessKey,
			SecretKey: cfg.SESSecretKey,
			From:      cfg.EmailFrom,
		})
		if err != nil {
			logger.Error("failed to initialize SES", "error", err)
			os.Exit(1)
		}
		mailer = ses
	} else {
		logger.Warn("SES is not configured, emails will only be logged")
		mailer = email.NewLogMailer(logger)
	}

	// 4. --- Services ---
	vault := escrow.New(cfg.EscrowSecret)
	if vault.Disabled() {
		logger.Warn("ESCROW_SECRET is not set, admin password lookup is disabled")
	}
	identitySvc := identity.New(st, identity.SQLTx(st),
		auth.NewTokenManager(cfg.JWTSecret), auth.NewResetTokens(cfg.JWTSecret),
		vault, mailer, logger,
		identity.Config{AdminEmail: cfg.AdminEmail, BaseURL: cfg.BaseURL})
	catalogSvc := catalog.New(st, catalog.SQLTx(st), objects, logger)
	subscriptionSvc := subscription.New(st, subscription.SQLTx(st), mailer, logger, subscription.Config{
		BasePlanID:        cfg.BasePlanID,
		InvoiceOnApproval: cfg.InvoiceOnApproval,
		SellerName:        "TechXchange",
	})

	if cfg.SeedAdminEmail != "" {
		if err := identitySvc.SeedAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			logger.Error("failed to seed admin account", "error", err)
			os.Exit(1)
		}
	}

	// --- Application Setup ---
	app := &handlers.Handlers{
		Identity:      identitySvc,
		Catalog:       catalogSvc,
		Subscriptions: subscriptionSvc,
		Notifications: st,
		Stats:         st,
		Mailer:        mailer,
		Logger:        logger,
		AdminEmail:    cfg.AdminEmail,
	}

	// --- Router Setup ---
	router := routes.SetupRouter(app, identitySvc, routes.Options{
		CORSOrigin: cfg.CORSOrigin,
		UploadsDir: uploadsDir,
		Logger:     logger,
	})

	// --- Start Server ---
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("starting TechXchange API server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
