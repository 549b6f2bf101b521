package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/openshelf/library-system/internal/api"
	"github.com/openshelf/library-system/internal/core/domain"
	"github.com/openshelf/library-system/internal/core/ports"
	"github.com/openshelf/library-system/internal/core/service"
	"github.com/openshelf/library-system/internal/infrastructure/config"
	mongodb "github.com/openshelf/library-system/internal/infrastructure/db/mongo"
	redisdb "github.com/openshelf/library-system/internal/infrastructure/db/redis"
	"github.com/openshelf/library-system/internal/infrastructure/storage"
	"github.com/openshelf/library-system/internal/infrastructure/xlsx"
	"github.com/openshelf/library-system/pkg/logger"
)

const tokenTTL = 24 * time.Hour

// @title        Library System API
// @version      1.0
// @description  REST backend for library management: accounts, catalog, borrowing and bulk transfer.
// @BasePath     /api
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	accountRepo := mongodb.NewAccountRepository(db)
	bookRepo := mongodb.NewBookRepository(db)
	borrowRepo := mongodb.NewBorrowRepository(db)

	for name, ensure := range map[string]func(context.Context) error{
		"accounts":  accountRepo.EnsureIndexes,
		"books":     bookRepo.EnsureIndexes,
		"borrowers": borrowRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Fatal().Err(err).Str("collection", name).Msg("index creation failed")
		}
	}

	images, err := storage.NewImageStore(cfg.UploadsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("uploads dir unavailable")
	}

	cache := redisdb.NewCatalogCache(rdb, log)

	authService := service.NewAuthService(accountRepo, cfg.JWTSecret, tokenTTL, log)
	accountService := service.NewAccountService(accountRepo, log)
	catalogService := service.NewCatalogService(bookRepo, cache, log)
	borrowService := service.NewBorrowService(bookRepo, borrowRepo, cache, log)
	transferService := service.NewTransferService(accountRepo, bookRepo, borrowRepo, xlsx.NewCodec(), log)

	if err := seedDefaultAdmin(ctx, accountRepo, accountService, cfg.Admin, log); err != nil {
		log.Fatal().Err(err).Msg("default admin seed failed")
	}

	e := api.NewRouter(api.Dependencies{
		Auth:      authService,
		Accounts:  accountService,
		Catalog:   catalogService,
		Borrows:   borrowService,
		Transfer:  transferService,
		Images:    images,
		Mongo:     db,
		Redis:     rdb,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting http server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}

// seedDefaultAdmin creates the bootstrap administrator once. A second
// boot finds the account and does nothing.
func seedDefaultAdmin(
	ctx context.Context,
	accounts ports.AccountRepository,
	svc ports.AccountService,
	cfg config.AdminConfig,
	log zerolog.Logger,
) error {
	_, err := accounts.FindByEmail(ctx, domain.RoleAdmin, cfg.Email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return err
	}

	if _, err := svc.Create(ctx, domain.RoleAdmin, ports.CreateAccountInput{
		Name:     cfg.Name,
		Email:    cfg.Email,
		Password: cfg.Password,
	}); err != nil {
		// A concurrent replica may have won the unique-index race.
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil
		}
		return err
	}

	log.Info().Str("email", cfg.Email).Msg("default admin created")
	return nil
}
