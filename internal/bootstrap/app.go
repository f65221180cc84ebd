package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resume-roast/internal/analyses"
	googleauth "resume-roast/internal/auth"
	"resume-roast/internal/extract"
	"resume-roast/internal/ledger"
	"resume-roast/internal/llm"
	openai "resume-roast/internal/llm/openai"
	"resume-roast/internal/llm/vertex"
	"resume-roast/internal/quota"
	"resume-roast/internal/services/health"
	"resume-roast/internal/shared/auth"
	"resume-roast/internal/shared/config"
	"resume-roast/internal/shared/server"
	"resume-roast/internal/shared/server/middleware"
	"resume-roast/internal/shared/storage/db"
	"resume-roast/internal/shared/storage/object"
	localstore "resume-roast/internal/shared/storage/object/local"
	s3store "resume-roast/internal/shared/storage/object/s3"
	"resume-roast/internal/shared/telemetry"
	"resume-roast/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Gorm            *gorm.DB
	Redis           *redis.Client
	Store           object.ObjectStore
	Ledger          ledger.Ledger
	UsersRepo       users.Repo
	Quota           *quota.Limiter
	Feedback        llm.FeedbackGenerator
	Codec           *auth.HS256
	UsersService    *users.Service
	AnalysesService *analyses.Service
	AnalysisHandler *analyses.Handler
	FileHandler     *analyses.FileHandler
	UsersHandler    *users.Handler
	GoogleAuth      *googleauth.GoogleService

	closers []func() error
}

// Build prepares every dependency and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	production := cfg.Env == "production"

	codec, err := auth.NewHS256(cfg.JWTSecret, production)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET: %w", err)
	}
	if !production && strings.TrimSpace(cfg.JWTSecret) == "" {
		telemetry.Warn("bootstrap.jwt_dev_secret", map[string]any{"env": cfg.Env})
	}

	app := &App{Config: cfg, Codec: codec}

	if err := app.buildRepos(ctx); err != nil {
		app.Close()
		return nil, err
	}

	store, links, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store
	if links != nil {
		app.FileHandler = analyses.NewFileHandler(store, links)
	}

	feedback, err := app.buildFeedback(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Feedback = feedback

	locker, err := app.buildLocker(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Quota = quota.New(app.Ledger, quota.Config{Locker: locker})

	app.UsersService = users.NewService(app.UsersRepo)
	app.AnalysesService = &analyses.Service{
		Ledger:    app.Ledger,
		Quota:     app.Quota,
		Extractor: extract.PDFExtractor{},
		Store:     app.Store,
		Feedback:  app.Feedback,
		Users:     app.UsersService,
		Strict:    cfg.QuotaStrict,
	}
	app.AnalysisHandler = analyses.NewHandler(app.AnalysesService, cfg.AdminEmail)
	app.UsersHandler = users.NewHandler(app.UsersService)
	app.GoogleAuth = googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
		codec,
		app.UsersService,
	)
	if strings.TrimSpace(cfg.AdminEmail) == "" {
		telemetry.Warn("bootstrap.admin_disabled", map[string]any{"reason": "ADMIN_EMAIL empty"})
	}

	var pinger health.Pinger
	if app.DB != nil {
		pinger = app.DB
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Verifier:        codec,
		RateLimiter:     middleware.NewRateLimiter(middleware.RateLimitRule{Rate: cfg.RateRPS, Burst: cfg.RateBurst}, time.Now),
		Health:          health.NewService(pinger),
		AnalysisHandler: app.AnalysisHandler,
		FileHandler:     app.FileHandler,
		UserHandler:     app.UsersHandler,
		GoogleAuth:      app.GoogleAuth,
		QuotaMax:        app.Quota.Max(),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"ledger":       fmt.Sprintf("%T", app.Ledger),
		"object_store": cfg.ObjectStoreType,
		"llm":          cfg.LLMProvider,
		"quota_strict": cfg.QuotaStrict,
	})
	return app, nil
}

// Close releases connections opened by Build, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// buildRepos picks Postgres when DATABASE_URL is set, SQLite when
// SQLITE_PATH is set, and in-memory repositories otherwise.
func (a *App) buildRepos(ctx context.Context) error {
	cfg := a.Config
	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			if !cfg.IsDevLike() {
				return err
			}
			telemetry.Warn("bootstrap.db_unavailable", map[string]any{"error": err.Error()})
			a.useMemory()
			return nil
		}
		a.closers = append(a.closers, sqlDB.Close)
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return err
		}
		a.DB = sqlDB
		a.Ledger = &ledger.PGRepo{DB: sqlDB}
		a.UsersRepo = &users.PGRepo{DB: sqlDB}
		return nil

	case cfg.Env == "production":
		return errors.New("DATABASE_URL is required in production")

	case strings.TrimSpace(cfg.SQLitePath) != "":
		gdb, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		if raw, err := gdb.DB(); err == nil {
			a.closers = append(a.closers, raw.Close)
		}
		ledgerRepo, err := ledger.NewGormRepo(gdb)
		if err != nil {
			return err
		}
		userRepo, err := users.NewGormRepo(gdb)
		if err != nil {
			return err
		}
		a.Gorm = gdb
		a.Ledger = ledgerRepo
		a.UsersRepo = userRepo
		telemetry.Info("bootstrap.sqlite", map[string]any{"path": cfg.SQLitePath})
		return nil

	default:
		telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL and SQLITE_PATH empty"})
		a.useMemory()
		return nil
	}
}

func (a *App) useMemory() {
	a.Ledger = ledger.NewMemoryRepo()
	a.UsersRepo = users.NewMemoryRepo()
}

// buildStore returns the object store and, for the local store, the
// verifier for its signed download links.
func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, auth.Verifier, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		// Links get their own key so a session token never opens a file.
		secret := strings.TrimSpace(cfg.JWTSecret)
		if secret == "" {
			secret = "dev-file-links"
		}
		links, err := auth.NewHS256("file-links:"+secret, cfg.Env == "production")
		if err != nil {
			return nil, nil, fmt.Errorf("file links: %w", err)
		}
		return localstore.New(cfg.LocalStoreDir).WithLinks(links, cfg.PublicBaseURL), links, nil
	}
}

func (a *App) buildFeedback(ctx context.Context) (llm.FeedbackGenerator, error) {
	cfg := a.Config
	switch cfg.LLMProvider {
	case "openai":
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
		if err != nil {
			if cfg.IsDevLike() {
				telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"provider": "openai", "error": err.Error()})
				return llm.PlaceholderGenerator{}, nil
			}
			return nil, err
		}
		return client, nil
	case "vertex":
		client, err := vertex.NewClient(ctx, cfg.GCPProject, cfg.GCPLocation, cfg.LLMModel)
		if err != nil {
			if cfg.IsDevLike() {
				telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"provider": "vertex", "error": err.Error()})
				return llm.PlaceholderGenerator{}, nil
			}
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return client, nil
	default:
		telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"provider": cfg.LLMProvider})
		return llm.PlaceholderGenerator{}, nil
	}
}

// buildLocker returns nil unless strict admission is enabled.
func (a *App) buildLocker(ctx context.Context) (quota.Locker, error) {
	cfg := a.Config
	if !cfg.QuotaStrict {
		return nil, nil
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return quota.NewMemoryLocker(quota.DefaultLockWait), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"error": err.Error()})
			return quota.NewMemoryLocker(quota.DefaultLockWait), nil
		}
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.Redis = client
	return quota.NewRedisLocker(client, quota.DefaultLockWait), nil
}
