package main

import (
	"context"
	"errors"
	"flag"
	"folio/internal/config"
	"folio/internal/db"
	"folio/internal/handlers"
	"folio/internal/middleware"
	"folio/internal/router"
	"folio/internal/services"
	"folio/internal/utils"
	"folio/internal/validation"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	superName := flag.String("create-superuser", "", "create or promote this username to superuser at start")
	superPass := flag.String("superuser-password", "", "password for -create-superuser")
	flag.Parse()

	// Load .env file
	envErr := godotenv.Load()

	cfg := config.Load()
	log := utils.NewLogger(cfg.AppName, cfg.Env)
	if envErr != nil {
		log.Debug("no .env file found, using environment variables")
	}
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	gdb, err := db.Open(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}

	if *superName != "" {
		cfg.SuperuserName, cfg.SuperuserPassword = *superName, *superPass
	}
	if cfg.SuperuserName != "" {
		accounts := services.NewAccountService(gdb)
		user, created, err := accounts.EnsureSuperuser(ctx, cfg.SuperuserName, cfg.SuperuserPassword)
		if err != nil {
			log.WithError(err).Fatal("could not create superuser")
		}
		log.WithFields(logrus.Fields{"username": user.Username, "created": created}).Info("superuser ready")
	}

	storage, closeStorage, err := newStorage(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("object storage unavailable")
	}
	defer closeStorage()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			// 限流在 redis 出错时放行，这里只记录
			log.WithError(err).Warn("redis ping failed, rate limiting degraded")
		}
		defer rdb.Close()
	}

	// Initialize Gin
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.RequestID())
	if cfg.HTTPLogEnabled {
		r.Use(middleware.Logger(log))
	}
	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Requested-With", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Setup Sessions
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   14 * 24 * 3600,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(cfg.AppName+"_session", store))

	// Load Templates using Multitemplate to avoid collision and allow handler names
	render, err := handlers.LoadTemplates(cfg.TemplatesDir, storage)
	if err != nil {
		log.WithError(err).Fatal("could not load templates")
	}
	r.HTMLRender = render

	// Static Assets
	r.Static("/static", cfg.StaticDir)
	if cfg.GCSBucket == "" && strings.HasPrefix(cfg.MediaURL, "/") {
		r.Static(cfg.MediaURL, cfg.MediaDir)
	}

	r.Use(middleware.LoadUser(gdb))

	router.RegisterRoutes(r, router.Deps{
		DB:        gdb,
		Log:       log,
		Storage:   storage,
		Cache:     utils.NewCache(128),
		CacheTTL:  cfg.FacetCacheTTL,
		Redis:     rdb,
		RateLimit: cfg.VoteRateLimit,
		RateWin:   cfg.RateWindow,
		SiteURL:   cfg.SiteURL,
		SiteName:  cfg.SiteName,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("folio server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newStorage 配置了 GCS_BUCKET 时使用 GCS，否则写本地磁盘
func newStorage(ctx context.Context, cfg *config.Config) (services.Storage, func(), error) {
	if cfg.GCSBucket != "" {
		gcs, err := services.NewGCSStorage(ctx, cfg.GCSBucket, cfg.GCSCredentials)
		if err != nil {
			return nil, func() {}, err
		}
		return gcs, func() { _ = gcs.Close() }, nil
	}
	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		return nil, func() {}, err
	}
	return services.NewLocalStorage(cfg.MediaDir, cfg.MediaURL), func() {}, nil
}
