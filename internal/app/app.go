package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/cache"
	"github.com/IanTiba/unbox-surprise-gifts/internal/checkout"
	"github.com/IanTiba/unbox-surprise-gifts/internal/config"
	"github.com/IanTiba/unbox-surprise-gifts/internal/db"
	internalhttp "github.com/IanTiba/unbox-surprise-gifts/internal/http"
	"github.com/IanTiba/unbox-surprise-gifts/internal/http/api/front"
	"github.com/IanTiba/unbox-surprise-gifts/internal/jobs"
	"github.com/IanTiba/unbox-surprise-gifts/internal/logging"
	"github.com/IanTiba/unbox-surprise-gifts/internal/media"
	"github.com/IanTiba/unbox-surprise-gifts/internal/payment"
	internalsettings "github.com/IanTiba/unbox-surprise-gifts/internal/settings"
	"github.com/IanTiba/unbox-surprise-gifts/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate opens the database, runs migrations and seeds default settings.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	return internalsettings.SeedDefaults(ctx, conn)
}

// RunServer boots the gift box API and blocks until ctx is canceled.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	fileCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(fileCfg.Checkout.TokenSecret) == "" {
		return errors.New("checkout token secret is required (checkout.token-secret or CHECKOUT_TOKEN_SECRET)")
	}
	logCloser, err := logging.Setup(fileCfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	conn, err := db.Open(fileCfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errSeed := internalsettings.SeedDefaults(ctx, conn); errSeed != nil {
		return errSeed
	}
	if errRefresh := internalsettings.RefreshSnapshot(ctx, conn); errRefresh != nil {
		log.WithError(errRefresh).Warn("app: load settings snapshot")
	}

	locker, records, closeRedis, err := openRedis(ctx, fileCfg.Redis)
	if err != nil {
		return err
	}
	defer closeRedis()

	payments, err := payment.NewStripeProvider(fileCfg.Stripe.SecretKey)
	if err != nil {
		return err
	}

	uploader, closeUploader, err := openUploader(ctx, fileCfg.Media)
	if err != nil {
		return err
	}
	defer func() { _ = closeUploader.Close() }()

	now := nowUTC
	boxes := store.NewGiftBoxStore(conn, now)
	orders := store.NewOrderStore(conn)
	mediaSvc := media.NewService(uploader, store.NewMediaStore(conn), media.Limits{
		MaxImageBytes: fileCfg.Media.MaxImageBytes,
		MaxAudioBytes: fileCfg.Media.MaxAudioBytes,
	})
	checkoutSvc := checkout.NewService(boxes, orders, mediaSvc, payments, locker, records, checkout.Options{
		TokenSecret:   fileCfg.Checkout.TokenSecret,
		TokenTTL:      fileCfg.Checkout.TokenTTL,
		LockTTL:       fileCfg.Checkout.LockTTL,
		PublicBaseURL: fileCfg.PublicBaseURL,
		Limits:        internalsettings.Limits,
		Now:           now,
	})

	jobs.NewScheduler(jobs.Deps{DB: conn, Orders: checkoutSvc}).Start(ctx)

	engine := internalhttp.NewEngine(engineOptions(fileCfg, uploader))
	registerRoutes(engine, conn, front.Deps{
		Checkout:       checkoutSvc,
		Media:          mediaSvc,
		Boxes:          boxes,
		Records:        records,
		PublishableKey: fileCfg.Stripe.PublishableKey,
		Now:            now,
	})

	srv := &http.Server{
		Addr:              fileCfg.Server.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		errServe := srv.ListenAndServe()
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			serverErrCh <- errServe
			return
		}
		serverErrCh <- nil
	}()
	log.Infof("starting %s on %s (config=%s)", internalsettings.SiteName(), srv.Addr, configPath)

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case errServe := <-serverErrCh:
		return errServe
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), fileCfg.Server.ShutdownTimeout)
	defer cancel()
	if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown server: %w", errShutdown)
	}
	return nil
}

func registerRoutes(engine *gin.Engine, conn *gorm.DB, deps front.Deps) {
	deps.DB = conn
	front.RegisterFrontRoutes(engine, deps)
}

func engineOptions(cfg config.FileConfig, uploader media.Uploader) internalhttp.EngineOptions {
	opts := internalhttp.EngineOptions{CORS: cfg.CORS}
	if local, ok := uploader.(*media.LocalUploader); ok {
		opts.MediaDir = local.Dir()
		opts.MediaPrefix = cfg.Media.LocalURLPrefix
	}
	return opts
}

// openRedis connects to Redis when configured, falling back to in-process locking without a cache.
func openRedis(ctx context.Context, cfg config.RedisConfig) (cache.Locker, *cache.RecordCache, func(), error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		log.Info("app: redis disabled, using in-process locks")
		return cache.NewLocalLocker(), nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, errPing)
	}
	return cache.NewRedisLocker(client), cache.NewRecordCache(client, cfg.CacheTTL), func() { _ = client.Close() }, nil
}

// openUploader builds the configured media backend.
func openUploader(ctx context.Context, cfg config.MediaConfig) (media.Uploader, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "local":
		uploader, err := media.NewLocalUploader(cfg.LocalDir, cfg.LocalURLPrefix)
		if err != nil {
			return nil, nil, err
		}
		return uploader, io.NopCloser(nil), nil
	case "gcs":
		uploader, err := media.NewGCSUploader(ctx, cfg.GCSBucket, cfg.GCSCredentials, cfg.GCSPublicURL)
		if err != nil {
			return nil, nil, err
		}
		return uploader, uploader, nil
	default:
		return nil, nil, fmt.Errorf("media: unsupported backend %q", cfg.Backend)
	}
}

// nowUTC returns the current UTC time.
func nowUTC() time.Time { return time.Now().UTC() }
