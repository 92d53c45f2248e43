package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/RayanGhomsi/Prestige/internal/config"
	"github.com/RayanGhomsi/Prestige/internal/db"
	"github.com/RayanGhomsi/Prestige/internal/drafts"
	"github.com/RayanGhomsi/Prestige/internal/events"
	"github.com/RayanGhomsi/Prestige/internal/handlers"
	"github.com/RayanGhomsi/Prestige/internal/identity"
	"github.com/RayanGhomsi/Prestige/internal/logging"
	"github.com/RayanGhomsi/Prestige/internal/services"
	"github.com/RayanGhomsi/Prestige/internal/storage"
	"github.com/RayanGhomsi/Prestige/internal/web"
	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

func main() {
	logger := logging.NewLogger("inscriptions")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Err(ctx, "server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *logging.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	conn, err := db.Open(db.Options{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseDsn, Logger: logging.NewLogger("db")})
	if err != nil {
		return err
	}

	store, err := draftStore(ctx, cfg, conn)
	if err != nil {
		return err
	}

	var (
		bucket   storage.Bucket
		filesDir string
	)
	switch cfg.StorageBackend {
	case "gcs":
		gcs, err := storage.NewGoogleStorage(ctx, storage.GCSOptions{
			CredentialsFile: cfg.GcsCredentialsFile,
			BucketName:      cfg.GcsBucket,
		})
		if err != nil {
			return err
		}
		defer gcs.Close()
		bucket = gcs
	default:
		local, err := storage.NewLocalStorage(cfg.LocalStoragePath, cfg.PublicBaseUrl+"/fichiers")
		if err != nil {
			return err
		}
		bucket, filesDir = local, cfg.LocalStoragePath
	}

	enrollment := services.NewEnrollment(services.Options{
		DB:              conn,
		Bucket:          bucket,
		Logger:          logging.NewLogger("enrollment"),
		ReferencePrefix: cfg.ReferencePrefix,
	})
	verifier := identity.NewVerifier(cfg.JwtSecret)
	bus := events.NewBus()

	h := handlers.New(handlers.Handlers{
		Tmpl:       web.MustParseTemplates(),
		Enrollment: enrollment,
		Drafts:     store,
		Verifier:   verifier,
		Bus:        bus,
		Log:        logging.NewLogger("handlers"),
		LoginURL:   cfg.LoginUrl,
		SignupURL:  cfg.SignupUrl,
		SessionTTL: cfg.SessionTtl,
		DraftTTL:   cfg.DraftTtl,
	})
	defer bus.Subscribe(enrollment.WarmProfile())()
	defer bus.Subscribe(h.DiscardDraftOnSignOut())()

	wizard.NewAutosaver(store, cfg.AutosaveInterval, logging.NewLogger("autosave")).Start(ctx)

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: web.Router(web.Options{
			Handlers: h,
			Verifier: verifier,
			Logger:   logging.NewLogger("http"),
			FilesDir: filesDir,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "listening", "addr", cfg.Addr, "drafts", cfg.DraftBackend, "storage", cfg.StorageBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func draftStore(ctx context.Context, cfg *config.AppConfig, conn *gorm.DB) (drafts.Store, error) {
	if cfg.DraftBackend != "redis" {
		return drafts.NewSQLStore(conn, cfg.DraftTtl), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDb,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrapf(err, "redis %s", cfg.RedisAddr)
	}
	return drafts.NewRedisStore(client, cfg.DraftTtl), nil
}
