package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const Prefix = "INSCRIPTIONS"

type AppConfig struct {
	Addr string `split_words:"true" default:":8080"`

	DatabaseDriver string `split_words:"true" default:"sqlite"`
	DatabaseDsn    string `split_words:"true" default:"inscriptions.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"`

	// redis | sql
	DraftBackend  string        `split_words:"true" default:"sql"`
	DraftTtl      time.Duration `split_words:"true" default:"168h"`
	RedisAddr     string        `split_words:"true" default:"localhost:6379"`
	RedisPassword string        `split_words:"true"`
	RedisDb       int           `split_words:"true" default:"0"`

	// local | gcs
	StorageBackend     string `split_words:"true" default:"local"`
	LocalStoragePath   string `split_words:"true" default:"uploads"`
	PublicBaseUrl      string `split_words:"true" default:"http://localhost:8080"`
	GcsBucket          string `split_words:"true" default:"inscriptions-documents"`
	GcsCredentialsFile string `split_words:"true"`

	JwtSecret  string        `split_words:"true" required:"true"`
	LoginUrl   string        `split_words:"true"`
	SignupUrl  string        `split_words:"true"`
	SessionTtl time.Duration `split_words:"true" default:"24h"`

	AutosaveInterval time.Duration `split_words:"true" default:"30s"`
	ReferencePrefix  string        `split_words:"true" default:"INS"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envconfig.Process(Prefix, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse env vars")
	}
	switch cfg.DraftBackend {
	case "redis", "sql":
	default:
		return nil, errors.Errorf("unknown draft backend %q", cfg.DraftBackend)
	}
	switch cfg.StorageBackend {
	case "local", "gcs":
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	return cfg, nil
}
