package db

import (
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/RayanGhomsi/Prestige/internal/logging"
	"github.com/RayanGhomsi/Prestige/internal/models"
)

type Options struct {
	Driver string // sqlite | postgres | mysql
	DSN    string
	Logger *logging.Logger
}

// Open connects, migrates and returns a ready handle.
func Open(opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(opts.DSN)
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	case "mysql":
		dialector = mysql.Open(opts.DSN)
	default:
		return nil, errors.Errorf("unsupported database driver %q", opts.Driver)
	}

	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if opts.Logger != nil {
		cfg.Logger = logging.NewGormLogger(opts.Logger, gormlogger.Warn)
	}

	conn, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if opts.Driver == "" || opts.Driver == "sqlite" {
		// SQLite works best with a single writer; cap the pool accordingly.
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.ParentProfile{},
		&models.Application{},
		&models.Child{},
		&models.ParentInfo{},
		&models.MedicalInfo{},
		&models.Document{},
		&models.DraftRecord{},
	); err != nil {
		return errors.Wrap(err, "auto-migrate failed")
	}
	return nil
}
