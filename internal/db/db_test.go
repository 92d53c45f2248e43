package db_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/RayanGhomsi/Prestige/internal/db"
	"github.com/RayanGhomsi/Prestige/internal/models"
)

func dsn(dir string) string {
	return filepath.Join(dir, "test.db") + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

// TestWALMode verifies that the default DSN parameters enable WAL journal mode.
func TestWALMode(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(dsn(t.TempDir())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	var mode string
	gdb.Raw("PRAGMA journal_mode").Scan(&mode)
	if mode != "wal" {
		t.Errorf("expected journal_mode=wal, got %q", mode)
	}
}

// TestOpen_CreatesIndexes verifies the composite indexes declared on the models.
func TestOpen_CreatesIndexes(t *testing.T) {
	conn, err := db.Open(db.Options{Driver: "sqlite", DSN: dsn(t.TempDir())})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}

	checks := map[string]string{
		"applications": "idx_app_parent_status",
		"documents":    "idx_doc_app_kind",
	}
	for table, want := range checks {
		found := indexNames(t, sqlDB, table)
		if !found[want] {
			t.Errorf("index %q missing from %s; found: %v", want, table, found)
		}
	}
}

// TestMigrate_Idempotent runs the migration again on an existing schema, the
// way every restart does, and checks the indexes through the migrator.
func TestMigrate_Idempotent(t *testing.T) {
	conn, err := db.Open(db.Options{Driver: "sqlite", DSN: dsn(t.TempDir())})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	m := conn.Migrator()
	if !m.HasIndex(&models.Application{}, "idx_app_parent_status") {
		t.Error("idx_app_parent_status missing")
	}
	if !m.HasIndex(&models.Document{}, "idx_doc_app_kind") {
		t.Error("idx_doc_app_kind missing")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := db.Open(db.Options{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

// TestCascadeDelete checks that related rows disappear with their application.
func TestCascadeDelete(t *testing.T) {
	conn, err := db.Open(db.Options{Driver: "sqlite", DSN: dsn(t.TempDir())})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	app := models.Application{Reference: "INS-2025-0001", ParentID: "p1", Status: models.StatusPending}
	if err := conn.Create(&app).Error; err != nil {
		t.Fatalf("create app: %v", err)
	}
	if err := conn.Create(&models.Child{ApplicationID: app.ID, Nom: "Diallo"}).Error; err != nil {
		t.Fatalf("create child: %v", err)
	}
	if err := conn.Create(&models.Document{ApplicationID: app.ID, Kind: models.DocBirthCertificate}).Error; err != nil {
		t.Fatalf("create doc: %v", err)
	}

	if err := conn.Delete(&models.Application{}, "id = ?", app.ID).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}

	var children, docs int64
	conn.Model(&models.Child{}).Where("application_id = ?", app.ID).Count(&children)
	conn.Model(&models.Document{}).Where("application_id = ?", app.ID).Count(&docs)
	if children != 0 || docs != 0 {
		t.Errorf("expected cascade delete, got %d children and %d documents", children, docs)
	}
}

func indexNames(t *testing.T, sqlDB *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := sqlDB.Query("PRAGMA index_list(" + table + ")")
	if err != nil {
		t.Fatalf("PRAGMA index_list: %v", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var seq int
		var name string
		var unique bool
		var origin, partial string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out[name] = true
	}
	return out
}
