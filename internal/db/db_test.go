package db

import (
	"strings"
	"testing"

	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/models"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "mysql without password",
			cfg:  config.DatabaseConfig{Driver: "mysql", Host: "127.0.0.1", Port: 3306, User: "root", Name: "helpdesk"},
			want: "root@tcp(127.0.0.1:3306)/helpdesk?parseTime=true&charset=utf8mb4&clientFoundRows=true",
		},
		{
			name: "mysql with password",
			cfg:  config.DatabaseConfig{Driver: "mysql", Host: "db.internal", Port: 3307, User: "sb", Password: "pw", Name: "leads"},
			want: "sb:pw@tcp(db.internal:3307)/leads?parseTime=true&charset=utf8mb4&clientFoundRows=true",
		},
		{
			name: "postgres",
			cfg:  config.DatabaseConfig{Driver: "postgres", Host: "10.0.0.5", Port: 5432, User: "postgres", Password: "x", Name: "helpdesk"},
			want: "host=10.0.0.5 port=5432 user=postgres password=x dbname=helpdesk sslmode=disable",
		},
		{
			name: "sqlite file",
			cfg:  config.DatabaseConfig{Driver: "sqlite", Name: "switchboard.db"},
			want: "switchboard.db?_foreign_keys=on",
		},
		{
			name: "sqlite with explicit params",
			cfg:  config.DatabaseConfig{Driver: "sqlite", Name: "file::memory:?cache=shared"},
			want: "file::memory:?cache=shared",
		},
		{
			name: "explicit mysql dsn gets clientFoundRows",
			cfg:  config.DatabaseConfig{Driver: "mysql", DSN: "u:p@tcp(h:3306)/db?parseTime=true"},
			want: "u:p@tcp(h:3306)/db?parseTime=true&clientFoundRows=true",
		},
		{
			name: "explicit mysql dsn without params",
			cfg:  config.DatabaseConfig{Driver: "mysql", DSN: "u@tcp(h:3306)/db"},
			want: "u@tcp(h:3306)/db?clientFoundRows=true",
		},
		{
			name: "explicit mysql dsn keeps its own setting",
			cfg:  config.DatabaseConfig{Driver: "mysql", DSN: "u@tcp(h:3306)/db?clientFoundRows=false"},
			want: "u@tcp(h:3306)/db?clientFoundRows=false",
		},
		{
			name: "explicit dsn wins",
			cfg:  config.DatabaseConfig{Driver: "postgres", DSN: "postgres://u@h/db", Name: "ignored"},
			want: "postgres://u@h/db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DSN(tt.cfg)
			if err != nil {
				t.Fatalf("DSN() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDSN_UnsupportedDriver(t *testing.T) {
	_, err := DSN(config.DatabaseConfig{Driver: "oracle"})
	if err == nil || !strings.Contains(err.Error(), "unsupported driver") {
		t.Fatalf("err = %v, want unsupported driver", err)
	}
}

func TestConnectAdmin_SQLiteRejected(t *testing.T) {
	_, err := ConnectAdmin(config.DatabaseConfig{Driver: "sqlite", Name: ":memory:"})
	if err == nil {
		t.Fatal("expected error for sqlite admin connection")
	}
}

func TestCreateDatabase_UnsupportedDriver(t *testing.T) {
	if err := CreateDatabase(nil, "sqlite", "x"); err == nil {
		t.Fatal("expected error for sqlite")
	}
}

func TestAllModels_Count(t *testing.T) {
	if got := len(AllModels()); got != 4 {
		t.Errorf("AllModels() returned %d models, want 4", got)
	}
}

func TestAutoMigrate_SQLite(t *testing.T) {
	gormDB, err := Connect(config.DatabaseConfig{Driver: "sqlite", Name: ":memory:"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	sqlDB, _ := gormDB.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(gormDB); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, m := range AllModels() {
		if !gormDB.Migrator().HasTable(m) {
			t.Errorf("table for %T missing after migrate", m)
		}
	}
	if !gormDB.Migrator().HasColumn(&models.Session{}, "qa_status_updated_by") {
		t.Error("sessions.qa_status_updated_by missing")
	}

	s := models.Session{SessionID: "s-1", Source: models.SourceWebChat}
	if err := gormDB.Create(&s).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}
	var got models.Session
	if err := gormDB.First(&got, "session_id = ?", "s-1").Error; err != nil {
		t.Fatalf("load session: %v", err)
	}
	if got.QAStatus != models.QAUnchecked {
		t.Errorf("default QAStatus = %q, want unchecked", got.QAStatus)
	}
	if got.CompletionStatus != models.CompletionIncomplete {
		t.Errorf("default CompletionStatus = %q, want incomplete", got.CompletionStatus)
	}
	if got.ArchiveStatus != models.ArchiveActive {
		t.Errorf("default ArchiveStatus = %q, want active", got.ArchiveStatus)
	}

	if err := Reset(gormDB); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	var count int64
	gormDB.Model(&models.Session{}).Count(&count)
	if count != 0 {
		t.Errorf("sessions after reset = %d, want 0", count)
	}
}
