package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dashkit/admin-dashboard/internal/config"
	"github.com/dashkit/admin-dashboard/internal/domain"
)

func TestDialectorFor(t *testing.T) {
	cases := []struct {
		url        string
		wantSQLite bool
		wantName   string
	}{
		{"postgres://u:p@localhost/db", false, "postgres"},
		{"postgresql://u:p@localhost/db", false, "postgres"},
		{"sqlite://dashboard.db", true, "sqlite"},
		{"file:test?mode=memory", true, "sqlite"},
	}
	for _, tc := range cases {
		d, sqliteMode := dialectorFor(tc.url)
		if sqliteMode != tc.wantSQLite || d.Name() != tc.wantName {
			t.Fatalf("dialectorFor(%q)=(%s,%v) want (%s,%v)", tc.url, d.Name(), sqliteMode, tc.wantName, tc.wantSQLite)
		}
	}
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	cfg := &config.Config{DatabaseURL: "sqlite://" + filepath.Join(t.TempDir(), "test.db")}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Ping(context.Background(), db); err != nil {
		t.Fatalf("ping: %v", err)
	}
	for _, model := range domain.Models() {
		if !db.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T", model)
		}
	}
	if !db.Migrator().HasIndex(&domain.Task{}, "idx_tasks_list_position") {
		t.Fatal("expected unique (list, position) index")
	}
}
