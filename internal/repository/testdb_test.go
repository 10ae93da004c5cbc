package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/adlooper/signage-server/internal/database"
)

// openTestDB returns a fresh in-memory database with the full schema
// applied. Each test gets its own database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open("sqlite", "", "", "", "", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := database.InitSchema(db, "sqlite"); err != nil {
		t.Fatalf("schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedUser creates an account and returns its id. The low bcrypt cost
// keeps the suite fast.
func seedUser(t *testing.T, db *sql.DB, username string) uint64 {
	t.Helper()
	id, err := NewUserRepo(db).Create(context.Background(), username, username+"@example.com", "password123", 4)
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return id
}

func seedDevice(t *testing.T, db *sql.DB, ownerID uint64, name string) *DisplayDevice {
	t.Helper()
	d := &DisplayDevice{OwnerID: ownerID, Name: name}
	if err := NewDeviceRepo(db).Create(context.Background(), d); err != nil {
		t.Fatalf("seed device %s: %v", name, err)
	}
	return d
}

func seedMedia(t *testing.T, db *sql.DB, ownerID uint64, name string) *Media {
	t.Helper()
	m := &Media{OwnerID: ownerID, Name: name}
	if err := NewMediaRepo(db).Create(context.Background(), m); err != nil {
		t.Fatalf("seed media %s: %v", name, err)
	}
	return m
}

func seedGroup(t *testing.T, db *sql.DB, ownerID uint64, name string) *MediaGroup {
	t.Helper()
	g := &MediaGroup{OwnerID: ownerID, Name: name}
	if err := NewMediaGroupRepo(db).Create(context.Background(), g); err != nil {
		t.Fatalf("seed group %s: %v", name, err)
	}
	return g
}
