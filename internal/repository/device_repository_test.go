package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
)

func TestDeviceCreateDefaults(t *testing.T) {
	db := openTestDB(t)

	alice := seedUser(t, db, "alice")
	dev := seedDevice(t, db, alice, "lobby")

	if !dev.IsActive {
		t.Error("new device not active")
	}
	if dev.MediaGroupID.Valid {
		t.Error("new device already has a media group")
	}
	if dev.Description.Valid {
		t.Error("new device has a description")
	}
}

func TestDeviceUpdate(t *testing.T) {
	db := openTestDB(t)
	repo := NewDeviceRepo(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	g := seedGroup(t, db, alice, "loop")
	dev := seedDevice(t, db, alice, "lobby")

	dev.Name = "entrance"
	dev.Description = sql.NullString{String: "north entrance screen", Valid: true}
	dev.IsActive = false
	dev.MediaGroupID = sql.NullInt64{Int64: int64(g.ID), Valid: true}
	if err := repo.UpdateByIDAndOwner(ctx, dev); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetByID(ctx, dev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "entrance" || got.IsActive || !got.MediaGroupID.Valid || uint64(got.MediaGroupID.Int64) != g.ID {
		t.Errorf("got %+v", got)
	}

	// Detach the group again.
	got.MediaGroupID = sql.NullInt64{}
	if err := repo.UpdateByIDAndOwner(ctx, got); err != nil {
		t.Fatal(err)
	}
	got, err = repo.GetByID(ctx, dev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.MediaGroupID.Valid {
		t.Error("group assignment survived detach")
	}
}

func TestDeviceUpdateWrongOwner(t *testing.T) {
	db := openTestDB(t)
	repo := NewDeviceRepo(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	dev := seedDevice(t, db, alice, "lobby")

	stolen := *dev
	stolen.OwnerID = bob
	stolen.Name = "mine now"
	if err := repo.UpdateByIDAndOwner(ctx, &stolen); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("cross-owner update err = %v, want ErrDeviceNotFound", err)
	}
	got, err := repo.GetByID(ctx, dev.ID)
	if err != nil || got.Name != "lobby" {
		t.Errorf("device damaged: %v %+v", err, got)
	}
}

func TestDeviceDeleteRemovesTokenAndLogs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	devices := NewDeviceRepo(db)
	deviceTokens := NewDeviceTokenRepo(db)
	logs := NewLogRepo(db)

	alice := seedUser(t, db, "alice")
	dev := seedDevice(t, db, alice, "lobby")
	if err := deviceTokens.Create(ctx, alice, dev.ID, "dev-token", time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := logs.Insert(ctx, dev.ID, "/v1/display_devices/1/content", "GET", 200); err != nil {
		t.Fatal(err)
	}

	if err := devices.DeleteByIDAndOwner(ctx, dev.ID, alice); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := deviceTokens.GetByDevice(ctx, dev.ID); !errors.Is(err, ErrDeviceTokenNotFound) {
		t.Errorf("device token survived: %v", err)
	}
	entries, err := logs.ListByDevice(ctx, dev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d log rows survived device delete", len(entries))
	}
}
