package database_test

import (
	"errors"
	"testing"

	"github.com/cgillinger/skysplitter/internal/bluesky"
	"github.com/cgillinger/skysplitter/internal/database"
)

func openTestDB(t *testing.T) {
	t.Helper()

	if err := database.Open(":memory:"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		database.Close()
		database.DB = nil
	})

	if err := database.CreateTables(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveAndGetSession(t *testing.T) {
	openTestDB(t)

	session := bluesky.Session{
		DID:        "did:plc:abc",
		Handle:     "user.bsky.social",
		AccessJwt:  "access",
		RefreshJwt: "refresh",
	}
	if err := database.SaveSession("user.bsky.social", session); err != nil {
		t.Fatal(err)
	}

	stored, err := database.GetSession("user.bsky.social")
	if err != nil {
		t.Fatal(err)
	}
	if stored != session {
		t.Fatalf("session - want: %+v, got: %+v", session, stored)
	}
}

func TestSaveSessionOverwrites(t *testing.T) {
	openTestDB(t)

	first := bluesky.Session{DID: "did:plc:abc", Handle: "user.bsky.social", AccessJwt: "a1", RefreshJwt: "r1"}
	if err := database.SaveSession("user.bsky.social", first); err != nil {
		t.Fatal(err)
	}

	second := first
	second.AccessJwt = "a2"
	second.RefreshJwt = "r2"
	if err := database.SaveSession("user.bsky.social", second); err != nil {
		t.Fatal(err)
	}

	stored, err := database.GetSession("user.bsky.social")
	if err != nil {
		t.Fatal(err)
	}
	if stored.AccessJwt != "a2" {
		t.Fatalf("access - want: %q, got: %q", "a2", stored.AccessJwt)
	}
}

func TestGetSessionMissing(t *testing.T) {
	openTestDB(t)

	_, err := database.GetSession("nobody.bsky.social")
	if !errors.Is(err, database.ErrSessionNotFound) {
		t.Fatalf("error - want: ErrSessionNotFound, got: %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	openTestDB(t)

	session := bluesky.Session{DID: "did:plc:abc", Handle: "user.bsky.social", AccessJwt: "a", RefreshJwt: "r"}
	if err := database.SaveSession("user.bsky.social", session); err != nil {
		t.Fatal(err)
	}
	if err := database.DeleteSession("user.bsky.social"); err != nil {
		t.Fatal(err)
	}

	if _, err := database.GetSession("user.bsky.social"); !errors.Is(err, database.ErrSessionNotFound) {
		t.Fatalf("error - want: ErrSessionNotFound after delete, got: %v", err)
	}
}
