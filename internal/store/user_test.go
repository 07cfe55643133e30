package store

import (
	"database/sql"
	"testing"

	"github.com/gnetorg/gnet/internal/database"
	"github.com/gnetorg/gnet/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupUserTestDB(t *testing.T) *UserStore {
	t.Helper()
	return NewUserStore(setupTestDB(t))
}

func TestUserCreate(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("alice@example.com", "Alice Wanjiru", model.RoleMember, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "alice@example.com")
	}
	if u.Role != model.RoleMember {
		t.Errorf("role = %q, want member", u.Role)
	}
	if !u.IsActive {
		t.Error("expected new user to be active")
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
}

func TestUserCreateNormalizesEmail(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("  Alice@Example.COM ", "Alice", model.RoleMember, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercase", u.Email)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Create("alice@example.com", "Alice", model.RoleMember, "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create("ALICE@example.com", "Alice Again", model.RoleMember, "hash"); err == nil {
		t.Fatal("expected error for duplicate email, got nil")
	}
}

func TestUserGetByEmail(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Create("alice@example.com", "Alice", model.RoleMember, "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	u, err := us.GetByEmail("Alice@Example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}

	u, err = us.GetByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent email")
	}
}

func TestUserListByRole(t *testing.T) {
	us := setupUserTestDB(t)

	us.Create("m1@example.com", "Member One", model.RoleMember, "hash")
	us.Create("m2@example.com", "Member Two", model.RoleMember, "hash")
	us.Create("a1@example.com", "Admin One", model.RoleAdmin, "hash")

	members, err := us.ListByRole(model.RoleMember)
	if err != nil {
		t.Fatalf("list by role: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("members = %d, want 2", len(members))
	}

	all, err := us.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all users = %d, want 3", len(all))
	}
}

func TestUserUpdatePasswordActivates(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("alice@example.com", "Alice", model.RoleMember, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := us.SetActive(u.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if err := us.UpdatePassword(u.ID, "newhash"); err != nil {
		t.Fatalf("update password: %v", err)
	}

	u, err = us.GetByID(u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.PasswordHash != "newhash" {
		t.Errorf("password hash = %q, want newhash", u.PasswordHash)
	}
	if !u.IsActive {
		t.Error("expected password update to reactivate account")
	}
}

func TestUserDelete(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("alice@example.com", "Alice", model.RoleMember, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := us.Delete(u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	got, err := us.GetByID(u.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}
