package auth

import (
	"context"
	"testing"

	"github.com/gnetorg/gnet/internal/model"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:    1,
		Role:      model.RoleAdmin,
		SessionID: 3,
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want %q", got.Role, model.RoleAdmin)
	}
	if got.SessionID != 3 {
		t.Errorf("SessionID = %d, want 3", got.SessionID)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected no AuthContext in empty context")
	}
}

func TestIsAdmin(t *testing.T) {
	if IsAdmin(context.Background()) {
		t.Error("empty context should not be admin")
	}
	ctx := WithAuth(context.Background(), AuthContext{UserID: 1, Role: model.RoleMember})
	if IsAdmin(ctx) {
		t.Error("member should not be admin")
	}
	ctx = WithAuth(context.Background(), AuthContext{UserID: 1, Role: model.RoleAdmin})
	if !IsAdmin(ctx) {
		t.Error("admin role should be admin")
	}
}

func TestIsExecutive(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 1, Role: model.RoleExecutive})
	if !IsExecutive(ctx) {
		t.Error("executive role should be executive")
	}
	ctx = WithAuth(context.Background(), AuthContext{UserID: 1, Role: model.RoleAdmin})
	if !IsExecutive(ctx) {
		t.Error("admin should count as executive")
	}
	ctx = WithAuth(context.Background(), AuthContext{UserID: 1, Role: model.RoleMember})
	if IsExecutive(ctx) {
		t.Error("member should not be executive")
	}
}
