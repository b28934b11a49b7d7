package rbac

import (
	"context"
	"net/http"
	"testing"

	"barista/internal/domain"
)

func TestRequire_PermissionPresent(t *testing.T) {
	authz := NewAuthorizer()
	claims := domain.Claims{Raw: map[string]any{
		"permissions": []any{"get:drinks-detail", "post:drinks"},
	}}
	if err := authz.Require(context.Background(), claims, "post:drinks"); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
}

func TestRequire_PermissionAbsent(t *testing.T) {
	authz := NewAuthorizer()
	claims := domain.Claims{Raw: map[string]any{
		"permissions": []any{"get:drinks-detail"},
	}}
	err := authz.Require(context.Background(), claims, "delete:drinks")
	authErr, ok := domain.IsAuthError(err)
	if !ok {
		t.Fatalf("expected auth error, got %v", err)
	}
	if authErr.Code != domain.AuthCodeUnauthorized {
		t.Fatalf("expected %s, got %s", domain.AuthCodeUnauthorized, authErr.Code)
	}
	if authErr.Status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", authErr.Status)
	}
}

func TestRequire_NoPermissionsCollection(t *testing.T) {
	authz := NewAuthorizer()
	claims := domain.Claims{Raw: map[string]any{"sub": "user-1"}}
	err := authz.Require(context.Background(), claims, "post:drinks")
	authErr, ok := domain.IsAuthError(err)
	if !ok {
		t.Fatalf("expected auth error, got %v", err)
	}
	if authErr.Code != domain.AuthCodeInvalidClaims {
		t.Fatalf("expected %s, got %s", domain.AuthCodeInvalidClaims, authErr.Code)
	}
	if authErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", authErr.Status)
	}
}

func TestRequire_EmptyPermissionsIsDeny(t *testing.T) {
	authz := NewAuthorizer()
	claims := domain.Claims{Raw: map[string]any{"permissions": []any{}}}
	err := authz.Require(context.Background(), claims, "post:drinks")
	authErr, ok := domain.IsAuthError(err)
	if !ok {
		t.Fatalf("expected auth error, got %v", err)
	}
	if authErr.Code != domain.AuthCodeUnauthorized {
		t.Fatalf("expected deny for empty collection, got %s", authErr.Code)
	}
}

func TestRequire_NoPermissionRequired(t *testing.T) {
	authz := NewAuthorizer()
	if err := authz.Require(context.Background(), domain.Claims{}, ""); err != nil {
		t.Fatalf("expected allow for unprotected check, got %v", err)
	}
}
