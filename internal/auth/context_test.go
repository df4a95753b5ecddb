package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestEnforceOrganizationScopeMatch(t *testing.T) {
	orgID := uuid.New()
	ctx := ContextWithOrganizationID(context.Background(), orgID)

	if err := EnforceOrganizationScope(ctx, orgID); err != nil {
		t.Fatalf("matching scope rejected: %v", err)
	}
}

func TestEnforceOrganizationScopeMismatch(t *testing.T) {
	ctx := ContextWithOrganizationID(context.Background(), uuid.New())

	err := EnforceOrganizationScope(ctx, uuid.New())
	if !errors.Is(err, ErrScopeMismatch) {
		t.Fatalf("expected ErrScopeMismatch, got %v", err)
	}
}

func TestEnforceOrganizationScopeUnscoped(t *testing.T) {
	if err := EnforceOrganizationScope(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unscoped context should allow any organization: %v", err)
	}
}

func TestEnforceOrganizationScopeRequiresID(t *testing.T) {
	if err := EnforceOrganizationScope(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected error for missing organization id")
	}
}
