package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrScopeMismatch reports an explicit organization that conflicts with the
// authenticated scope on the request.
var ErrScopeMismatch = errors.New("organization does not match authenticated scope")

type contextKey string

const (
	organizationIDKey contextKey = "organizationID"
	uploaderKey       contextKey = "uploader"
)

// ContextWithOrganizationID returns a new context that carries the authenticated organization scope.
func ContextWithOrganizationID(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, organizationIDKey, id)
}

// OrganizationIDFromContext retrieves the authenticated organization scope from the context, if any.
func OrganizationIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	value := ctx.Value(organizationIDKey)
	if value == nil {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	if !ok {
		return uuid.Nil, false
	}
	if id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// ContextWithUploader records the acting user identity for ingestion audit fields.
func ContextWithUploader(ctx context.Context, uploader string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, uploaderKey, uploader)
}

// UploaderFromContext retrieves the acting user identity, if any.
func UploaderFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	uploader, ok := ctx.Value(uploaderKey).(string)
	if !ok || uploader == "" {
		return "", false
	}
	return uploader, true
}

// EnforceOrganizationScope ensures the provided organization matches the authenticated scope when present.
func EnforceOrganizationScope(ctx context.Context, organizationID uuid.UUID) error {
	if organizationID == uuid.Nil {
		return fmt.Errorf("organizationId is required")
	}
	scopedID, ok := OrganizationIDFromContext(ctx)
	if !ok {
		return nil
	}
	if scopedID != organizationID {
		return fmt.Errorf("%w: %s", ErrScopeMismatch, organizationID)
	}
	return nil
}
