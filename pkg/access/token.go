package access

import (
	"context"
	"time"

	"github.com/openstats/databank/pkg/model"
)

// TokenStore looks up preview tokens by their opaque identifier.
type TokenStore interface {
	GetPreviewToken(ctx context.Context, id string) (*model.PreviewToken, error)
}

// TokenValidator checks whether a supplied preview token grants visibility
// into a specific target version.
type TokenValidator struct {
	store TokenStore
	now   func() time.Time
}

// NewTokenValidator creates a validator backed by the given token store.
func NewTokenValidator(store TokenStore) *TokenValidator {
	return &TokenValidator{store: store, now: time.Now}
}

// Grants reports whether tokenID authorizes access to target. The token must
// exist, be bound to exactly this version, and be unexpired; any failure,
// including a lookup error, yields false. There is no fallback to a token
// bound to a sibling version.
func (v *TokenValidator) Grants(ctx context.Context, target *model.DataSetVersion, tokenID string) bool {
	if tokenID == "" || target == nil {
		return false
	}

	token, err := v.store.GetPreviewToken(ctx, tokenID)
	if err != nil || token == nil {
		return false
	}
	if token.DataSetVersionID != target.ID {
		return false
	}
	return token.Active(v.now())
}
