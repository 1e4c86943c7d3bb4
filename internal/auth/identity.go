// Package auth resolves the caller identity carried by a bearer token.
package auth

import (
	"context"

	"github.com/Spok95/tienda-pos/internal/apperr"
)

type Kind string

const (
	KindAccount Kind = "account"
	KindStaff   Kind = "staff"
)

// Identity is either an account holder or a staff member bound to one store.
type Identity struct {
	Kind      Kind  `json:"kind"`
	AccountID int64 `json:"account_id,omitempty"`
	StaffID   int64 `json:"staff_id,omitempty"`
	StoreID   int64 `json:"store_id,omitempty"`
}

func (id Identity) IsStaff() bool { return id.Kind == KindStaff && id.StaffID > 0 }

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// RequireStaff returns the staff identity on ctx or an UNAUTHENTICATED error.
func RequireStaff(ctx context.Context) (Identity, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return Identity{}, apperr.Unauthenticated("")
	}
	if !id.IsStaff() {
		return Identity{}, apperr.Unauthenticated("a staff identity is required")
	}
	return id, nil
}

// RequireStore is RequireStaff plus a check that the staff member belongs to storeID.
func RequireStore(ctx context.Context, storeID int64) (Identity, error) {
	id, err := RequireStaff(ctx)
	if err != nil {
		return Identity{}, err
	}
	if id.StoreID != storeID {
		return Identity{}, apperr.Forbidden("")
	}
	return id, nil
}
