package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Spok95/tienda-pos/internal/apperr"
)

type Claims struct {
	Kind      Kind  `json:"kind"`
	AccountID int64 `json:"account_id,omitempty"`
	StaffID   int64 `json:"staff_id,omitempty"`
	StoreID   int64 `json:"store_id,omitempty"`
	jwt.RegisteredClaims
}

// Parse validates an HMAC-signed token and returns the identity it carries.
func Parse(secret []byte, raw string) (Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperr.Unauthenticated("token expired").Wrap(err)
		}
		return Identity{}, apperr.Unauthenticated("invalid token").Wrap(err)
	}

	id := Identity{Kind: claims.Kind, AccountID: claims.AccountID, StaffID: claims.StaffID, StoreID: claims.StoreID}
	switch id.Kind {
	case KindStaff:
		if id.StaffID <= 0 || id.StoreID <= 0 {
			return Identity{}, apperr.Unauthenticated("staff token without staff or store")
		}
	case KindAccount:
		if id.AccountID <= 0 {
			return Identity{}, apperr.Unauthenticated("account token without account")
		}
	default:
		return Identity{}, apperr.Unauthenticated("unknown identity kind")
	}
	return id, nil
}

// Sign issues an HS256 token for id. A zero ttl means no expiry.
func Sign(secret []byte, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Kind:      id.Kind,
		AccountID: id.AccountID,
		StaffID:   id.StaffID,
		StoreID:   id.StoreID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
