package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/tienda-pos/internal/apperr"
)

var secret = []byte("test-secret")

func TestSignParseRoundTrip(t *testing.T) {
	tok, err := Sign(secret, Identity{Kind: KindStaff, StaffID: 7, StoreID: 3}, time.Hour)
	require.NoError(t, err)

	id, err := Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{Kind: KindStaff, StaffID: 7, StoreID: 3}, id)
	assert.True(t, id.IsStaff())
}

func TestParseRejects(t *testing.T) {
	good, err := Sign(secret, Identity{Kind: KindStaff, StaffID: 1, StoreID: 1}, time.Hour)
	require.NoError(t, err)
	expired, err := Sign(secret, Identity{Kind: KindStaff, StaffID: 1, StoreID: 1}, -time.Minute)
	require.NoError(t, err)
	noStore, err := Sign(secret, Identity{Kind: KindStaff, StaffID: 1}, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Kind: KindStaff, StaffID: 1, StoreID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]struct {
		secret []byte
		token  string
	}{
		"wrong secret":   {[]byte("other"), good},
		"expired":        {secret, expired},
		"garbage":        {secret, "not-a-token"},
		"staff no store": {secret, noStore},
		"alg none":       {secret, none},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(tc.secret, tc.token)
			require.Error(t, err)
			assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
		})
	}
}

func TestAccountIdentityIsNotStaff(t *testing.T) {
	tok, err := Sign(secret, Identity{Kind: KindAccount, AccountID: 9}, 0)
	require.NoError(t, err)
	id, err := Parse(secret, tok)
	require.NoError(t, err)

	ctx := WithIdentity(context.Background(), id)
	_, err = RequireStaff(ctx)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
}

func TestRequireStore(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{Kind: KindStaff, StaffID: 2, StoreID: 5})

	id, err := RequireStore(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id.StaffID)

	_, err = RequireStore(ctx, 6)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = RequireStore(context.Background(), 5)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
}
