package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Spok95/course-feedback/internal/db"
	"github.com/Spok95/course-feedback/internal/testutil/memstore"
)

var _ CredentialStore = (*db.Store)(nil)
var _ CredentialStore = (*memstore.Store)(nil)

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewService(store).WithCost(bcrypt.MinCost)

	require.NoError(t, svc.SetPassword(ctx, " Asha@Uni.edu", "s3cret!"))

	assert.NoError(t, svc.Authenticate(ctx, "asha@uni.edu", "s3cret!"))
	assert.ErrorIs(t, svc.Authenticate(ctx, "asha@uni.edu", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.Authenticate(ctx, "nobody@uni.edu", "s3cret!"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.Authenticate(ctx, "", ""), ErrInvalidCredentials)

	boom := errors.New("connection refused")
	store.Fail("GetCredential", boom)
	err := svc.Authenticate(ctx, "asha@uni.edu", "s3cret!")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestSetPassword_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New()).WithCost(bcrypt.MinCost)

	assert.ErrorIs(t, svc.SetPassword(ctx, "a@b.c", "123"), ErrWeakPassword)
	assert.ErrorIs(t, svc.SetPassword(ctx, "  ", "123456"), ErrMissingEmail)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New()).WithCost(bcrypt.MinCost)

	require.NoError(t, svc.SetPassword(ctx, "a@b.c", "123456"))
	require.NoError(t, svc.Remove(ctx, "A@B.C"))
	assert.ErrorIs(t, svc.Authenticate(ctx, "a@b.c", "123456"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.Remove(ctx, "a@b.c"), db.ErrNotFound)
}
