package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/repository"
)

func setupUsers(t *testing.T) (*UserService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := NewUserService(repository.NewMemoryUsers(store), auth.NewHasher(bcrypt.MinCost), auth.NewTokens("test-secret", time.Hour), zerolog.Nop())
	return svc, store
}

func TestUser_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupUsers(t)

	tok, err := svc.Register(ctx, "Ann", " Ann@Example.com ", "secret1")
	require.NoError(t, err)
	claims, err := svc.Authenticate(ctx, tok)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin)

	_, err = svc.Login(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "ann@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(ctx, "Ann 2", "ann@example.com", "secret2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUser_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupUsers(t)

	_, err := svc.Register(ctx, "Ann", "not-an-email", "secret1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Register(ctx, "Ann", "ann@example.com", "123")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Register(ctx, " ", "ann@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUser_AdminLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupUsers(t)

	require.NoError(t, svc.EnsureAdmin(ctx, "Admin", "admin@shop.example", "admin-pass"))
	require.NoError(t, svc.EnsureAdmin(ctx, "Admin", "admin@shop.example", "admin-pass"))
	users, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)

	tok, err := svc.AdminLogin(ctx, "admin@shop.example", "admin-pass")
	require.NoError(t, err)
	claims, err := svc.Authenticate(ctx, tok)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)

	_, err = svc.Register(ctx, "Ann", "ann@example.com", "secret1")
	require.NoError(t, err)
	_, err = svc.AdminLogin(ctx, "ann@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUser_BanRevokesAccess(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupUsers(t)

	tok, err := svc.Register(ctx, "Ann", "ann@example.com", "secret1")
	require.NoError(t, err)
	claims, err := svc.Authenticate(ctx, tok)
	require.NoError(t, err)

	require.NoError(t, svc.Ban(ctx, claims.UserID, true))
	_, err = svc.Authenticate(ctx, tok)
	assert.ErrorIs(t, err, ErrBanned)
	_, err = svc.Login(ctx, "ann@example.com", "secret1")
	assert.ErrorIs(t, err, ErrBanned)

	require.NoError(t, svc.Ban(ctx, claims.UserID, false))
	_, err = svc.Login(ctx, "ann@example.com", "secret1")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.Ban(ctx, "x", true), ErrInvalidID)
}

func TestUser_DeleteInvalidatesToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupUsers(t)

	tok, _ := svc.Register(ctx, "Ann", "ann@example.com", "secret1")
	claims, err := svc.Authenticate(ctx, tok)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, claims.UserID))
	_, err = svc.Authenticate(ctx, tok)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	assert.ErrorIs(t, svc.Delete(ctx, claims.UserID), repository.ErrNotFound)
}

func TestReview_AddAndList(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	users := repository.NewMemoryUsers(store)
	svc := NewReviewService(repository.NewMemoryReviews(store), store, users, zerolog.Nop())

	u := &domain.User{Name: "Ann", Email: "ann@example.com"}
	require.NoError(t, users.Create(ctx, u))
	p := &domain.Product{Name: "Tee", Category: "Men", Price: 10}
	require.NoError(t, store.Create(ctx, p))

	r, err := svc.Add(ctx, u.ID, p.ID, 5, " great fit ")
	require.NoError(t, err)
	assert.Equal(t, "Ann", r.UserName)
	assert.Equal(t, "great fit", r.Comment)

	for _, rating := range []int{0, 6} {
		_, err = svc.Add(ctx, u.ID, p.ID, rating, "")
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	_, err = svc.Add(ctx, u.ID, repository.NewID(), 4, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	list, err := svc.ForProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, r.ID))
	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCart_AddUpdateGet(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	users := repository.NewMemoryUsers(store)
	svc := NewCartService(users, store, repository.NewMemoryTx(store))

	u := &domain.User{Name: "Ann", Email: "ann@example.com"}
	require.NoError(t, users.Create(ctx, u))
	p := &domain.Product{Name: "Tee", Category: "Men", Price: 10}
	require.NoError(t, store.Create(ctx, p))

	_, err := svc.Add(ctx, u.ID, p.ID, "M")
	require.NoError(t, err)
	cart, err := svc.Add(ctx, u.ID, p.ID, "M")
	require.NoError(t, err)
	assert.Equal(t, int64(2), cart[p.ID]["M"])

	cart, err = svc.Update(ctx, u.ID, p.ID, "L", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cart[p.ID]["L"])

	_, err = svc.Update(ctx, u.ID, p.ID, "M", 0)
	require.NoError(t, err)
	_, err = svc.Update(ctx, u.ID, p.ID, "L", 0)
	require.NoError(t, err)

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = svc.Update(ctx, u.ID, p.ID, "L", -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Add(ctx, u.ID, repository.NewID(), "M")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
