package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-access/dbtest"
	"github.com/yeremiapane/restaurant-access/models"
	"github.com/yeremiapane/restaurant-access/services"
)

func newWaiterAuthService(t *testing.T) (*services.WaiterAuthService, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	svc := services.NewWaiterAuthService(dbtest.Migrated(t))
	svc.Codec = cheapCodec()
	svc.Now = clock.Now
	return svc, clock
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newWaiterAuthService(t)
	ctx := context.Background()

	cases := []services.Credentials{
		{RestaurantID: 0, Name: "Ana"},
		{RestaurantID: 1, Name: ""},
		{RestaurantID: 1, Name: "   "},
	}
	for _, in := range cases {
		_, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, services.ErrInvalidArgument)
	}

	var count int64
	require.NoError(t, svc.DB.Model(&models.Waiter{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, _ := newWaiterAuthService(t)

	summary, err := svc.Register(context.Background(), services.Credentials{RestaurantID: 1, Name: "Ana", Password: ptr("s3cret")})
	require.NoError(t, err)
	assert.NotZero(t, summary.ID)
	assert.Equal(t, "Ana", summary.Name)

	var stored models.Waiter
	require.NoError(t, svc.DB.First(&stored, summary.ID).Error)
	require.NotNil(t, stored.PasswordHash)
	assert.NotContains(t, *stored.PasswordHash, "s3cret")
	assert.True(t, svc.Codec.VerifyPassword("s3cret", *stored.PasswordHash))
}

func TestRegisterWithoutPasswordIsPasswordless(t *testing.T) {
	svc, _ := newWaiterAuthService(t)
	ctx := context.Background()

	for _, pw := range []*string{nil, ptr("")} {
		summary, err := svc.Register(ctx, services.Credentials{RestaurantID: 1, Name: "Ben", Password: pw})
		require.NoError(t, err)

		var stored models.Waiter
		require.NoError(t, svc.DB.First(&stored, summary.ID).Error)
		assert.False(t, stored.HasPassword())
	}
}

func TestRegisterAllowsDuplicateNames(t *testing.T) {
	svc, _ := newWaiterAuthService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, services.Credentials{RestaurantID: 1, Name: "Ana"})
	require.NoError(t, err)
	b, err := svc.Register(ctx, services.Credentials{RestaurantID: 1, Name: "Ana"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestLoginValidatesInput(t *testing.T) {
	svc, _ := newWaiterAuthService(t)

	_, err := svc.Login(context.Background(), services.Credentials{RestaurantID: 0, Name: "Ana"})
	assert.ErrorIs(t, err, services.ErrInvalidArgument)
	_, err = svc.Login(context.Background(), services.Credentials{RestaurantID: 1})
	assert.ErrorIs(t, err, services.ErrInvalidArgument)
}

func TestLoginUnknownWaiterRegisters(t *testing.T) {
	svc, clock := newWaiterAuthService(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, services.Credentials{RestaurantID: 3, Name: "Cleo"})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, "Cleo", first.Name)
	assert.Equal(t, uint(3), first.RestaurantID)
	assert.NotEmpty(t, first.Token)
	assert.True(t, first.ExpiresAt.Equal(clock.Now().Add(12*time.Hour)))

	second, err := svc.Login(ctx, services.Credentials{RestaurantID: 3, Name: "Cleo"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, svc.DB.Model(&models.Waiter{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLoginAutoRegisterStoresPassword(t *testing.T) {
	svc, _ := newWaiterAuthService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, services.Credentials{RestaurantID: 1, Name: "Dan", Password: ptr("pw")})
	require.NoError(t, err)

	_, err = svc.Login(ctx, services.Credentials{RestaurantID: 1, Name: "Dan"})
	assert.ErrorIs(t, err, services.ErrUnauthorized)

	_, err = svc.Login(ctx, services.Credentials{RestaurantID: 1, Name: "Dan", Password: ptr("pw")})
	assert.NoError(t, err)
}

func TestLoginChecksPassword(t *testing.T) {
	svc, _ := newWaiterAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, services.Credentials{RestaurantID: 1, Name: "Eve", Password: ptr("right")})
	require.NoError(t, err)

	for _, pw := range []*string{nil, ptr(""), ptr("wrong")} {
		_, err := svc.Login(ctx, services.Credentials{RestaurantID: 1, Name: "Eve", Password: pw})
		assert.ErrorIs(t, err, services.ErrUnauthorized)
	}

	var tokens int64
	require.NoError(t, svc.DB.Model(&models.AccessToken{}).Count(&tokens).Error)
	assert.Zero(t, tokens, "failed logins must not issue tokens")

	result, err := svc.Login(ctx, services.Credentials{RestaurantID: 1, Name: "Eve", Password: ptr("right")})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, result.ID)
}

func TestLoginPasswordlessIgnoresSuppliedPassword(t *testing.T) {
	svc, _ := newWaiterAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, services.Credentials{RestaurantID: 1, Name: "Fay"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, services.Credentials{RestaurantID: 1, Name: "Fay", Password: ptr("anything")})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, result.ID)
}

func TestLoginCorruptHashIsUnauthorized(t *testing.T) {
	svc, clock := newWaiterAuthService(t)

	corrupt := "not-a-hash"
	require.NoError(t, svc.DB.Create(&models.Waiter{
		RestaurantID: 1, Name: "Gus", PasswordHash: &corrupt, CreatedAt: clock.Now(),
	}).Error)

	_, err := svc.Login(context.Background(), services.Credentials{RestaurantID: 1, Name: "Gus", Password: ptr("x")})
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestLoginDuplicateNamesPickLowestID(t *testing.T) {
	svc, _ := newWaiterAuthService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, services.Credentials{RestaurantID: 1, Name: "Hal", Password: ptr("one")})
	require.NoError(t, err)
	_, err = svc.Register(ctx, services.Credentials{RestaurantID: 1, Name: "Hal", Password: ptr("two")})
	require.NoError(t, err)

	result, err := svc.Login(ctx, services.Credentials{RestaurantID: 1, Name: "Hal", Password: ptr("one")})
	require.NoError(t, err)
	assert.Equal(t, first.ID, result.ID)

	_, err = svc.Login(ctx, services.Credentials{RestaurantID: 1, Name: "Hal", Password: ptr("two")})
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestLoginScopesNameToRestaurant(t *testing.T) {
	svc, _ := newWaiterAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, services.Credentials{RestaurantID: 1, Name: "Ivy", Password: ptr("pw")})
	require.NoError(t, err)

	// Same name at another restaurant is a different, new account.
	result, err := svc.Login(ctx, services.Credentials{RestaurantID: 2, Name: "Ivy"})
	require.NoError(t, err)
	assert.Equal(t, uint(2), result.RestaurantID)
}

func TestLoginMatchesNameExactly(t *testing.T) {
	svc, _ := newWaiterAuthService(t)
	ctx := context.Background()

	ana, err := svc.Register(ctx, services.Credentials{RestaurantID: 1, Name: "Ana", Password: ptr("ana-pw")})
	require.NoError(t, err)

	padded, err := svc.Login(ctx, services.Credentials{RestaurantID: 1, Name: " Ana ", Password: ptr("other-pw")})
	require.NoError(t, err)
	assert.NotEqual(t, ana.ID, padded.ID)
	assert.Equal(t, " Ana ", padded.Name)

	again, err := svc.Login(ctx, services.Credentials{RestaurantID: 1, Name: "Ana", Password: ptr("ana-pw")})
	require.NoError(t, err)
	assert.Equal(t, ana.ID, again.ID)

	_, err = svc.Login(ctx, services.Credentials{RestaurantID: 1, Name: "Ana", Password: ptr("other-pw")})
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestLoginIssuesDistinctTokens(t *testing.T) {
	svc, _ := newWaiterAuthService(t)
	ctx := context.Background()

	a, err := svc.Login(ctx, services.Credentials{RestaurantID: 1, Name: "Jo"})
	require.NoError(t, err)
	b, err := svc.Login(ctx, services.Credentials{RestaurantID: 1, Name: "Jo"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Token, b.Token)

	for _, token := range []string{a.Token, b.Token} {
		waiter, err := svc.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, a.ID, waiter.ID)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, clock := newWaiterAuthService(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, services.Credentials{RestaurantID: 1, Name: "Kai"})
	require.NoError(t, err)

	waiter, err := svc.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "Kai", waiter.Name)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, services.ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "unknown-token")
	assert.ErrorIs(t, err, services.ErrUnauthorized)

	clock.Advance(services.AccessTokenTTL)
	_, err = svc.Authenticate(ctx, login.Token)
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestListByRestaurant(t *testing.T) {
	svc, _ := newWaiterAuthService(t)
	ctx := context.Background()

	for _, name := range []string{"Zed", "Amy", "Max"} {
		_, err := svc.Register(ctx, services.Credentials{RestaurantID: 4, Name: name, Password: ptr("pw")})
		require.NoError(t, err)
	}
	_, err := svc.Register(ctx, services.Credentials{RestaurantID: 5, Name: "Other"})
	require.NoError(t, err)

	waiters, err := svc.ListByRestaurant(ctx, 4)
	require.NoError(t, err)
	require.Len(t, waiters, 3)
	assert.Equal(t, []string{"Zed", "Amy", "Max"}, []string{waiters[0].Name, waiters[1].Name, waiters[2].Name})
	assert.Less(t, waiters[0].ID, waiters[1].ID)
	assert.Less(t, waiters[1].ID, waiters[2].ID)

	empty, err := svc.ListByRestaurant(ctx, 42)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.ListByRestaurant(ctx, 0)
	assert.ErrorIs(t, err, services.ErrInvalidArgument)
}
