package allowlist

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"santiye/internal/database"
	"santiye/internal/docstore"
	"santiye/internal/domain"
	"santiye/internal/events"
)

type mockTokenIssuer struct {
	mock.Mock
}

func (m *mockTokenIssuer) GenerateToken(userID, email, role string) (string, error) {
	args := m.Called(userID, email, role)
	return args.String(0), args.Error(1)
}

func newTestService(t *testing.T) (*Service, *docstore.Store, *mockTokenIssuer) {
	t.Helper()

	db, err := database.ConnectTest(strings.ReplaceAll(t.Name(), "/", "_"))
	require.NoError(t, err)

	store, err := docstore.Open(db, events.NewBus(), domain.Rules())
	require.NoError(t, err)
	t.Cleanup(store.Close)

	issuer := new(mockTokenIssuer)
	return NewService(store, issuer), store, issuer
}

func allowlistEmail(t *testing.T, store *docstore.Store, email, role string) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), docstore.System(), domain.CollectionUsersByEmail, email, docstore.Document{
		"email": email,
		"role":  role,
	}))
}

func adminAuth() docstore.AuthContext {
	return docstore.AuthContext{UserID: "a1", Role: domain.RoleAdmin}
}

func TestService_Register_Allowlisted(t *testing.T) {
	svc, store, issuer := newTestService(t)
	allowlistEmail(t, store, "eng@santiye.com", domain.RoleUser)

	issuer.On("GenerateToken", mock.Anything, "eng@santiye.com", domain.RoleUser).Return("tok", nil)

	user, token, err := svc.Register(context.Background(), RegisterRequest{
		Email:    " Eng@Santiye.com ",
		Password: "parola1234",
		Name:     "Mühendis",
	})
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, "eng@santiye.com", user.Email)
	// Role always comes from the allowlist entry.
	assert.Equal(t, domain.RoleUser, user.Role)

	issuer.AssertExpectations(t)
}

func TestService_Register_NotAllowlisted(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "stranger@santiye.com",
		Password: "parola1234",
	})
	assert.ErrorIs(t, err, ErrNotAllowlisted)
}

func TestService_Register_Twice(t *testing.T) {
	svc, store, issuer := newTestService(t)
	allowlistEmail(t, store, "eng@santiye.com", domain.RoleUser)
	issuer.On("GenerateToken", mock.Anything, mock.Anything, mock.Anything).Return("tok", nil)

	_, _, err := svc.Register(context.Background(), RegisterRequest{Email: "eng@santiye.com", Password: "parola1234"})
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), RegisterRequest{Email: "eng@santiye.com", Password: "parola1234"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestService_Login(t *testing.T) {
	svc, store, issuer := newTestService(t)
	allowlistEmail(t, store, "eng@santiye.com", domain.RoleUser)
	issuer.On("GenerateToken", mock.Anything, mock.Anything, mock.Anything).Return("tok", nil)

	_, _, err := svc.Register(context.Background(), RegisterRequest{Email: "eng@santiye.com", Password: "parola1234"})
	require.NoError(t, err)

	user, token, err := svc.Login(context.Background(), LoginRequest{Email: "eng@santiye.com", Password: "parola1234"})
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Empty(t, user.PasswordHash)

	_, _, err = svc.Login(context.Background(), LoginRequest{Email: "eng@santiye.com", Password: "yanlış"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@santiye.com", Password: "parola1234"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_ListUsers_AdminOnly(t *testing.T) {
	svc, store, issuer := newTestService(t)
	allowlistEmail(t, store, "eng@santiye.com", domain.RoleUser)
	issuer.On("GenerateToken", mock.Anything, mock.Anything, mock.Anything).Return("tok", nil)

	_, _, err := svc.Register(context.Background(), RegisterRequest{Email: "eng@santiye.com", Password: "parola1234"})
	require.NoError(t, err)

	users, err := svc.ListUsers(context.Background(), adminAuth())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].PasswordHash)

	_, err = svc.ListUsers(context.Background(), docstore.AuthContext{UserID: "u1", Role: domain.RoleUser})
	assert.True(t, docstore.IsPermissionDenied(err))
}

func TestService_AddEntry(t *testing.T) {
	svc, store, _ := newTestService(t)

	require.NoError(t, svc.AddEntry(context.Background(), adminAuth(), AddEntryRequest{
		Email: " New@Santiye.com ",
		Role:  domain.RoleUser,
	}))

	doc, err := store.Get(context.Background(), docstore.System(), domain.CollectionUsersByEmail, "new@santiye.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, doc["role"])

	err = svc.AddEntry(context.Background(), docstore.AuthContext{UserID: "u1", Role: domain.RoleUser}, AddEntryRequest{
		Email: "x@santiye.com", Role: domain.RoleUser,
	})
	assert.True(t, docstore.IsPermissionDenied(err))
}

func TestService_RemoveUser_DeletesEntryToo(t *testing.T) {
	svc, store, issuer := newTestService(t)
	allowlistEmail(t, store, "eng@santiye.com", domain.RoleUser)
	issuer.On("GenerateToken", mock.Anything, mock.Anything, mock.Anything).Return("tok", nil)

	user, _, err := svc.Register(context.Background(), RegisterRequest{Email: "eng@santiye.com", Password: "parola1234"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveUser(context.Background(), adminAuth(), user.ID))

	_, err = store.Get(context.Background(), docstore.System(), domain.CollectionUsers, user.ID)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	_, err = store.Get(context.Background(), docstore.System(), domain.CollectionUsersByEmail, "eng@santiye.com")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	// The email can be allowlisted and registered again later.
	assert.ErrorIs(t, svc.RemoveUser(context.Background(), adminAuth(), user.ID), ErrUserNotFound)
}

func TestService_RemoveUser_WithoutAllowlistEntry(t *testing.T) {
	svc, store, _ := newTestService(t)

	// Seeded directly, no users_by_email record.
	doc, err := store.Create(context.Background(), docstore.System(), domain.CollectionUsers, docstore.Document{
		"email": "manual@santiye.com",
		"role":  domain.RoleUser,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveUser(context.Background(), adminAuth(), doc.ID()))
}

func TestService_Refresh(t *testing.T) {
	svc, store, issuer := newTestService(t)
	allowlistEmail(t, store, "eng@santiye.com", domain.RoleUser)

	issuer.On("GenerateToken", mock.Anything, "eng@santiye.com", domain.RoleUser).Return("tok", nil).Once()
	user, _, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "eng@santiye.com",
		Password: "parola1234",
	})
	require.NoError(t, err)

	issuer.On("GenerateToken", user.ID, "eng@santiye.com", domain.RoleUser).Return("tok2", nil).Once()
	refreshed, token, err := svc.Refresh(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok2", token)
	assert.Equal(t, user.ID, refreshed.ID)
	assert.Empty(t, refreshed.PasswordHash)

	_, _, err = svc.Refresh(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
