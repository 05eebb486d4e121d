package allowlist

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"santiye/internal/docstore"
	"santiye/internal/domain"
)

type tokenIssuer interface {
	GenerateToken(userID, email, role string) (string, error)
}

// Service manages allowlisted accounts: registration gated on the
// users_by_email collection, password login and admin-side user CRUD.
type Service struct {
	store *docstore.Store
	jwt   tokenIssuer
}

func NewService(store *docstore.Store, jwt tokenIssuer) *Service {
	return &Service{store: store, jwt: jwt}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// allowlistEntry returns the pre-authorization record for email, if any.
// Runs with system credentials: it is consulted before a user identity
// exists.
func (s *Service) allowlistEntry(ctx context.Context, email string) (*domain.EmailEntry, error) {
	doc, err := s.store.Get(ctx, docstore.System(), domain.CollectionUsersByEmail, email)
	if err == docstore.ErrNotFound {
		return nil, ErrNotAllowlisted
	}
	if err != nil {
		return nil, err
	}
	var entry domain.EmailEntry
	if err := docstore.Decode(doc, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (*domain.AppUser, error) {
	docs, err := s.store.RunQuery(ctx, docstore.System(), docstore.Query{
		Collection: domain.CollectionUsers,
		Filters:    []docstore.Filter{docstore.Eq("email", email)},
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}
	var user domain.AppUser
	if err := docstore.Decode(docs[0], &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates the user record for a pre-authorized email. The role
// comes from the allowlist entry, never from the request.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.AppUser, string, error) {
	email := normalizeEmail(req.Email)

	entry, err := s.allowlistEntry(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if _, err := s.userByEmail(ctx, email); err == nil {
		return nil, "", ErrUserExists
	} else if err != ErrUserNotFound {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	doc, err := s.store.Create(ctx, docstore.System(), domain.CollectionUsers, docstore.Document{
		"email":        email,
		"name":         strings.TrimSpace(req.Name),
		"role":         entry.Role,
		"passwordHash": string(hash),
	})
	if err != nil {
		return nil, "", err
	}

	user := &domain.AppUser{
		ID:    doc.ID(),
		Email: email,
		Name:  strings.TrimSpace(req.Name),
		Role:  entry.Role,
	}
	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies the password and issues a token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*domain.AppUser, string, error) {
	email := normalizeEmail(req.Email)

	user, err := s.userByEmail(ctx, email)
	if err == ErrUserNotFound {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}
	user.PasswordHash = ""
	return user, token, nil
}

// Refresh issues a new token for an already authenticated user, reading
// the account fresh so a role change takes effect on the next token.
func (s *Service) Refresh(ctx context.Context, userID string) (*domain.AppUser, string, error) {
	doc, err := s.store.Get(ctx, docstore.System(), domain.CollectionUsers, userID)
	if err == docstore.ErrNotFound {
		return nil, "", ErrUserNotFound
	}
	if err != nil {
		return nil, "", err
	}
	var user domain.AppUser
	if err := docstore.Decode(doc, &user); err != nil {
		return nil, "", err
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}
	user.PasswordHash = ""
	return &user, token, nil
}

// ListUsers returns every account. Admin only; a denied call surfaces the
// store's permission error.
func (s *Service) ListUsers(ctx context.Context, auth docstore.AuthContext) ([]domain.AppUser, error) {
	docs, err := s.store.RunQuery(ctx, auth, docstore.Query{
		Collection: domain.CollectionUsers,
	})
	if err != nil {
		return nil, err
	}
	users := make([]domain.AppUser, 0, len(docs))
	for _, doc := range docs {
		var u domain.AppUser
		if err := docstore.Decode(doc, &u); err != nil {
			return nil, err
		}
		u.PasswordHash = ""
		users = append(users, u)
	}
	return users, nil
}

// AddEntry pre-authorizes an email with a role so the person can register
// later. The entry's document key is the email.
func (s *Service) AddEntry(ctx context.Context, auth docstore.AuthContext, req AddEntryRequest) error {
	email := normalizeEmail(req.Email)
	return s.store.Set(ctx, auth, domain.CollectionUsersByEmail, email, docstore.Document{
		"email": email,
		"role":  req.Role,
	})
}

// RemoveUser deletes the user record and its allowlist entry in one
// atomic batch.
func (s *Service) RemoveUser(ctx context.Context, auth docstore.AuthContext, userID string) error {
	doc, err := s.store.Get(ctx, auth, domain.CollectionUsers, userID)
	if err == docstore.ErrNotFound {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	var user domain.AppUser
	if err := docstore.Decode(doc, &user); err != nil {
		return err
	}

	batch := s.store.NewBatch(auth)
	batch.Delete(domain.CollectionUsers, userID)
	if _, err := s.store.Get(ctx, docstore.System(), domain.CollectionUsersByEmail, user.Email); err == nil {
		batch.Delete(domain.CollectionUsersByEmail, user.Email)
	}
	return batch.Commit(ctx)
}
