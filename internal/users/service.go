package users

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nahuelcoria/tienda-backend/internal/orders"
	"github.com/nahuelcoria/tienda-backend/pkg/config"
	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
	"github.com/nahuelcoria/tienda-backend/pkg/kv"
	"github.com/nahuelcoria/tienda-backend/pkg/money"
	"github.com/nahuelcoria/tienda-backend/pkg/security"
)

// Service manages account records in the external key/value store.
// Session establishment lives at the API layer; this service only
// answers whether credentials are valid and keeps records current.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	Get(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, email string, input UpdateInput) (*User, error)
	AppendOrder(ctx context.Context, email string, order orders.Order) (*User, error)
}

// ServiceParams groups dependencies for the user service.
type ServiceParams struct {
	Store    kv.Store
	Password config.PasswordConfig
}

type service struct {
	store kv.Store
	cfg   config.PasswordConfig
}

// NewService builds the user service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store is required")
	}
	return &service{store: params.Store, cfg: params.Password}, nil
}

// Register creates the account and persists it keyed by email. A record
// already stored under that email is a conflict, never overwritten.
func (s *service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}

	hash, err := security.HashPassword(input.Password, s.cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  hash,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Phone:     strings.TrimSpace(input.Phone),
		CreatedAt: money.FormatDate(time.Now()),
		Orders:    []orders.Order{},
	}
	if err := s.saveNew(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the credentials. Records still carrying a plaintext
// password are migrated to argon2id in place on the first success, so
// the second login takes the hashed path.
func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	user, err := s.load(ctx, email)
	if err != nil {
		return nil, err
	}

	if security.IsHashed(user.Password) {
		ok, err := security.VerifyPassword(password, user.Password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return user, nil
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(user.Password)) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	hash, err := security.HashPassword(password, s.cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "migrate password hash")
	}
	user.Password = hash
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get loads the account record for the email.
func (s *service) Get(ctx context.Context, email string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, email)
}

// Update patches the profile fields that were provided.
func (s *service) Update(ctx context.Context, email string, input UpdateInput) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	user, err := s.load(ctx, email)
	if err != nil {
		return nil, err
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AppendOrder adds a confirmed order to the end of the user's history.
func (s *service) AppendOrder(ctx context.Context, email string, order orders.Order) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	user, err := s.load(ctx, email)
	if err != nil {
		return nil, err
	}
	user.Orders = append(user.Orders, order)
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) load(ctx context.Context, email string) (*User, error) {
	raw, err := s.store.Get(ctx, kv.UserKey(email))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user record")
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode user record")
	}
	return &user, nil
}

// saveNew claims the email atomically so two concurrent registrations
// cannot both win; the loser gets a conflict.
func (s *service) saveNew(ctx context.Context, user *User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode user record")
	}
	ok, err := s.store.SetNX(ctx, kv.UserKey(user.Email), string(raw), 0)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist user record")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}
	return nil
}

func (s *service) save(ctx context.Context, user *User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode user record")
	}
	if err := s.store.Set(ctx, kv.UserKey(user.Email), string(raw), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist user record")
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	return email, nil
}
