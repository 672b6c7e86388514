package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nahuelcoria/tienda-backend/internal/users"
	pkgAuth "github.com/nahuelcoria/tienda-backend/pkg/auth"
	"github.com/nahuelcoria/tienda-backend/pkg/auth/session"
	"github.com/nahuelcoria/tienda-backend/pkg/config"
	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
)

// Service authenticates storefront users and mints their session tokens.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
}

type userStore interface {
	Register(ctx context.Context, input users.RegisterInput) (*users.User, error)
	Login(ctx context.Context, email, password string) (*users.User, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
}

// ServiceParams bundles the dependencies required to build the auth service.
type ServiceParams struct {
	Users          userStore
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
}

type service struct {
	users   userStore
	session sessionManager
	jwtCfg  config.JWTConfig
}

// NewService constructs the auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user store is required")
	}
	if params.SessionManager == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session manager is required")
	}
	return &service{
		users:   params.Users,
		session: params.SessionManager,
		jwtCfg:  params.JWTConfig,
	}, nil
}

// Login verifies credentials and establishes a fresh session.
func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

// Register creates the account and signs the new user straight in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	user, err := s.users.Register(ctx, users.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

func (s *service) issueTokens(ctx context.Context, user *users.User) (*AuthResponse, error) {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse user id")
	}

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Email:  user.Email,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Profile(),
	}, nil
}
