package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/repository"
)

const duplicateUsernameMessage = "A user with that username already exists."

// Identity is the authenticated user behind a request.
type Identity struct {
	UserID    uint
	Username  string
	SessionID string
}

// UserStore is the credential capability: registering accounts and
// checking passwords.
type UserStore interface {
	// Register validates form and creates the user. Validation problems,
	// including a taken username, are reported as *ValidationError.
	Register(ctx context.Context, form RegisterForm) (*domain.User, error)

	// Authenticate returns ErrInvalidCredentials when the username is
	// unknown or the password does not match.
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}

// SessionToken is handed to the browser after a successful login.
type SessionToken struct {
	Token     string
	ExpiresAt time.Time
}

type SessionManager interface {
	StartSession(ctx context.Context, user *domain.User) (*SessionToken, error)

	// ResolveSession returns ErrSessionNotFound or ErrSessionExpired when
	// the token no longer identifies a live session.
	ResolveSession(ctx context.Context, token string) (*Identity, error)

	// EndSession deletes the session named by token. Unknown and expired
	// tokens are not an error.
	EndSession(ctx context.Context, token string) error
}

type AuthService interface {
	UserStore
	SessionManager
}

type AuthOptions struct {
	Issuer     string
	SigningKey []byte
	SessionTTL time.Duration
	// HashParams defaults to argon2id.DefaultParams.
	HashParams *argon2id.Params
}

type authService struct {
	log        zerolog.Logger
	users      repository.UserRepository
	sessions   repository.SessionRepository
	issuer     string
	signingKey []byte
	sessionTTL time.Duration
	hashParams *argon2id.Params
	// dummyHash is compared against when the username is unknown so that
	// both failure paths cost one argon2id derivation.
	dummyHash  string
	compare    func(password, hash string) (bool, error)
	now        func() time.Time
}

func NewAuthService(
	log zerolog.Logger,
	users repository.UserRepository,
	sessions repository.SessionRepository,
	opts AuthOptions,
) AuthService {
	params := opts.HashParams
	if params == nil {
		params = argon2id.DefaultParams
	}
	dummyHash, err := argon2id.CreateHash("not-a-real-password", params)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create dummy password hash")
	}
	return &authService{
		log:        log,
		users:      users,
		sessions:   sessions,
		issuer:     opts.Issuer,
		signingKey: opts.SigningKey,
		sessionTTL: opts.SessionTTL,
		hashParams: params,
		dummyHash:  dummyHash,
		compare:    argon2id.ComparePasswordAndHash,
		now:        time.Now,
	}
}

func (s *authService) Register(ctx context.Context, form RegisterForm) (*domain.User, error) {
	form.Normalize()
	errs := form.Validate()
	if !errs.Has("username") {
		exists, err := s.users.ExistsByUsername(ctx, form.Username)
		if err != nil {
			s.log.Error().
				Err(err).
				Str("username", form.Username).
				Msg("failed to check username")
			return nil, fmt.Errorf("check username: %w", err)
		}
		if exists {
			errs.Add("username", duplicateUsernameMessage)
		}
	}
	if err := newValidationError(errs); err != nil {
		return nil, err
	}

	hash, err := argon2id.CreateHash(form.Password1, s.hashParams)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     form.Username,
		PasswordHash: hash,
	}
	err = s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, &ValidationError{Fields: FieldErrors{"username": {duplicateUsernameMessage}}}
		}
		s.log.Error().
			Err(err).
			Str("username", form.Username).
			Msg("failed to insert user")
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().
		Uint("user_id", user.ID).
		Str("username", user.Username).
		Msg("registered user")
	return user, nil
}

func (s *authService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || textError(username) != "" {
		s.burnHash(password)
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn().
				Str("username", username).
				Msg("user not found")
			s.burnHash(password)
			return nil, ErrInvalidCredentials
		}
		s.log.Error().
			Err(err).
			Str("username", username).
			Msg("failed to select user by username")
		return nil, fmt.Errorf("find user: %w", err)
	}

	match, err := s.compare(password, user.PasswordHash)
	if err != nil {
		s.log.Error().
			Err(err).
			Uint("user_id", user.ID).
			Msg("failed to compare password")
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !match {
		s.log.Warn().
			Uint("user_id", user.ID).
			Msg("passwords do not match")
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *authService) burnHash(password string) {
	if s.dummyHash == "" {
		return
	}
	_, _ = s.compare(password, s.dummyHash)
}

func (s *authService) StartSession(ctx context.Context, user *domain.User) (*SessionToken, error) {
	now := s.now()

	purged, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to purge expired sessions")
	} else if purged > 0 {
		s.log.Debug().Int64("purged", purged).Msg("purged expired sessions")
	}

	sessionUUID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	session := &domain.Session{
		ID:        sessionUUID.String(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	err = s.sessions.Create(ctx, session)
	if err != nil {
		s.log.Error().
			Err(err).
			Uint("user_id", user.ID).
			Msg("failed to insert session")
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := s.signToken(session, now)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("user_id", user.ID).
		Str("session_id", session.ID).
		Msg("started session")
	return &SessionToken{Token: token, ExpiresAt: session.ExpiresAt}, nil
}

func (s *authService) ResolveSession(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.parseToken(token, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		s.log.Debug().Err(err).Msg("rejected session token")
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}

	session, err := s.sessions.FindActive(ctx, claims.Subject, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.log.Error().
			Err(err).
			Str("session_id", claims.Subject).
			Msg("failed to select session")
		return nil, fmt.Errorf("find session: %w", err)
	}

	return &Identity{
		UserID:    session.UserID,
		Username:  session.User.Username,
		SessionID: session.ID,
	}, nil
}

func (s *authService) EndSession(ctx context.Context, token string) error {
	claims, err := s.parseToken(token, jwt.WithoutClaimsValidation())
	if err != nil {
		s.log.Debug().Err(err).Msg("ignoring invalid session token on logout")
		return nil
	}

	err = s.sessions.Delete(ctx, claims.Subject)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("session_id", claims.Subject).
			Msg("failed to delete session")
		return fmt.Errorf("delete session: %w", err)
	}

	s.log.Info().
		Str("session_id", claims.Subject).
		Msg("ended session")
	return nil
}

func (s *authService) signToken(session *domain.Session, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   session.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

func (s *authService) parseToken(tokenString string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("unexpected token issuer")
	}
	return claims, nil
}
