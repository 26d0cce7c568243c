package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/repository"
)

const minPasswordLen = 6

// UserService регистрация, вход и администрирование учётных записей
type UserService struct {
	users    repository.UserRepository
	hasher   *auth.Hasher
	tokens   *auth.Tokens
	validate *validator.Validate
	log      zerolog.Logger
}

func NewUserService(users repository.UserRepository, hasher *auth.Hasher, tokens *auth.Tokens, log zerolog.Logger) *UserService {
	return &UserService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		validate: validator.New(),
		log:      log.With().Str("component", "users").Logger(),
	}
}

// Register создаёт покупателя и возвращает токен
func (s *UserService) Register(ctx context.Context, name, email, password string) (string, error) {
	u, err := s.create(ctx, name, email, password, false)
	if err != nil {
		return "", err
	}
	return s.tokens.IssueUser(u.ID)
}

func (s *UserService) create(ctx context.Context, name, email, password string, admin bool) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: please enter a valid email", ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{Name: name, Email: email, PasswordHash: hash, IsAdmin: admin}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.log.Info().Str("user_id", u.ID).Bool("admin", admin).Msg("user registered")
	return u, nil
}

func (s *UserService) checkCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if u.IsBanned {
		return nil, ErrBanned
	}
	return u, nil
}

// Login вход покупателя
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.checkCredentials(ctx, email, password)
	if err != nil {
		s.log.Warn().Err(err).Msg("login rejected")
		return "", err
	}
	return s.tokens.IssueUser(u.ID)
}

// AdminLogin выдаёт токен с правами администратора только пользователю с флагом isAdmin
func (s *UserService) AdminLogin(ctx context.Context, email, password string) (string, error) {
	u, err := s.checkCredentials(ctx, email, password)
	if err != nil {
		s.log.Warn().Err(err).Msg("admin login rejected")
		return "", err
	}
	if !u.IsAdmin {
		return "", ErrInvalidCredentials
	}
	return s.tokens.IssueAdmin(u.ID)
}

// Authenticate разбирает токен и проверяет, что пользователь существует и не заблокирован.
// Админский токен действителен, пока у пользователя сохраняется флаг isAdmin.
func (s *UserService) Authenticate(ctx context.Context, raw string) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, auth.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if u.IsBanned {
		return nil, ErrBanned
	}
	if claims.IsAdmin && !u.IsAdmin {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if !repository.ValidID(id) {
		return nil, ErrInvalidID
	}
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if !repository.ValidID(id) {
		return ErrInvalidID
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id).Msg("user deleted")
	return nil
}

// Ban блокирует или разблокирует пользователя
func (s *UserService) Ban(ctx context.Context, id string, banned bool) error {
	if !repository.ValidID(id) {
		return ErrInvalidID
	}
	if err := s.users.SetBanned(ctx, id, banned); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id).Bool("banned", banned).Msg("user ban flag changed")
	return nil
}

// EnsureAdmin создаёт администратора при старте, если учётной записи с таким email ещё нет
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	_, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := s.create(ctx, name, email, password, true); err != nil && !errors.Is(err, ErrEmailTaken) {
		return err
	}
	return nil
}
