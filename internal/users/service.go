package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"onboarding-service/internal/navigation"
	"onboarding-service/internal/profile"
	"onboarding-service/pkg/jwt"
	"onboarding-service/pkg/validation"
)

var (
	ErrInvalidInput       = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("account not found")
)

// Service contains account logic.
type Service struct {
	db       *pgxpool.Pool
	profiles profile.Store
}

// NewService creates an account service backed by the given pool.
func NewService(db *pgxpool.Pool, profiles profile.Store) *Service {
	return &Service{db: db, profiles: profiles}
}

// Register creates an account and returns a JWT with no role yet.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !validation.ValidateEmail(email) || !validation.ValidatePassword(req.Password) {
		return nil, ErrInvalidInput
	}

	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM accounts WHERE email=$1)", email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	a := &Account{ID: uuid.New().String(), Email: email, CreatedAt: time.Now().UTC()}
	_, err = s.db.Exec(ctx,
		`INSERT INTO accounts (id,email,password_hash,created_at) VALUES ($1,$2,$3,$4)`,
		a.ID, a.Email, string(hash), a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting account: %w", err)
	}

	token, err := jwt.Generate(a.ID, a.Email, "")
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, Account: a, Next: string(navigation.ScreenRoleSelect)}, nil
}

// Login authenticates an account and returns a JWT carrying the stored role.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var a Account
	err := s.db.QueryRow(ctx,
		`SELECT id,email,password_hash,created_at FROM accounts WHERE email=$1`,
		strings.ToLower(strings.TrimSpace(req.Email))).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	role, next := "", navigation.ScreenRoleSelect
	if p, err := s.profiles.Get(ctx, a.ID); err == nil {
		role, next = nextScreen(p)
	}

	token, err := jwt.Generate(a.ID, a.Email, role)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, Account: &a, Next: string(next)}, nil
}

// Me returns the account and its profile record, if one exists.
func (s *Service) Me(ctx context.Context, id string) (*MeResponse, error) {
	var a Account
	err := s.db.QueryRow(ctx, `SELECT id,email,created_at FROM accounts WHERE id=$1`, id).
		Scan(&a.ID, &a.Email, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading account: %w", err)
	}

	p, err := s.profiles.Get(ctx, id)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return nil, err
	}
	return &MeResponse{Account: &a, Profile: p}, nil
}

// nextScreen picks where a returning user resumes onboarding.
func nextScreen(p profile.Fields) (string, navigation.Screen) {
	role, _ := p[profile.FieldRole].(string)
	if role == "" {
		return "", navigation.ScreenRoleSelect
	}
	if name, _ := p[profile.FieldName].(string); name == "" {
		return role, navigation.ScreenProfileCreation
	}
	return role, navigation.ScreenHome
}
