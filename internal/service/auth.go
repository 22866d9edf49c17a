package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/fortuna/syndicate/internal/store"
)

// DefaultTokenTTL is how long an issued session token stays valid
const DefaultTokenTTL = 30 * 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidAdminCode   = errors.New("invalid admin code")
)

// Claims identifies the user behind a token
type Claims struct {
	UserID string
	Email  string
}

// TokenIssuer signs and verifies HS256 session tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the user
func (t *TokenIssuer) Issue(userID, email string) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"exp":   now.Add(t.ttl).Unix(),
		"iat":   now.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// Parse verifies a token and returns its claims
func (t *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &Claims{UserID: sub, Email: email}, nil
}

// UserRepo is the user persistence AuthService needs
type UserRepo interface {
	Create(ctx context.Context, email, name, passwordHash string) (*store.User, error)
	GetByID(ctx context.Context, id string) (*store.User, error)
	GetByEmail(ctx context.Context, email string) (*store.User, error)
	SetAdmin(ctx context.Context, id string) error
}

// RegisterInput is the sign-up payload
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginInput is the sign-in payload
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is returned on register and login
type Session struct {
	Token string      `json:"token"`
	User  *store.User `json:"user"`
}

// AuthService handles accounts and sessions
type AuthService struct {
	users     UserRepo
	tokens    *TokenIssuer
	adminCode string
	cost      int
}

// NewAuthService creates a new auth service
func NewAuthService(users UserRepo, tokens *TokenIssuer, adminCode string) *AuthService {
	return &AuthService{users: users, tokens: tokens, adminCode: adminCode, cost: bcrypt.DefaultCost}
}

// Tokens exposes the issuer for request authentication
func (s *AuthService) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates an account and signs the user in
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, in.Email, strings.TrimSpace(in.Name), string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return s.session(user)
}

// Login checks credentials and signs the user in
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.session(user)
}

// Authenticate resolves a bearer token to its user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*store.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return user, nil
}

// VerifyAdmin grants admin rights when code matches the configured admin code
func (s *AuthService) VerifyAdmin(ctx context.Context, user *store.User, code string) (*store.User, error) {
	if s.adminCode == "" || subtle.ConstantTimeCompare([]byte(code), []byte(s.adminCode)) != 1 {
		return nil, ErrInvalidAdminCode
	}
	if user.IsAdmin {
		return user, nil
	}

	if err := s.users.SetAdmin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("granting admin: %w", err)
	}
	cp := *user
	cp.IsAdmin = true
	return &cp, nil
}

func (s *AuthService) session(user *store.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
