package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/config"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/models"
	"golang.org/x/crypto/argon2"
)

const blacklistPrefix = "blacklist:"

type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	jwt       config.JWTConfig
	argon     config.Argon2Config
	validator *ValidationHelper
	log       zerolog.Logger
	now       func() time.Time
}

// LoginRequest is the staff login payload.
type LoginRequest struct {
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required,min=6"`
}

type AuthResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Staff     *models.Staff `json:"staff"`
}

// Claims carries the staff role next to the registered claims. Subject is
// the staff id and ID the token id used for revocation.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func NewAuthService(db *sql.DB, redisClient *redis.Client, cfg *config.Config) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		jwt:       cfg.JWT,
		argon:     cfg.Argon2,
		validator: NewValidationHelper(),
		log:       logger.WithComponent("auth"),
		now:       time.Now,
	}
}

// Login checks a staff member's phone and password and issues a token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	const op = "Login"
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid(op, err)
	}

	var st models.Staff
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, role, password_hash, active, created_at, updated_at
		FROM staff
		WHERE phone = $1 AND deleted_at IS NULL`, req.Phone).
		Scan(&st.ID, &st.Name, &st.Phone, &st.Role, &st.PasswordHash, &st.Active, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		s.log.Warn().Str("phone", req.Phone).Msg("login for unknown phone")
		return nil, wrap(op, ErrInvalidCredentials)
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	if !st.Active || !s.VerifyPassword(req.Password, st.PasswordHash) {
		s.log.Warn().Str("staff_id", st.ID).Msg("login rejected")
		return nil, wrap(op, ErrInvalidCredentials)
	}

	token, expires, err := s.issueToken(&st)
	if err != nil {
		return nil, wrap(op, err)
	}
	s.log.Info().Str("staff_id", st.ID).Str("role", st.Role).Msg("login successful")
	return &AuthResponse{Token: token, ExpiresAt: expires, Staff: &st}, nil
}

func (s *AuthService) issueToken(st *models.Staff) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(time.Duration(s.jwt.ExpiryHours) * time.Hour)
	claims := Claims{
		Role: st.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   st.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwt.SecretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken validates signature and expiry and returns the claims.
func (s *AuthService) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(s.jwt.SecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, wrap("ParseToken", fmt.Errorf("%w: %v", ErrInvalidToken, err))
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, wrap("ParseToken", ErrInvalidToken)
	}
	return claims, nil
}

// Logout blacklists the token id until the token would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if s.redis == nil || claims == nil {
		return nil
	}
	ttl := time.Duration(s.jwt.ExpiryHours) * time.Hour
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, blacklistPrefix+claims.ID, "1", ttl).Err(); err != nil {
		return wrap("Logout", err)
	}
	s.log.Info().Str("staff_id", claims.Subject).Msg("token revoked")
	return nil
}

// IsRevoked reports whether a token id was blacklisted by Logout.
func (s *AuthService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.redis == nil {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, blacklistPrefix+tokenID).Result()
	if err != nil {
		return false, wrap("IsRevoked", err)
	}
	return n > 0, nil
}

// HashPassword returns "salt$hash", both base64, using argon2id.
func (s *AuthService) HashPassword(password string) (string, error) {
	salt := make([]byte, s.argon.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, s.argon.Time, s.argon.Memory, s.argon.Threads, s.argon.KeyLength)
	return base64.StdEncoding.EncodeToString(salt) + "$" + base64.StdEncoding.EncodeToString(hash), nil
}

func (s *AuthService) VerifyPassword(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 2 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(password), salt, s.argon.Time, s.argon.Memory, s.argon.Threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computed) == 1
}
