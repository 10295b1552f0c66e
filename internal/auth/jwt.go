package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrMissingToken = errors.New("auth: missing token")
)

// Claims: полезная нагрузка токена. id дублирует sub для старых клиентов.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Signer выпускает и проверяет HS256-токены.
type Signer struct {
	secret    []byte
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
	now       func() time.Time
}

func NewSigner(secret, issuer string, ttl, clockSkew time.Duration) *Signer {
	return &Signer{
		secret:    []byte(secret),
		issuer:    issuer,
		ttl:       ttl,
		clockSkew: clockSkew,
		now:       time.Now,
	}
}

func (s *Signer) TTL() time.Duration { return s.ttl }

// Issue выпускает токен с sub=userID и exp=now+ttl
func (s *Signer) Issue(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("auth: user id required")
	}

	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-s.clockSkew)),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate разбирает токен и возвращает id пользователя.
func (s *Signer) Validate(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if !parsed.Valid {
		return "", ErrInvalidToken
	}

	id := strings.TrimSpace(claims.UserID)
	if id == "" {
		id = strings.TrimSpace(claims.Subject)
	}
	if id == "" {
		return "", ErrInvalidToken
	}
	return id, nil
}

// BearerToken достаёт токен из заголовка Authorization.
func BearerToken(header string) string {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
