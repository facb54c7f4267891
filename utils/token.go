package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	PurposeSession = "session"
	PurposeReset   = "reset"
)

// Claims is the payload of both session and password-reset tokens.
type Claims struct {
	Role    string `json:"role,omitempty"`
	Email   string `json:"email,omitempty"`
	Purpose string `json:"purpose"`
	// PasswordHash fingerprints the hash a reset token was issued against.
	PasswordHash string `json:"pwh,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and validates HS256 tokens.
type Tokens struct {
	Secret     []byte
	SessionTTL time.Duration
	ResetTTL   time.Duration
	Now        func() time.Time
}

func NewTokens(secret string, sessionTTL, resetTTL time.Duration) *Tokens {
	return &Tokens{Secret: []byte(secret), SessionTTL: sessionTTL, ResetTTL: resetTTL, Now: time.Now}
}

func (t *Tokens) sign(subject string, ttl time.Duration, claims Claims) (string, error) {
	if len(t.Secret) == 0 {
		return "", fmt.Errorf("JWT_SECRET is not set")
	}
	now := t.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.Secret)
}

// GenerateToken generates a session token for the user
func (t *Tokens) GenerateToken(userID, role, email string) (string, error) {
	return t.sign(userID, t.SessionTTL, Claims{Role: role, Email: email, Purpose: PurposeSession})
}

// GenerateResetToken issues a short-lived token that only works while the
// account still has passwordHash.
func (t *Tokens) GenerateResetToken(userID, email, passwordHash string) (string, error) {
	return t.sign(userID, t.ResetTTL, Claims{Email: email, Purpose: PurposeReset, PasswordHash: Fingerprint(passwordHash)})
}

// ValidateToken parses the token and checks its signature, expiry and purpose.
func (t *Tokens) ValidateToken(tokenString, purpose string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.Secret, nil
	}, jwt.WithTimeFunc(t.Now))
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("token purpose %q, want %q", claims.Purpose, purpose)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// Fingerprint returns a short digest of a password hash.
func Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}
