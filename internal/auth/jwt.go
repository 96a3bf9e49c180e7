// Package auth covers session credentials: HS256 JWT minting and parsing,
// plus bcrypt password hashing. The authorization rules themselves live in
// internal/authz; this package only establishes who the caller is.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	jwtSecretEnv        = "PMS_AUTH_JWT_SECRET"
	defaultTokenTTL     = 24 * time.Hour
	minRecommendedChars = 32
)

var (
	jwtSecret     string
	jwtSecretOnce sync.Once
	jwtSecretErr  error
)

// Claims is the payload carried in session tokens. Role and organization are
// deliberately absent: they are re-read from the users table on every request
// so a role change or deactivation takes effect immediately, not at token
// expiry.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

func isDevMode() bool {
	dev := os.Getenv("DEV_MODE")
	return dev == "true" || dev == "1" || os.Getenv("GIN_MODE") == "debug"
}

func generateRandomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("dev-fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// ValidateJWTSecret resolves the signing secret once, at startup. Production
// requires PMS_AUTH_JWT_SECRET; dev mode autogenerates one per process, which
// means sessions do not survive a restart.
func ValidateJWTSecret() error {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv(jwtSecretEnv)
		switch {
		case secret == "" && isDevMode():
			jwtSecret = generateRandomSecret()
			log.Printf("WARNING: %s not set, using an auto-generated development secret; sessions will not survive restarts", jwtSecretEnv)
		case secret == "":
			jwtSecretErr = fmt.Errorf("%s is required outside dev mode; generate one with: openssl rand -hex 32", jwtSecretEnv)
		default:
			if len(secret) < minRecommendedChars {
				log.Printf("WARNING: %s is shorter than the recommended %d characters", jwtSecretEnv, minRecommendedChars)
			}
			jwtSecret = secret
		}
	})
	return jwtSecretErr
}

// GetJWTSecret returns the resolved secret, resolving it on first use if
// startup skipped ValidateJWTSecret. Panics when no secret can be resolved;
// serving requests with an absent secret is never acceptable.
func GetJWTSecret() string {
	if jwtSecret == "" {
		if err := ValidateJWTSecret(); err != nil {
			panic(err)
		}
	}
	return jwtSecret
}

// GenerateJWT mints a signed session token for the user. A zero expiresIn
// falls back to the default 24h lifetime.
func GenerateJWT(userID, email string, expiresIn time.Duration) (string, error) {
	if expiresIn == 0 {
		expiresIn = defaultTokenTTL
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "taskhub",
			Subject:   userID,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(GetJWTSecret()))
}

// ValidateJWT parses tokenString and returns its claims. The signing method
// is pinned to HMAC so an attacker-supplied "alg" header cannot downgrade
// verification.
func ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(GetJWTSecret()), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
