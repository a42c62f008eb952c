package middleware

import (
	"fmt"
	"time"

	"github.com/roamledger/roamledger/config"
	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "roam_session"
	// DeviceIDKey is the gin context key holding the authenticated device ID.
	DeviceIDKey = "device_id"
)

// SessionClaims is the JWT payload stored in the session cookie. Sessions
// identify a device, not a person; the expense data itself is scoped by the
// identity value carried on each trip.
type SessionClaims struct {
	DeviceID string `json:"deviceId"`
	jwt.RegisteredClaims
}

// NewSessionToken mints a signed session token for the device.
func NewSessionToken(deviceID, secret string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	expires := now.Add(ttl)
	claims := SessionClaims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "roamledger",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, apperrors.Wrap(err, apperrors.ServerError, "Failed to sign session token")
	}
	return signed, expires, nil
}

// ValidateSessionToken parses and verifies a session token.
func ValidateSessionToken(tokenString, secret string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, apperrors.AuthenticationFailed("Invalid or expired session")
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.DeviceID == "" {
		return nil, apperrors.AuthenticationFailed("Invalid or expired session")
	}
	return claims, nil
}

// SessionAuth requires a valid session cookie on every request it guards.
// POST /v1/session, the health probes, and /metrics stay outside this
// middleware.
func SessionAuth(cfg *config.ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(SessionCookieName)
		if err != nil || tokenString == "" {
			_ = c.Error(apperrors.AuthenticationFailed("Session cookie is missing"))
			c.Abort()
			return
		}

		claims, err := ValidateSessionToken(tokenString, cfg.SessionSecretKey)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(DeviceIDKey, claims.DeviceID)
		c.Next()
	}
}
