// Package handlers contains the gin HTTP handlers for the expense API.
// Handlers are thin pass-throughs: bind, validate through the types package,
// call the store, and hand errors to the error-handler middleware.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roamledger/roamledger/config"
	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/middleware"
	"github.com/roamledger/roamledger/types"
)

// SessionHandler issues the session cookies that gate the /v1 API.
type SessionHandler struct {
	serverConfig *config.ServerConfig
}

// NewSessionHandler creates a SessionHandler over the server configuration.
func NewSessionHandler(serverConfig *config.ServerConfig) *SessionHandler {
	return &SessionHandler{serverConfig: serverConfig}
}

// OpenSession handles POST /v1/session. It mints a device ID, signs a session
// token for it and sets the session cookie. There is no login: sessions
// identify a device so the server can bound cookie lifetimes, while the data
// itself is correlated by the identity value on each trip.
func (h *SessionHandler) OpenSession(c *gin.Context) {
	deviceID := uuid.New().String()

	token, expires, err := middleware.NewSessionToken(
		deviceID,
		h.serverConfig.SessionSecretKey,
		time.Duration(h.serverConfig.SessionTTLHours)*time.Hour,
	)
	if err != nil {
		handleError(c, err)
		return
	}

	secure := h.serverConfig.Environment == config.EnvProduction
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		middleware.SessionCookieName,
		token,
		int(time.Until(expires).Seconds()),
		"/",
		"",
		secure,
		true,
	)

	logger.GetLogger().Infow("Session opened", "deviceId", deviceID)
	c.JSON(http.StatusOK, types.SessionResponse{
		DeviceID:  deviceID,
		ExpiresAt: expires.UTC().Format(time.RFC3339),
	})
}

// handleError attaches err to the context for the error-handler middleware.
func handleError(c *gin.Context, err error) {
	if err == nil {
		err = apperrors.InternalServerError("Unknown error")
	}
	_ = c.Error(err)
	c.Abort()
}
