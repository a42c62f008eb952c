package middleware

import (
	"strings"
	"time"

	"github.com/roamledger/roamledger/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware builds the CORS policy from the server configuration.
// Credentials stay enabled because the session rides in a cookie.
func CORSMiddleware(cfg *config.ServerConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Length",
			"Content-Type",
			"Accept",
			"X-Request-ID",
		},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 0 || containsOrigin(cfg.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
		return cors.New(corsConfig)
	}

	allowed := cfg.AllowedOrigins
	corsConfig.AllowOriginFunc = func(origin string) bool {
		for _, candidate := range allowed {
			if candidate == origin {
				return true
			}
			// "*.example.com" admits any subdomain.
			if strings.HasPrefix(candidate, "*.") {
				if strings.HasSuffix(origin, strings.TrimPrefix(candidate, "*")) {
					return true
				}
			}
		}
		return false
	}
	return cors.New(corsConfig)
}

func containsOrigin(origins []string, origin string) bool {
	for _, v := range origins {
		if v == origin {
			return true
		}
	}
	return false
}
