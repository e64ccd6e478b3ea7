package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-access/models"
	"github.com/yeremiapane/restaurant-access/services"
	"github.com/yeremiapane/restaurant-access/utils"
)

// Context keys set by WaiterAuth.
const (
	WaiterKey   = "waiter"
	WaiterIDKey = "waiter_id"
)

type WaiterAuthenticator interface {
	Authenticate(ctx context.Context, token string) (models.Waiter, error)
}

// WaiterAuth requires a bearer token issued at waiter login. Browsers cannot set
// headers on websocket upgrades, so a "token" query parameter is accepted too.
func WaiterAuth(auth WaiterAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			utils.AbortWithError(c, http.StatusUnauthorized, "unauthorized", err)
			return
		}

		waiter, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, services.ErrUnauthorized) {
				utils.AbortWithError(c, http.StatusUnauthorized, "unauthorized", errors.New("invalid or expired token"))
				return
			}
			utils.ErrorLogger.Printf("Error authenticating waiter: %v", err)
			utils.AbortWithError(c, http.StatusInternalServerError, "internal_error", errors.New("internal server error"))
			return
		}

		c.Set(WaiterKey, waiter)
		c.Set(WaiterIDKey, waiter.ID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", errors.New("authorization header missing")
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(token), nil
}

// CurrentWaiter returns the waiter stored by WaiterAuth.
func CurrentWaiter(c *gin.Context) (models.Waiter, bool) {
	v, ok := c.Get(WaiterKey)
	if !ok {
		return models.Waiter{}, false
	}
	waiter, ok := v.(models.Waiter)
	return waiter, ok
}
