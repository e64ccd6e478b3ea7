package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-access/middlewares"
	"github.com/yeremiapane/restaurant-access/realtime"
	"github.com/yeremiapane/restaurant-access/utils"
)

// WaiterPanelHandler streams access code events of the authenticated waiter's
// restaurant over a websocket. It must run behind middlewares.WaiterAuth.
func WaiterPanelHandler(hub *realtime.Hub, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     middlewares.OriginAllowed(allowedOrigins),
	}

	return func(c *gin.Context) {
		waiter, ok := middlewares.CurrentWaiter(c)
		if !ok {
			utils.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("not authenticated"))
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			utils.InfoLogger.WithField("waiter_id", waiter.ID).Warnf("websocket upgrade failed: %v", err)
			return
		}
		hub.Serve(ws, waiter.RestaurantID, waiter.ID)
	}
}
