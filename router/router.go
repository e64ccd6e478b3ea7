package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-access/config"
	"github.com/yeremiapane/restaurant-access/controllers"
	"github.com/yeremiapane/restaurant-access/middlewares"
	"github.com/yeremiapane/restaurant-access/realtime"
	"github.com/yeremiapane/restaurant-access/services"
)

// Deps are the long-lived components the routes are served by.
type Deps struct {
	AccessCodes *services.AccessCodeService
	Waiters     *services.WaiterAuthService
	Hub         *realtime.Hub
}

func SetupRouter(cfg config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.RequestID())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg.AllowedOrigins))

	accessCodeCtrl := controllers.NewAccessCodeController(deps.AccessCodes)
	waiterCtrl := controllers.NewWaiterController(deps.Waiters)

	// Login and code issuance share one per-IP budget.
	limiter := middlewares.NewIPRateLimiter(cfg.LoginRatePerMinute, cfg.LoginRateBurst)
	waiterAuth := middlewares.WaiterAuth(deps.Waiters)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := r.Group("/api")
	{
		codes := api.Group("/accesscodes")
		codes.POST("", limiter.RateLimit(), accessCodeCtrl.CreateCode)
		codes.GET("/validate/:code", accessCodeCtrl.ValidateCode)
		codes.GET("/bywaiter/:waiter_id", accessCodeCtrl.GetByWaiter)

		waiters := api.Group("/waiters")
		waiters.POST("", waiterCtrl.CreateWaiter)
		waiters.POST("/login", limiter.RateLimit(), waiterCtrl.Login)
		waiters.GET("/byrestaurant/:restaurant_id", waiterCtrl.GetByRestaurant)
		waiters.GET("/me", waiterAuth, waiterCtrl.GetProfile)
	}

	r.GET("/ws/waiters", waiterAuth, controllers.WaiterPanelHandler(deps.Hub, cfg.AllowedOrigins))

	return r
}
