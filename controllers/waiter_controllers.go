package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-access/middlewares"
	"github.com/yeremiapane/restaurant-access/services"
	"github.com/yeremiapane/restaurant-access/utils"
)

type WaiterController struct {
	Service *services.WaiterAuthService
}

func NewWaiterController(service *services.WaiterAuthService) *WaiterController {
	return &WaiterController{Service: service}
}

type credentialsRequest struct {
	RestaurantID uint    `json:"restaurantId"`
	Name         string  `json:"name"`
	Password     *string `json:"password"`
}

func (r credentialsRequest) credentials() services.Credentials {
	return services.Credentials{
		RestaurantID: r.RestaurantID,
		Name:         r.Name,
		Password:     r.Password,
	}
}

// CreateWaiter -> POST /api/waiters
func (wc *WaiterController) CreateWaiter(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	summary, err := wc.Service.Register(c.Request.Context(), req.credentials())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Waiter registered", summary)
}

// Login -> POST /api/waiters/login
func (wc *WaiterController) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := wc.Service.Login(c.Request.Context(), req.credentials())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Login successful", result)
}

// GetByRestaurant -> GET /api/waiters/byrestaurant/:restaurant_id
func (wc *WaiterController) GetByRestaurant(c *gin.Context) {
	restaurantID, ok := parseID(c, "restaurant_id")
	if !ok {
		return
	}

	waiters, err := wc.Service.ListByRestaurant(c.Request.Context(), restaurantID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of waiters", waiters)
}

// GetProfile -> GET /api/waiters/me, behind middlewares.WaiterAuth
func (wc *WaiterController) GetProfile(c *gin.Context) {
	waiter, ok := middlewares.CurrentWaiter(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("not authenticated"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Waiter profile", waiter.Summary())
}
