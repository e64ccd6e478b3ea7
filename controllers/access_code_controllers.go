package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-access/services"
	"github.com/yeremiapane/restaurant-access/utils"
)

type AccessCodeController struct {
	Service *services.AccessCodeService
}

func NewAccessCodeController(service *services.AccessCodeService) *AccessCodeController {
	return &AccessCodeController{Service: service}
}

type createCodeRequest struct {
	RestaurantID uint    `json:"restaurantId"`
	TableNumber  *string `json:"tableNumber"`
	WaiterID     *uint   `json:"waiterId"`
	TTLMinutes   *int    `json:"ttlMinutes"`
}

// CreateCode -> POST /api/accesscodes
func (ac *AccessCodeController) CreateCode(c *gin.Context) {
	var req createCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	issued, err := ac.Service.IssueCode(c.Request.Context(), services.IssueCodeInput{
		RestaurantID: req.RestaurantID,
		TableNumber:  req.TableNumber,
		WaiterID:     req.WaiterID,
		TTLMinutes:   req.TTLMinutes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Access code issued", issued)
}

// ValidateCode -> GET /api/accesscodes/validate/:code
func (ac *AccessCodeController) ValidateCode(c *gin.Context) {
	code, err := ac.Service.ValidateCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Access code is valid", code)
}

// GetByWaiter -> GET /api/accesscodes/bywaiter/:waiter_id
func (ac *AccessCodeController) GetByWaiter(c *gin.Context) {
	waiterID, ok := parseID(c, "waiter_id")
	if !ok {
		return
	}

	codes, err := ac.Service.ListByWaiter(c.Request.Context(), waiterID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of access codes", codes)
}
