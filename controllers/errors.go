package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-access/services"
	"github.com/yeremiapane/restaurant-access/utils"
)

// respondServiceError maps service sentinels to a status and a stable code.
// Anything unrecognised is logged and reported without its details.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		utils.RespondError(c, http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, services.ErrExpired):
		utils.RespondError(c, http.StatusBadRequest, "code_expired", err)
	case errors.Is(err, services.ErrNotFound):
		utils.RespondError(c, http.StatusNotFound, "code_not_found", err)
	case errors.Is(err, services.ErrUnauthorized):
		utils.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("invalid credentials"))
	case errors.Is(err, services.ErrAlreadyUsed):
		utils.RespondError(c, http.StatusConflict, "code_already_used", err)
	case errors.Is(err, services.ErrExhaustedRetries):
		utils.RespondError(c, http.StatusInternalServerError, "exhausted_retries", err)
	default:
		utils.ErrorLogger.WithField("path", c.FullPath()).Errorf("request failed: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "internal_error", errors.New("internal server error"))
	}
}

func respondBindError(c *gin.Context, err error) {
	utils.RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("invalid request body: %w", err))
}

// parseID reads a positive integer path parameter, writing a 400 when it is not one.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("%s must be a positive integer", name))
		return 0, false
	}
	return uint(id), true
}
