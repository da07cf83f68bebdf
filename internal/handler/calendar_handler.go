package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ifsertao/permuta-api/internal/dto"
	"github.com/ifsertao/permuta-api/internal/service"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
	"github.com/ifsertao/permuta-api/pkg/response"
)

// CalendarHandler exposes the schedule event feed.
type CalendarHandler struct {
	service *service.CalendarService
}

// NewCalendarHandler constructs a calendar handler.
func NewCalendarHandler(svc *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// Events godoc
// @Summary Calendar event feed
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start date YYYY-MM-DD"
// @Param to query string false "End date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /calendar/events [get]
func (h *CalendarHandler) Events(c *gin.Context) {
	var query dto.CalendarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	events, err := h.service.Events(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}
