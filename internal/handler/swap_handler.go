package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ifsertao/permuta-api/internal/dto"
	"github.com/ifsertao/permuta-api/internal/service"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
	"github.com/ifsertao/permuta-api/pkg/response"
)

// SwapHandler exposes the swap request lifecycle endpoints.
type SwapHandler struct {
	service *service.SwapService
	stats   *service.StatsService
}

// NewSwapHandler constructs a swap handler. stats may be nil; when set,
// the cached dashboard is invalidated after every state change.
func NewSwapHandler(svc *service.SwapService, stats *service.StatsService) *SwapHandler {
	return &SwapHandler{service: svc, stats: stats}
}

// Create godoc
// @Summary Open a swap request
// @Tags Swaps
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateSwapRequest true "Swap payload"
// @Success 201 {object} response.Envelope
// @Router /swaps [post]
func (h *SwapHandler) Create(c *gin.Context) {
	var req dto.CreateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	swap, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateStats(c)
	response.Created(c, swap)
}

// List godoc
// @Summary List swap requests visible to the caller
// @Tags Swaps
// @Produce json
// @Security BearerAuth
// @Param status query string false "Comma-separated statuses"
// @Param from query string false "Start date YYYY-MM-DD"
// @Param to query string false "End date YYYY-MM-DD"
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /swaps [get]
func (h *SwapHandler) List(c *gin.Context) {
	var query dto.SwapQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	swaps, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, swaps, nil)
}

// Get godoc
// @Summary Get one swap request
// @Tags Swaps
// @Produce json
// @Security BearerAuth
// @Param id path string true "Swap ID"
// @Success 200 {object} response.Envelope
// @Router /swaps/{id} [get]
func (h *SwapHandler) Get(c *gin.Context) {
	swap, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, swap, nil)
}

// RegisterMakeUp godoc
// @Summary Register the make-up session
// @Tags Swaps
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Swap ID"
// @Param payload body dto.RegisterMakeUpRequest true "Make-up payload"
// @Success 201 {object} response.Envelope
// @Router /swaps/{id}/make-up [post]
func (h *SwapHandler) RegisterMakeUp(c *gin.Context) {
	var req dto.RegisterMakeUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	makeUp, err := h.service.RegisterMakeUp(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, makeUp)
}

// Confirm godoc
// @Summary Confirm the swap as substitute
// @Tags Swaps
// @Produce json
// @Security BearerAuth
// @Param id path string true "Swap ID"
// @Success 200 {object} response.Envelope
// @Router /swaps/{id}/confirm [post]
func (h *SwapHandler) Confirm(c *gin.Context) {
	result, err := h.service.Confirm(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Changed {
		h.invalidateStats(c)
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Cancel godoc
// @Summary Cancel the swap as requester
// @Tags Swaps
// @Produce json
// @Security BearerAuth
// @Param id path string true "Swap ID"
// @Success 200 {object} response.Envelope
// @Router /swaps/{id}/cancel [post]
func (h *SwapHandler) Cancel(c *gin.Context) {
	result, err := h.service.Cancel(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Changed {
		h.invalidateStats(c)
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func (h *SwapHandler) invalidateStats(c *gin.Context) {
	if h.stats != nil {
		h.stats.Invalidate(c.Request.Context())
	}
}
