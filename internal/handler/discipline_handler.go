package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ifsertao/permuta-api/internal/models"
	"github.com/ifsertao/permuta-api/internal/service"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
	"github.com/ifsertao/permuta-api/pkg/response"
)

// DisciplineHandler exposes discipline CRUD endpoints.
type DisciplineHandler struct {
	service *service.DisciplineService
}

// NewDisciplineHandler constructs a discipline handler.
func NewDisciplineHandler(svc *service.DisciplineService) *DisciplineHandler {
	return &DisciplineHandler{service: svc}
}

// List godoc
// @Summary List disciplines
// @Tags Disciplines
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search by name"
// @Param professor_id query string false "Filter by responsible professor"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /disciplines [get]
func (h *DisciplineHandler) List(c *gin.Context) {
	var filter models.DisciplineFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.ProfessorID = c.Query("professor_id")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	disciplines, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, disciplines, pagination)
}

// Get godoc
// @Summary Get discipline
// @Tags Disciplines
// @Produce json
// @Security BearerAuth
// @Param id path string true "Discipline ID"
// @Success 200 {object} response.Envelope
// @Router /disciplines/{id} [get]
func (h *DisciplineHandler) Get(c *gin.Context) {
	discipline, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, discipline, nil)
}

// Create godoc
// @Summary Create discipline
// @Tags Disciplines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.DisciplineRequest true "Discipline payload"
// @Success 201 {object} response.Envelope
// @Router /disciplines [post]
func (h *DisciplineHandler) Create(c *gin.Context) {
	var req service.DisciplineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	discipline, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, discipline)
}

// Update godoc
// @Summary Update discipline
// @Tags Disciplines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Discipline ID"
// @Param payload body service.DisciplineRequest true "Discipline payload"
// @Success 200 {object} response.Envelope
// @Router /disciplines/{id} [put]
func (h *DisciplineHandler) Update(c *gin.Context) {
	var req service.DisciplineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	discipline, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, discipline, nil)
}

// Delete godoc
// @Summary Delete discipline
// @Tags Disciplines
// @Produce json
// @Security BearerAuth
// @Param id path string true "Discipline ID"
// @Success 204
// @Router /disciplines/{id} [delete]
func (h *DisciplineHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
