package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ifsertao/permuta-api/internal/dto"
	"github.com/ifsertao/permuta-api/internal/service"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
	"github.com/ifsertao/permuta-api/pkg/response"
)

// ReportHandler streams swap reports and receipts.
type ReportHandler struct {
	service *service.ExportService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(svc *service.ExportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Export godoc
// @Summary Export the swap list
// @Tags Reports
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string true "xlsx | pdf | csv"
// @Param status query string false "Comma-separated statuses"
// @Param from query string false "Start date YYYY-MM-DD"
// @Param to query string false "End date YYYY-MM-DD"
// @Success 200 {file} binary
// @Router /reports/swaps [get]
func (h *ReportHandler) Export(c *gin.Context) {
	var query dto.SwapQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "xlsx"))

	result, err := h.service.SwapReport(c.Request.Context(), query, format, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	streamFile(c, result)
}

// Receipt godoc
// @Summary Download the receipt PDF for a swap
// @Tags Reports
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Swap ID"
// @Success 200 {file} binary
// @Router /swaps/{id}/receipt [get]
func (h *ReportHandler) Receipt(c *gin.Context) {
	result, err := h.service.Receipt(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	streamFile(c, result)
}

func streamFile(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
