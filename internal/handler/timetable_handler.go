package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arka-edu/school-suite-api/internal/dto"
	"github.com/arka-edu/school-suite-api/internal/models"
	"github.com/arka-edu/school-suite-api/internal/service"
	appErrors "github.com/arka-edu/school-suite-api/pkg/errors"
	"github.com/arka-edu/school-suite-api/pkg/response"
)

// TimetableHandler exposes timetable and period allocation endpoints.
type TimetableHandler struct {
	service *service.TimetableService
	export  *service.ExportService
}

// NewTimetableHandler constructs a timetable handler.
func NewTimetableHandler(svc *service.TimetableService, export *service.ExportService) *TimetableHandler {
	return &TimetableHandler{service: svc, export: export}
}

// List godoc
// @Summary List timetables
// @Tags Timetables
// @Produce json
// @Param branchId query string false "Branch ID"
// @Param academicYear query string false "Academic year"
// @Param classId query string false "Class ID"
// @Param section query string false "Section"
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var filter models.TimetableFilter
	filter.BranchID = c.Query("branchId")
	filter.AcademicYear = c.Query("academicYear")
	filter.ClassID = c.Query("classId")
	filter.Section = c.Query("section")
	filter.Status = c.Query("status")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	timetables, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetables, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get timetable detail
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	timetable, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// Create godoc
// @Summary Create timetable
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.CreateTimetableRequest true "Timetable payload"
// @Success 201 {object} response.Envelope
// @Router /timetables [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var req dto.CreateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	timetable, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, timetable)
}

// AddPeriod godoc
// @Summary Allocate the next free period
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.AddPeriodRequest false "Period metadata"
// @Success 201 {object} response.Envelope
// @Router /timetables/{id}/periods [post]
func (h *TimetableHandler) AddPeriod(c *gin.Context) {
	var req dto.AddPeriodRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	period, err := h.service.AddPeriod(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, period)
}

// AllocatePeriods godoc
// @Summary Allocate a batch of periods
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.AllocatePeriodsRequest true "Batch size"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/periods/bulk [post]
func (h *TimetableHandler) AllocatePeriods(c *gin.Context) {
	var req dto.AllocatePeriodsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.AllocatePeriods(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpdatePeriod godoc
// @Summary Update a period
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param index path int true "Period index"
// @Param payload body dto.UpdatePeriodRequest true "Period payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/periods/{index} [put]
func (h *TimetableHandler) UpdatePeriod(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "period index must be numeric"))
		return
	}
	var req dto.UpdatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	period, err := h.service.UpdatePeriod(c.Request.Context(), c.Param("id"), index, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// RemovePeriod godoc
// @Summary Remove a period
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Param index path int true "Period index"
// @Success 204 "No Content"
// @Router /timetables/{id}/periods/{index} [delete]
func (h *TimetableHandler) RemovePeriod(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "period index must be numeric"))
		return
	}
	if err := h.service.RemovePeriod(c.Request.Context(), c.Param("id"), index); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignTeacher godoc
// @Summary Assign a teacher to a period
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param index path int true "Period index"
// @Param payload body dto.AssignTeacherRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/periods/{index}/teacher [post]
func (h *TimetableHandler) AssignTeacher(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "period index must be numeric"))
		return
	}
	var req dto.AssignTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	period, err := h.service.AssignTeacher(c.Request.Context(), c.Param("id"), index, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// UpdateStatus godoc
// @Summary Update timetable status
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.UpdateTimetableStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/status [patch]
func (h *TimetableHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateTimetableStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.Status = models.TimetableStatus(strings.ToUpper(string(req.Status)))
	timetable, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// Delete godoc
// @Summary Delete timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 204 "No Content"
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export a timetable as csv or pdf
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Timetable ID"
// @Param format query string true "csv or pdf"
// @Success 200 {file} file
// @Router /timetables/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	file, err := h.export.Timetable(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
