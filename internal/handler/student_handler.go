package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-reg-api/internal/dto"
	"github.com/noah-isme/course-reg-api/internal/models"
	"github.com/noah-isme/course-reg-api/internal/service"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
	"github.com/noah-isme/course-reg-api/pkg/response"
)

// StudentHandler wires HTTP endpoints to the student record service.
type StudentHandler struct {
	service *service.StudentService
}

// NewStudentHandler creates a new handler.
func NewStudentHandler(svc *service.StudentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// List godoc
// @Summary List student records
// @Description List NISN admission records with filters and pagination
// @Tags Students
// @Produce json
// @Param admission_type query string false "Admission type"
// @Param gender query string false "Gender"
// @Param religion query string false "Religion"
// @Param district query string false "District"
// @Param search query string false "Search in name and NISN"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	filter := models.StudentFilter{
		AdmissionType:  models.AdmissionType(c.Query("admission_type")),
		Gender:         models.Gender(c.Query("gender")),
		Religion:       models.Religion(c.Query("religion")),
		District:       c.Query("district"),
		PreviousSchool: c.Query("previous_school"),
		Search:         c.Query("search"),
		Page:           page,
		PageSize:       pageSize,
		SortBy:         c.Query("sort_by"),
		SortOrder:      c.Query("sort_order"),
	}

	students, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get a student record
// @Description Fetch one student record by ID
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, student, nil)
}

// GetByNISN godoc
// @Summary Get a student record by NISN
// @Description Fetch one student record by national student number
// @Tags Students
// @Produce json
// @Param nisn path string true "NISN"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/nisn/{nisn} [get]
func (h *StudentHandler) GetByNISN(c *gin.Context) {
	student, err := h.service.GetByNISN(c.Request.Context(), c.Param("nisn"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Create a student record
// @Description Register a new NISN admission record
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}

	student, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, student)
}

// Update godoc
// @Summary Update a student record
// @Description Partially edit a student record
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req dto.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}

	student, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete a student record
// @Description Remove a student record and its stored card
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// IssueCard godoc
// @Summary Issue a student card
// @Description Render the printable identity card and return a signed download link
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/card [get]
func (h *StudentHandler) IssueCard(c *gin.Context) {
	var issuedBy *string
	if claims := claimsFromContext(c); claims != nil {
		issuedBy = &claims.UserID
	}

	card, err := h.service.IssueCard(c.Request.Context(), c.Param("id"), issuedBy)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, card, nil)
}

// DownloadCard godoc
// @Summary Download a student card
// @Description Stream the card PDF referenced by a signed token
// @Tags Students
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/cards/download [get]
func (h *StudentHandler) DownloadCard(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, filename, err := h.service.OpenCard(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat card file"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", file, nil)
}

// VerifyQR godoc
// @Summary Verify a card QR code
// @Description Resolve the QR identifier printed on a card back to its student
// @Tags Students
// @Produce json
// @Param qr path string true "QR identifier"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/verify/{qr} [get]
func (h *StudentHandler) VerifyQR(c *gin.Context) {
	student, err := h.service.VerifyQR(c.Request.Context(), c.Param("qr"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, student, nil)
}

// ExportCSV godoc
// @Summary Export student roster
// @Description Download the whole student roster as CSV
// @Tags Students
// @Produce text/csv
// @Success 200 {file} file
// @Security BearerAuth
// @Router /students/export [get]
func (h *StudentHandler) ExportCSV(c *gin.Context) {
	payload, filename, err := h.service.ExportCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}
