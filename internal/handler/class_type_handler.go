package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
	"github.com/noah-isme/gym-scheduling-api/internal/service"
	appErrors "github.com/noah-isme/gym-scheduling-api/pkg/errors"
	"github.com/noah-isme/gym-scheduling-api/pkg/response"
)

type classTypeService interface {
	List(ctx context.Context, filter models.ClassTypeFilter) ([]models.ClassType, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ClassType, error)
	Create(ctx context.Context, req service.CreateClassTypeRequest) (*models.ClassType, error)
	Update(ctx context.Context, id string, req service.UpdateClassTypeRequest) (*models.ClassType, error)
	Delete(ctx context.Context, id string) error
}

// ClassTypeHandler manages class type endpoints.
type ClassTypeHandler struct {
	service classTypeService
}

// NewClassTypeHandler constructs handler.
func NewClassTypeHandler(svc classTypeService) *ClassTypeHandler {
	return &ClassTypeHandler{service: svc}
}

// List godoc
// @Summary List class types
// @Tags ClassTypes
// @Produce json
// @Param search query string false "Filter by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /class-types [get]
func (h *ClassTypeHandler) List(c *gin.Context) {
	var filter models.ClassTypeFilter
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	types, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, pagination)
}

// Get godoc
// @Summary Get class type
// @Tags ClassTypes
// @Produce json
// @Param id path string true "Class type ID"
// @Success 200 {object} response.Envelope
// @Router /class-types/{id} [get]
func (h *ClassTypeHandler) Get(c *gin.Context) {
	classType, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classType, nil)
}

// Create godoc
// @Summary Create class type
// @Tags ClassTypes
// @Accept json
// @Produce json
// @Param payload body service.CreateClassTypeRequest true "Class type payload"
// @Success 201 {object} response.Envelope
// @Router /class-types [post]
func (h *ClassTypeHandler) Create(c *gin.Context) {
	var req service.CreateClassTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	classType, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, classType)
}

// Update godoc
// @Summary Update class type
// @Tags ClassTypes
// @Accept json
// @Produce json
// @Param id path string true "Class type ID"
// @Param payload body service.UpdateClassTypeRequest true "Class type payload"
// @Success 200 {object} response.Envelope
// @Router /class-types/{id} [put]
func (h *ClassTypeHandler) Update(c *gin.Context) {
	var req service.UpdateClassTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	classType, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classType, nil)
}

// Delete godoc
// @Summary Delete class type
// @Tags ClassTypes
// @Produce json
// @Param id path string true "Class type ID"
// @Success 204
// @Router /class-types/{id} [delete]
func (h *ClassTypeHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
