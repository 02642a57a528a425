package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	catalog "printfleet-system/internal/services/catalog/handler"
)

type CatalogHTTPHandler struct {
	responder
	catalog *catalog.CatalogHandler
}

func NewCatalogHTTPHandler(catalogService *catalog.CatalogHandler, logger *zap.Logger) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{
		responder: newResponder(logger),
		catalog:   catalogService,
	}
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *CatalogHTTPHandler) ListMakes(c *gin.Context) {
	makes, err := s.catalog.ListMakes(c.Request.Context())
	if err != nil {
		s.fail(c, err, "list makes")
		return
	}
	s.success(c, makes)
}

func (s *CatalogHTTPHandler) CreateMake(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	printerMake, err := s.catalog.CreateMake(c.Request.Context(), req.Name)
	if err != nil {
		s.fail(c, err, "create make")
		return
	}
	s.created(c, printerMake)
}

func (s *CatalogHTTPHandler) ListSeries(c *gin.Context) {
	makeID, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid make ID")
		return
	}

	series, err := s.catalog.ListSeries(c.Request.Context(), makeID)
	if err != nil {
		s.fail(c, err, "list series")
		return
	}
	s.success(c, series)
}

func (s *CatalogHTTPHandler) CreateSeries(c *gin.Context) {
	makeID, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid make ID")
		return
	}

	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	series, err := s.catalog.CreateSeries(c.Request.Context(), makeID, req.Name)
	if err != nil {
		s.fail(c, err, "create series")
		return
	}
	s.created(c, series)
}

func (s *CatalogHTTPHandler) ListModels(c *gin.Context) {
	seriesID, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid series ID")
		return
	}

	printerModels, err := s.catalog.ListModels(c.Request.Context(), seriesID)
	if err != nil {
		s.fail(c, err, "list models")
		return
	}
	s.success(c, printerModels)
}

func (s *CatalogHTTPHandler) CreateModel(c *gin.Context) {
	seriesID, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid series ID")
		return
	}

	var req catalog.CreateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}
	req.SeriesID = seriesID

	model, err := s.catalog.CreateModel(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "create model")
		return
	}
	s.created(c, model)
}

func (s *CatalogHTTPHandler) GetModel(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid model ID")
		return
	}

	model, err := s.catalog.GetModel(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "get model")
		return
	}
	s.success(c, model)
}

func (s *CatalogHTTPHandler) GetModelDetails(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid model ID")
		return
	}

	details, err := s.catalog.GetModelDetails(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "get model details")
		return
	}
	s.success(c, details)
}

func (s *CatalogHTTPHandler) UpdateModel(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid model ID")
		return
	}

	var req catalog.UpdateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	model, err := s.catalog.UpdateModel(c.Request.Context(), id, req)
	if err != nil {
		s.fail(c, err, "update model")
		return
	}
	s.success(c, model)
}

// Reselect resolves the cascading make/series/model pickers after one of them changed.
func (s *CatalogHTTPHandler) Reselect(c *gin.Context) {
	var sel catalog.Selection
	if err := c.ShouldBindJSON(&sel); err != nil {
		s.badBody(c, err)
		return
	}

	result, err := s.catalog.Reselect(c.Request.Context(), sel)
	if err != nil {
		s.fail(c, err, "resolve selection")
		return
	}
	s.success(c, result)
}
