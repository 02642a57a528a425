package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printfleet-system/internal/database/models"
	toner "printfleet-system/internal/services/toner/handler"
)

type TonerHTTPHandler struct {
	responder
	toners *toner.TonerHandler
}

func NewTonerHTTPHandler(toners *toner.TonerHandler, logger *zap.Logger) *TonerHTTPHandler {
	return &TonerHTTPHandler{
		responder: newResponder(logger),
		toners:    toners,
	}
}

type linkModelRequest struct {
	PrinterModelID int64 `json:"printer_model_id" binding:"required"`
}

type adjustStockRequest struct {
	Delta int32 `json:"delta"`
}

func (s *TonerHTTPHandler) CreateToner(c *gin.Context) {
	var req toner.TonerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	t, err := s.toners.CreateToner(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "create toner")
		return
	}
	s.created(c, t)
}

func (s *TonerHTTPHandler) UpdateToner(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid toner ID")
		return
	}

	var req toner.TonerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	t, err := s.toners.UpdateToner(c.Request.Context(), id, req)
	if err != nil {
		s.fail(c, err, "update toner")
		return
	}
	s.success(c, t)
}

func (s *TonerHTTPHandler) GetToner(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid toner ID")
		return
	}

	t, err := s.toners.GetToner(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "get toner")
		return
	}
	s.success(c, t)
}

func (s *TonerHTTPHandler) DeleteToner(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid toner ID")
		return
	}

	if err := s.toners.DeleteToner(c.Request.Context(), id); err != nil {
		s.fail(c, err, "delete toner")
		return
	}
	s.success(c, gin.H{"id": id})
}

func (s *TonerHTTPHandler) ListToners(c *gin.Context) {
	filter := toner.TonerFilter{
		Brand:  parseStringQuery(c, "brand"),
		Search: parseStringQuery(c, "search"),
	}
	if v := c.Query("color"); v != "" {
		color := models.TonerColor(v)
		filter.Color = &color
	}

	toners, err := s.toners.ListToners(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err, "list toners")
		return
	}
	s.success(c, toners)
}

func (s *TonerHTTPHandler) ListVariants(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid toner ID")
		return
	}

	variants, err := s.toners.ListVariants(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "list variants")
		return
	}
	s.success(c, variants)
}

func (s *TonerHTTPHandler) LinkModel(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid toner ID")
		return
	}

	var req linkModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	if err := s.toners.LinkModel(c.Request.Context(), id, req.PrinterModelID); err != nil {
		s.fail(c, err, "link toner")
		return
	}
	s.success(c, gin.H{"toner_id": id, "printer_model_id": req.PrinterModelID})
}

func (s *TonerHTTPHandler) UnlinkModel(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid toner ID")
		return
	}
	modelID, err := parseIDParam(c, "modelId")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid model ID")
		return
	}

	if err := s.toners.UnlinkModel(c.Request.Context(), id, modelID); err != nil {
		s.fail(c, err, "unlink toner")
		return
	}
	s.success(c, gin.H{"toner_id": id, "printer_model_id": modelID})
}

func (s *TonerHTTPHandler) CompatibleForPrinter(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid printer ID")
		return
	}

	matches, err := s.toners.CompatibleForPrinter(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "resolve compatible toners")
		return
	}
	s.success(c, matches)
}

// Store endpoints

func (s *TonerHTTPHandler) CreateProduct(c *gin.Context) {
	var req toner.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	p, err := s.toners.CreateProduct(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "create product")
		return
	}
	s.created(c, p)
}

func (s *TonerHTTPHandler) UpdateProduct(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req toner.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	p, err := s.toners.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		s.fail(c, err, "update product")
		return
	}
	s.success(c, p)
}

func (s *TonerHTTPHandler) GetProduct(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid product ID")
		return
	}

	p, err := s.toners.GetProduct(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "get product")
		return
	}
	s.success(c, p)
}

// ListProducts is the public storefront listing, so only active products are shown.
func (s *TonerHTTPHandler) ListProducts(c *gin.Context) {
	filter := toner.ProductFilter{
		Category:   parseStringQuery(c, "category"),
		InStock:    parseBoolQuery(c, "in_stock"),
		Search:     parseStringQuery(c, "search"),
		ActiveOnly: true,
	}

	products, err := s.toners.ListProducts(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err, "list products")
		return
	}
	s.success(c, products)
}

func (s *TonerHTTPHandler) AdjustStock(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	p, err := s.toners.AdjustStock(c.Request.Context(), id, req.Delta)
	if err != nil {
		s.fail(c, err, "adjust stock")
		return
	}
	s.success(c, p)
}

func (s *TonerHTTPHandler) ProductsForPrinter(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid printer ID")
		return
	}

	matches, err := s.toners.ProductsForPrinter(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "resolve compatible products")
		return
	}
	s.success(c, matches)
}
