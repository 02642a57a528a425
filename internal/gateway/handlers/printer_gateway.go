package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printfleet-system/internal/database/models"
	"printfleet-system/internal/gateway/middleware"
	"printfleet-system/internal/reports"
	client "printfleet-system/internal/services/client/handler"
	printer "printfleet-system/internal/services/printer/handler"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type PrinterHTTPHandler struct {
	responder
	printers *printer.PrinterHandler
	clients  *client.ClientHandler
}

func NewPrinterHTTPHandler(printers *printer.PrinterHandler, clients *client.ClientHandler, logger *zap.Logger) *PrinterHTTPHandler {
	return &PrinterHTTPHandler{
		responder: newResponder(logger),
		printers:  printers,
		clients:   clients,
	}
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type assignClientRequest struct {
	ClientID *int64 `json:"client_id"`
}

type setTonersRequest struct {
	TonerIDs []int64 `json:"toner_ids"`
}

func (s *PrinterHTTPHandler) ImportPrinter(c *gin.Context) {
	var req printer.ImportPrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	p, err := s.printers.ImportPrinter(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "import printer")
		return
	}
	s.created(c, p)
}

func (s *PrinterHTTPHandler) ListPrinters(c *gin.Context) {
	filter := printer.PrinterFilter{
		ClientID:  parseInt64Query(c, "client_id"),
		IsForRent: parseBoolQuery(c, "is_for_rent"),
		Search:    parseStringQuery(c, "search"),
		Page:      buildPage(c),
	}
	if v := c.Query("status"); v != "" {
		status := models.PrinterStatus(v)
		filter.Status = &status
	}
	if v := c.Query("ownership"); v != "" {
		ownership := models.Ownership(v)
		filter.Ownership = &ownership
	}

	printers, page, err := s.printers.ListPrinters(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err, "list printers")
		return
	}
	s.successWithMeta(c, printers, page)
}

func (s *PrinterHTTPHandler) GetPrinter(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid printer ID")
		return
	}

	p, err := s.printers.GetPrinter(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "get printer")
		return
	}
	s.success(c, p)
}

func (s *PrinterHTTPHandler) UpdatePrinter(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid printer ID")
		return
	}

	var req printer.UpdatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	p, err := s.printers.UpdatePrinter(c.Request.Context(), id, req)
	if err != nil {
		s.fail(c, err, "update printer")
		return
	}
	s.success(c, p)
}

func (s *PrinterHTTPHandler) UpdateStatus(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid printer ID")
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	p, err := s.printers.UpdateStatus(c.Request.Context(), id, models.PrinterStatus(req.Status), middleware.Actor(c, "system"))
	if err != nil {
		s.fail(c, err, "update printer status")
		return
	}
	s.success(c, p)
}

// AssignClient sets or clears (client_id null) the printer's client.
func (s *PrinterHTTPHandler) AssignClient(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid printer ID")
		return
	}

	var req assignClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	p, err := s.printers.AssignClient(c.Request.Context(), id, req.ClientID, middleware.Actor(c, "system"))
	if err != nil {
		s.fail(c, err, "assign client")
		return
	}
	s.success(c, p)
}

func (s *PrinterHTTPHandler) SetToners(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid printer ID")
		return
	}

	var req setTonersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	p, err := s.printers.SetToners(c.Request.Context(), id, req.TonerIDs)
	if err != nil {
		s.fail(c, err, "set printer toners")
		return
	}
	s.success(c, p)
}

func (s *PrinterHTTPHandler) DeletePrinter(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid printer ID")
		return
	}

	if err := s.printers.DeletePrinter(c.Request.Context(), id); err != nil {
		s.fail(c, err, "delete printer")
		return
	}
	s.success(c, gin.H{"id": id})
}

func (s *PrinterHTTPHandler) ExportFleet(c *gin.Context) {
	ctx := c.Request.Context()

	printers, err := s.printers.ListAll(ctx)
	if err != nil {
		s.fail(c, err, "export fleet")
		return
	}
	names, err := s.clients.ClientNames(ctx)
	if err != nil {
		s.fail(c, err, "export fleet")
		return
	}

	data, err := reports.BuildFleetXLSX(printers, names)
	if err != nil {
		s.fail(c, err, "export fleet")
		return
	}

	filename := fmt.Sprintf("fleet-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
