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
	maintenance "printfleet-system/internal/services/maintenance/handler"
)

type MaintenanceHTTPHandler struct {
	responder
	maintenance *maintenance.MaintenanceHandler
}

func NewMaintenanceHTTPHandler(maintenanceService *maintenance.MaintenanceHandler, logger *zap.Logger) *MaintenanceHTTPHandler {
	return &MaintenanceHTTPHandler{
		responder:   newResponder(logger),
		maintenance: maintenanceService,
	}
}

type diagnosisRequest struct {
	Diagnosis   string `json:"diagnosis" binding:"required"`
	DiagnosedBy string `json:"diagnosed_by"`
}

type remarksRequest struct {
	Remarks string `json:"remarks"`
}

func (s *MaintenanceHTTPHandler) CreateRecord(c *gin.Context) {
	var req maintenance.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}
	if req.ReportedBy == "" {
		req.ReportedBy = middleware.Actor(c, "")
	}

	record, err := s.maintenance.CreateRecord(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "create maintenance record")
		return
	}
	s.created(c, record)
}

func (s *MaintenanceHTTPHandler) GetRecord(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid record ID")
		return
	}

	record, err := s.maintenance.GetRecord(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "get maintenance record")
		return
	}
	s.success(c, record)
}

func (s *MaintenanceHTTPHandler) ListForPrinter(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid printer ID")
		return
	}

	records, err := s.maintenance.ListForPrinter(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "list maintenance records")
		return
	}
	s.success(c, records)
}

// ListDue lists records due by ?before=, defaulting to now.
func (s *MaintenanceHTTPHandler) ListDue(c *gin.Context) {
	before, err := parseTimeQuery(c, "before")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid before date")
		return
	}
	if before == nil {
		now := time.Now()
		before = &now
	}

	records, err := s.maintenance.ListDue(c.Request.Context(), *before)
	if err != nil {
		s.fail(c, err, "list due maintenance")
		return
	}
	s.success(c, records)
}

func (s *MaintenanceHTTPHandler) UpdateStatus(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid record ID")
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	record, err := s.maintenance.UpdateStatus(c.Request.Context(), id, models.MaintenanceStatus(req.Status), middleware.Actor(c, "system"))
	if err != nil {
		s.fail(c, err, "update maintenance status")
		return
	}
	s.success(c, record)
}

func (s *MaintenanceHTTPHandler) RecordDiagnosis(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid record ID")
		return
	}

	var req diagnosisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}
	if req.DiagnosedBy == "" {
		req.DiagnosedBy = middleware.Actor(c, "")
	}

	record, err := s.maintenance.RecordDiagnosis(c.Request.Context(), id, req.Diagnosis, req.DiagnosedBy)
	if err != nil {
		s.fail(c, err, "record diagnosis")
		return
	}
	s.success(c, record)
}

func (s *MaintenanceHTTPHandler) RecordRepair(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid record ID")
		return
	}

	var req maintenance.RepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}
	if req.Technician == "" {
		req.Technician = middleware.Actor(c, "")
	}

	record, err := s.maintenance.RecordRepair(c.Request.Context(), id, req)
	if err != nil {
		s.fail(c, err, "record repair")
		return
	}
	s.success(c, record)
}

func (s *MaintenanceHTTPHandler) SetRemarks(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid record ID")
		return
	}

	var req remarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	record, err := s.maintenance.SetRemarks(c.Request.Context(), id, req.Remarks)
	if err != nil {
		s.fail(c, err, "set remarks")
		return
	}
	s.success(c, record)
}

func (s *MaintenanceHTTPHandler) GenerateReport(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid record ID")
		return
	}

	report, err := s.maintenance.GenerateServiceReport(c.Request.Context(), id, middleware.Actor(c, "system"))
	if err != nil {
		s.fail(c, err, "generate service report")
		return
	}
	s.created(c, report)
}

func (s *MaintenanceHTTPHandler) GetReport(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid record ID")
		return
	}

	report, err := s.maintenance.GetReport(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "get service report")
		return
	}
	s.success(c, report)
}

// DownloadReportPDF renders the stored snapshot; it never regenerates it.
func (s *MaintenanceHTTPHandler) DownloadReportPDF(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid record ID")
		return
	}

	report, err := s.maintenance.GetReport(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "get service report")
		return
	}
	snapshot, err := maintenance.DecodeSnapshot(report)
	if err != nil {
		s.fail(c, err, "render service report")
		return
	}
	data, err := reports.BuildServiceReportPDF(snapshot)
	if err != nil {
		s.fail(c, err, "render service report")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.ReportNumber+".pdf"))
	c.Data(http.StatusOK, "application/pdf", data)
}
