package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/database/models"
	"printfleet-system/internal/events"
	"printfleet-system/internal/logging"
	"printfleet-system/internal/observability/metrics"
)

type MaintenanceHandler struct {
	db     *gorm.DB
	events *events.Publisher
	log    *zap.Logger
}

func NewMaintenanceHandler(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *MaintenanceHandler {
	logger = logging.OrNop(logger)
	return &MaintenanceHandler{
		db:     db,
		events: events.NewPublisher(redisClient, logger),
		log:    logger,
	}
}

type CreateRecordRequest struct {
	PrinterID        int64      `json:"printer_id"`
	IssueDescription string     `json:"issue_description"`
	ReportedBy       string     `json:"reported_by"`
	ReportedAt       *time.Time `json:"reported_at,omitempty"`
}

type RepairRequest struct {
	Technician          string          `json:"technician"`
	PartsUsed           []string        `json:"parts_used"`
	RepairCost          decimal.Decimal `json:"repair_cost"`
	RepairNotes         *string         `json:"repair_notes,omitempty"`
	NextMaintenanceDate *time.Time      `json:"next_maintenance_date,omitempty"`
}

// projectPrinterStatus writes the printer status implied by a record status. A printer
// that no longer exists is skipped; its history outlives it.
func projectPrinterStatus(tx *gorm.DB, printerID int64, status models.MaintenanceStatus) error {
	var printer models.Printer
	if err := tx.Select("id", "client_id").First(&printer, printerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return tx.Model(&models.Printer{}).Where("id = ?", printerID).
		Update("status", status.PrinterStatus(printer.ClientID != nil)).Error
}

func (s *MaintenanceHandler) CreateRecord(ctx context.Context, req CreateRecordRequest) (*models.MaintenanceRecord, error) {
	if req.PrinterID == 0 {
		return nil, apperr.Validation("printer_id required")
	}
	if strings.TrimSpace(req.IssueDescription) == "" {
		return nil, apperr.Validation("issue_description required")
	}
	if strings.TrimSpace(req.ReportedBy) == "" {
		return nil, apperr.Validation("reported_by required")
	}

	reportedAt := time.Now()
	if req.ReportedAt != nil && !req.ReportedAt.IsZero() {
		reportedAt = *req.ReportedAt
	}

	record := models.MaintenanceRecord{
		PrinterID:        req.PrinterID,
		IssueDescription: strings.TrimSpace(req.IssueDescription),
		ReportedBy:       strings.TrimSpace(req.ReportedBy),
		ReportedAt:       reportedAt,
		Status:           models.MaintenancePending,
		PartsUsed:        models.StringArray{},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Printer{}).Where("id = ?", req.PrinterID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperr.NotFound("printer", req.PrinterID)
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return projectPrinterStatus(tx, record.PrinterID, record.Status)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create maintenance record: %w", err)
	}

	s.events.Publish(ctx, events.Event{
		EventType: events.MaintenanceCreated,
		PrinterID: record.PrinterID,
		EntityID:  record.ID,
		Actor:     record.ReportedBy,
	})
	return &record, nil
}

func (s *MaintenanceHandler) GetRecord(ctx context.Context, id int64) (*models.MaintenanceRecord, error) {
	var record models.MaintenanceRecord
	if err := s.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("maintenance record", id)
		}
		return nil, fmt.Errorf("get maintenance record: %w", err)
	}
	return &record, nil
}

// UpdateStatus changes only the record status and projects the matching printer status in
// the same transaction. Any status may follow any other.
func (s *MaintenanceHandler) UpdateStatus(ctx context.Context, id int64, status models.MaintenanceStatus, actor string) (*models.MaintenanceRecord, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid maintenance status %q", status)
	}

	record, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := record.Status

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MaintenanceRecord{}).Where("id = ?", id).Update("status", status).Error; err != nil {
			return err
		}
		return projectPrinterStatus(tx, record.PrinterID, status)
	})
	if err != nil {
		return nil, fmt.Errorf("update maintenance status: %w", err)
	}

	metrics.IncMaintenanceTransition(string(status))
	s.log.Info("Maintenance status changed",
		zap.Int64("record_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(status)))
	s.events.Publish(ctx, events.Event{
		EventType: events.MaintenanceStatusChange,
		PrinterID: record.PrinterID,
		EntityID:  id,
		Actor:     actor,
		Data:      map[string]string{"from": string(previous), "to": string(status)},
	})

	return s.GetRecord(ctx, id)
}

func (s *MaintenanceHandler) RecordDiagnosis(ctx context.Context, id int64, diagnosis, diagnosedBy string) (*models.MaintenanceRecord, error) {
	if strings.TrimSpace(diagnosis) == "" {
		return nil, apperr.Validation("diagnosis required")
	}
	if _, err := s.GetRecord(ctx, id); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.MaintenanceRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"diagnosis":    strings.TrimSpace(diagnosis),
		"diagnosed_by": strings.TrimSpace(diagnosedBy),
		"diagnosed_at": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("record diagnosis: %w", err)
	}
	return s.GetRecord(ctx, id)
}

func (s *MaintenanceHandler) RecordRepair(ctx context.Context, id int64, req RepairRequest) (*models.MaintenanceRecord, error) {
	if strings.TrimSpace(req.Technician) == "" {
		return nil, apperr.Validation("technician required")
	}
	if req.RepairCost.IsNegative() {
		return nil, apperr.Validation("repair_cost must not be negative")
	}

	record, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	parts := models.StringArray{}
	for _, part := range req.PartsUsed {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}

	technician := strings.TrimSpace(req.Technician)
	now := time.Now()
	record.Technician = &technician
	record.PartsUsed = parts
	record.RepairCost = req.RepairCost.Round(2)
	record.RepairNotes = req.RepairNotes
	record.RepairedAt = &now
	record.NextMaintenanceDate = req.NextMaintenanceDate

	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return nil, fmt.Errorf("record repair: %w", err)
	}
	return record, nil
}

func (s *MaintenanceHandler) SetRemarks(ctx context.Context, id int64, remarks string) (*models.MaintenanceRecord, error) {
	if _, err := s.GetRecord(ctx, id); err != nil {
		return nil, err
	}

	var value interface{}
	if trimmed := strings.TrimSpace(remarks); trimmed != "" {
		value = trimmed
	}
	if err := s.db.WithContext(ctx).Model(&models.MaintenanceRecord{}).Where("id = ?", id).
		Update("remarks", value).Error; err != nil {
		return nil, fmt.Errorf("set remarks: %w", err)
	}
	return s.GetRecord(ctx, id)
}

// ListForPrinter returns the printer's records, most recently reported first.
func (s *MaintenanceHandler) ListForPrinter(ctx context.Context, printerID int64) ([]models.MaintenanceRecord, error) {
	records := []models.MaintenanceRecord{}
	if err := s.db.WithContext(ctx).
		Where("printer_id = ?", printerID).
		Order("reported_at DESC").Order("id DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list maintenance records: %w", err)
	}
	return records, nil
}

// ListDue returns records whose next maintenance date falls on or before the given time.
func (s *MaintenanceHandler) ListDue(ctx context.Context, before time.Time) ([]models.MaintenanceRecord, error) {
	records := []models.MaintenanceRecord{}
	if err := s.db.WithContext(ctx).
		Where("next_maintenance_date IS NOT NULL AND next_maintenance_date <= ?", before).
		Order("next_maintenance_date ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list due maintenance: %w", err)
	}
	return records, nil
}
