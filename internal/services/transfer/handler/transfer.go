package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/database"
	"printfleet-system/internal/database/models"
	"printfleet-system/internal/events"
	"printfleet-system/internal/logging"
	"printfleet-system/internal/observability/metrics"
)

const defaultRecentLimit = 50

type TransferHandler struct {
	db     *gorm.DB
	events *events.Publisher
	log    *zap.Logger
}

func NewTransferHandler(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *TransferHandler {
	logger = logging.OrNop(logger)
	return &TransferHandler{
		db:     db,
		events: events.NewPublisher(redisClient, logger),
		log:    logger,
	}
}

// Party is one side of a transfer.
type Party struct {
	ClientID   *int64  `json:"client_id,omitempty"`
	Department *string `json:"department,omitempty"`
	User       *string `json:"user,omitempty"`
}

func (p Party) empty() bool {
	return p.ClientID == nil && blank(p.Department) && blank(p.User)
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func normalize(s *string) *string {
	if blank(s) {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}

type RecordTransferRequest struct {
	PrinterID     int64      `json:"printer_id"`
	From          Party      `json:"from"`
	To            Party      `json:"to"`
	Notes         *string    `json:"notes,omitempty"`
	TransferredBy string     `json:"transferred_by"`
	Date          *time.Time `json:"date,omitempty"`
}

// RecordTransfer appends a transfer entry and moves the printer to the receiving party in
// the same transaction. An empty From is filled from the printer's current placement.
func (s *TransferHandler) RecordTransfer(ctx context.Context, req RecordTransferRequest) (*models.TransferLog, error) {
	if req.PrinterID == 0 {
		return nil, apperr.Validation("printer_id required")
	}
	if strings.TrimSpace(req.TransferredBy) == "" {
		return nil, apperr.Validation("transferred_by required")
	}

	date := time.Now()
	if req.Date != nil && !req.Date.IsZero() {
		date = *req.Date
	}

	var entry models.TransferLog
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var printer models.Printer
		if err := tx.First(&printer, req.PrinterID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("printer", req.PrinterID)
			}
			return err
		}

		if req.To.ClientID != nil {
			var count int64
			if err := tx.Model(&models.Client{}).Where("id = ?", *req.To.ClientID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return apperr.NotFound("client", *req.To.ClientID)
			}
		}

		from := req.From
		if from.empty() {
			from = Party{ClientID: printer.ClientID, Department: printer.Department, User: printer.AssignedTo}
		}

		entry = models.TransferLog{
			PrinterID:      printer.ID,
			FromClientID:   from.ClientID,
			FromDepartment: normalize(from.Department),
			FromUser:       normalize(from.User),
			ToClientID:     req.To.ClientID,
			ToDepartment:   normalize(req.To.Department),
			ToUser:         normalize(req.To.User),
			Notes:          normalize(req.Notes),
			TransferredBy:  strings.TrimSpace(req.TransferredBy),
			Date:           date,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		status := models.PrinterAvailable
		if req.To.ClientID != nil {
			status = models.PrinterDeployed
		}
		departmentID, err := database.ResolveDepartmentID(tx, req.To.ClientID, entry.ToDepartment)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{
			"client_id":     req.To.ClientID,
			"department":    entry.ToDepartment,
			"department_id": departmentID,
			"assigned_to":   entry.ToUser,
			"status":        status,
		}
		return tx.Model(&models.Printer{}).Where("id = ?", printer.ID).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("record transfer: %w", err)
	}

	metrics.IncTransfer()
	s.log.Info("Transfer recorded",
		zap.Int64("printer_id", entry.PrinterID),
		zap.Int64("transfer_id", entry.ID),
		zap.String("transferred_by", entry.TransferredBy))
	s.events.Publish(ctx, events.Event{
		EventType: events.TransferRecorded,
		PrinterID: entry.PrinterID,
		EntityID:  entry.ID,
		Actor:     entry.TransferredBy,
		Data:      entry,
	})

	return &entry, nil
}

// ListTransfersForPrinter returns the printer's history, newest first.
func (s *TransferHandler) ListTransfersForPrinter(ctx context.Context, printerID int64) ([]models.TransferLog, error) {
	transfers := []models.TransferLog{}
	if err := s.db.WithContext(ctx).
		Where("printer_id = ?", printerID).
		Order("date DESC").Order("id DESC").
		Find(&transfers).Error; err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return transfers, nil
}

func (s *TransferHandler) ListRecentTransfers(ctx context.Context, limit int) ([]models.TransferLog, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultRecentLimit
	}

	transfers := []models.TransferLog{}
	if err := s.db.WithContext(ctx).
		Order("date DESC").Order("id DESC").
		Limit(limit).
		Find(&transfers).Error; err != nil {
		return nil, fmt.Errorf("list recent transfers: %w", err)
	}
	return transfers, nil
}
