package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/database/models"
	"printfleet-system/internal/events"
	"printfleet-system/internal/observability/metrics"
)

func newReportNumber(now time.Time) string {
	return fmt.Sprintf("SR-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

// GenerateServiceReport snapshots the record and its printer into the record's single
// report row. Regenerating overwrites the snapshot and keeps the report number.
func (s *MaintenanceHandler) GenerateServiceReport(ctx context.Context, recordID int64, generatedBy string) (*models.MaintenanceReport, error) {
	record, err := s.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	printerSnapshot, err := s.snapshotPrinter(ctx, record.PrinterID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	reportNumber := newReportNumber(now)
	var existing models.MaintenanceReport
	err = s.db.WithContext(ctx).Where("maintenance_record_id = ?", recordID).First(&existing).Error
	switch {
	case err == nil:
		reportNumber = existing.ReportNumber
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("load report: %w", err)
	}

	snapshot := models.ServiceReportSnapshot{
		ReportNumber: reportNumber,
		GeneratedBy:  generatedBy,
		GeneratedAt:  now,
		Record:       *record,
		Printer:      *printerSnapshot,
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode report snapshot: %w", err)
	}

	report := models.MaintenanceReport{
		MaintenanceRecordID: recordID,
		ReportNumber:        reportNumber,
		Snapshot:            datatypes.JSON(payload),
		GeneratedBy:         generatedBy,
		GeneratedAt:         now,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "maintenance_record_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"report_number", "snapshot", "generated_by", "generated_at", "updated_at"}),
	}).Create(&report).Error
	if err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	metrics.IncReportGenerated()
	s.log.Info("Service report generated",
		zap.Int64("record_id", recordID),
		zap.String("report_number", reportNumber))
	s.events.Publish(ctx, events.Event{
		EventType: events.ServiceReportGenerated,
		PrinterID: record.PrinterID,
		EntityID:  recordID,
		Actor:     generatedBy,
		Data:      map[string]string{"report_number": reportNumber},
	})

	return s.GetReport(ctx, recordID)
}

func (s *MaintenanceHandler) snapshotPrinter(ctx context.Context, printerID int64) (*models.ServiceReportPrinter, error) {
	var printer models.Printer
	if err := s.db.WithContext(ctx).First(&printer, printerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.ServiceReportPrinter{ID: printerID, Status: models.PrinterUnknown}, nil
		}
		return nil, fmt.Errorf("load printer: %w", err)
	}

	snapshot := &models.ServiceReportPrinter{
		ID:           printer.ID,
		Make:         printer.Make,
		Series:       printer.Series,
		Model:        printer.Model,
		SerialNumber: printer.SerialNumber,
		Status:       printer.Status,
		ClientID:     printer.ClientID,
		Department:   printer.Department,
		Location:     printer.Location,
	}
	if printer.ClientID != nil {
		var client models.Client
		if err := s.db.WithContext(ctx).Select("id", "name").First(&client, *printer.ClientID).Error; err == nil {
			snapshot.ClientName = &client.Name
		}
	}
	return snapshot, nil
}

func (s *MaintenanceHandler) GetReport(ctx context.Context, recordID int64) (*models.MaintenanceReport, error) {
	var report models.MaintenanceReport
	if err := s.db.WithContext(ctx).Where("maintenance_record_id = ?", recordID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("service report for record", recordID)
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

// DecodeSnapshot parses a stored report snapshot.
func DecodeSnapshot(report *models.MaintenanceReport) (*models.ServiceReportSnapshot, error) {
	var snapshot models.ServiceReportSnapshot
	if err := json.Unmarshal(report.Snapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("decode report snapshot: %w", err)
	}
	return &snapshot, nil
}
