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
	catalog "printfleet-system/internal/services/catalog/handler"
)

type PrinterHandler struct {
	db      *gorm.DB
	catalog *catalog.CatalogHandler
	events  *events.Publisher
	log     *zap.Logger
}

func NewPrinterHandler(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *PrinterHandler {
	logger = logging.OrNop(logger)
	return &PrinterHandler{
		db:      db,
		catalog: catalog.NewCatalogHandler(db, redisClient, logger),
		events:  events.NewPublisher(redisClient, logger),
		log:     logger,
	}
}

type ImportPrinterRequest struct {
	ModelID      int64   `json:"model_id" binding:"required"`
	SerialNumber *string `json:"serial_number,omitempty"`
	Department   *string `json:"department,omitempty"`
	Location     *string `json:"location,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	IsForRent    bool    `json:"is_for_rent"`
}

type UpdatePrinterRequest struct {
	SerialNumber *string           `json:"serial_number,omitempty"`
	Location     *string           `json:"location,omitempty"`
	Department   *string           `json:"department,omitempty"`
	DepartmentID *int64            `json:"department_id,omitempty"`
	AssignedTo   *string           `json:"assigned_to,omitempty"`
	Notes        *string           `json:"notes,omitempty"`
	Ownership    *models.Ownership `json:"ownership,omitempty"`
	ClientID     *int64            `json:"client_id,omitempty"`
	IsForRent    *bool             `json:"is_for_rent,omitempty"`
}

type PrinterFilter struct {
	Status    *models.PrinterStatus
	Ownership *models.Ownership
	ClientID  *int64
	IsForRent *bool
	Search    *string
	Page      database.Page
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ImportPrinter creates a fleet printer from a catalog model. The make, series and model
// names are copied onto the printer so later catalog edits do not rewrite fleet history.
func (s *PrinterHandler) ImportPrinter(ctx context.Context, req ImportPrinterRequest) (*models.Printer, error) {
	if req.ModelID == 0 {
		return nil, apperr.Validation("model_id required")
	}

	details, err := s.catalog.GetModelDetails(ctx, req.ModelID)
	if err != nil {
		return nil, err
	}

	modelID := details.ModelID
	printer := models.Printer{
		Make:         details.Make,
		Series:       details.Series,
		Model:        details.Model,
		ModelID:      &modelID,
		SerialNumber: emptyToNil(req.SerialNumber),
		Status:       models.PrinterAvailable,
		Ownership:    models.OwnershipSystemAsset,
		Department:   emptyToNil(req.Department),
		Location:     emptyToNil(req.Location),
		Notes:        emptyToNil(req.Notes),
		IsForRent:    req.IsForRent,
	}

	if err := s.db.WithContext(ctx).Create(&printer).Error; err != nil {
		return nil, fmt.Errorf("import printer: %w", err)
	}

	metrics.IncPrinterImported()
	s.log.Info("Printer imported",
		zap.Int64("printer_id", printer.ID),
		zap.String("make", printer.Make),
		zap.String("model", printer.Model))

	return &printer, nil
}

func (s *PrinterHandler) ListPrinters(ctx context.Context, filter PrinterFilter) ([]models.Printer, database.PageResult, error) {
	query := s.db.WithContext(ctx).Model(&models.Printer{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Ownership != nil {
		query = query.Where("ownership = ?", *filter.Ownership)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.IsForRent != nil {
		query = query.Where("is_for_rent = ?", *filter.IsForRent)
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		query = query.Where(
			"LOWER(make) LIKE ? OR LOWER(model) LIKE ? OR LOWER(serial_number) LIKE ? OR LOWER(location) LIKE ?",
			searchTerm, searchTerm, searchTerm, searchTerm,
		)
	}

	var printers []models.Printer
	page, err := database.Paginate(query.Order("id ASC"), filter.Page, &printers)
	if err != nil {
		return nil, database.PageResult{}, fmt.Errorf("list printers: %w", err)
	}
	return printers, page, nil
}

// ListAll returns the whole fleet ordered by id, for exports.
func (s *PrinterHandler) ListAll(ctx context.Context) ([]models.Printer, error) {
	var printers []models.Printer
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&printers).Error; err != nil {
		return nil, fmt.Errorf("list printers: %w", err)
	}
	return printers, nil
}

func (s *PrinterHandler) GetPrinter(ctx context.Context, id int64) (*models.Printer, error) {
	var printer models.Printer
	if err := s.db.WithContext(ctx).Preload("Toners").First(&printer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("printer", id)
		}
		return nil, fmt.Errorf("get printer: %w", err)
	}
	return &printer, nil
}

// UpdateStatus accepts any known status from any other status.
func (s *PrinterHandler) UpdateStatus(ctx context.Context, id int64, status models.PrinterStatus, actor string) (*models.Printer, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid printer status %q", status)
	}

	printer, err := s.GetPrinter(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := printer.Status

	if err := s.db.WithContext(ctx).Model(&models.Printer{}).Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("update printer status: %w", err)
	}
	printer.Status = status

	s.events.Publish(ctx, events.Event{
		EventType: events.PrinterStatusChanged,
		PrinterID: id,
		EntityID:  id,
		Actor:     actor,
		Data:      map[string]string{"from": string(previous), "to": string(status)},
	})
	return printer, nil
}

// AssignClient is the quick-assign path: it moves the printer to or from a client without
// writing a transfer log entry.
func (s *PrinterHandler) AssignClient(ctx context.Context, id int64, clientID *int64, assignedBy string) (*models.Printer, error) {
	current, err := s.GetPrinter(ctx, id)
	if err != nil {
		return nil, err
	}

	if clientID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", *clientID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check client: %w", err)
		}
		if count == 0 {
			return nil, apperr.NotFound("client", *clientID)
		}
	}

	updates := map[string]interface{}{
		"client_id": clientID,
		"status":    models.PrinterAvailable,
	}
	if clientID != nil {
		updates["status"] = models.PrinterDeployed
	}
	// Department and user belong to the previous client.
	if !sameClient(current.ClientID, clientID) {
		updates["department_id"] = nil
		updates["department"] = nil
		updates["assigned_to"] = nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Printer{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("printer_id = ?", id).Delete(&models.PrinterClientAssignment{}).Error; err != nil {
			return err
		}
		if clientID == nil {
			return nil
		}
		assignment := models.PrinterClientAssignment{
			PrinterID:  id,
			ClientID:   *clientID,
			AssignedBy: emptyToNil(&assignedBy),
			AssignedAt: time.Now(),
		}
		return tx.Create(&assignment).Error
	})
	if err != nil {
		return nil, fmt.Errorf("assign client: %w", err)
	}

	s.events.Publish(ctx, events.Event{
		EventType: events.PrinterAssigned,
		PrinterID: id,
		EntityID:  id,
		Actor:     assignedBy,
		Data:      map[string]interface{}{"client_id": clientID},
	})
	return s.GetPrinter(ctx, id)
}

func (s *PrinterHandler) UpdatePrinter(ctx context.Context, id int64, req UpdatePrinterRequest) (*models.Printer, error) {
	printer, err := s.GetPrinter(ctx, id)
	if err != nil {
		return nil, err
	}

	clientChanged := req.ClientID != nil && !sameClient(printer.ClientID, req.ClientID)
	if req.ClientID != nil {
		printer.ClientID = req.ClientID
	}
	if clientChanged {
		printer.Department = nil
		printer.DepartmentID = nil
		printer.AssignedTo = nil
	}
	if req.Ownership != nil {
		if !req.Ownership.Valid() {
			return nil, apperr.Validation("invalid ownership %q", *req.Ownership)
		}
		printer.Ownership = *req.Ownership
	}
	if printer.Ownership == models.OwnershipClientOwned && printer.ClientID == nil {
		return nil, apperr.Validation("client_owned printers require a client_id")
	}

	if req.SerialNumber != nil {
		printer.SerialNumber = emptyToNil(req.SerialNumber)
	}
	if req.Location != nil {
		printer.Location = emptyToNil(req.Location)
	}
	if req.Department != nil {
		printer.Department = emptyToNil(req.Department)
	}
	if req.DepartmentID != nil {
		department, err := s.clientDepartment(ctx, printer.ClientID, *req.DepartmentID)
		if err != nil {
			return nil, err
		}
		printer.DepartmentID = &department.ID
		printer.Department = &department.Name
	} else if req.Department != nil || clientChanged {
		departmentID, err := database.ResolveDepartmentID(s.db.WithContext(ctx), printer.ClientID, printer.Department)
		if err != nil {
			return nil, fmt.Errorf("resolve department: %w", err)
		}
		printer.DepartmentID = departmentID
	}
	if req.AssignedTo != nil {
		printer.AssignedTo = emptyToNil(req.AssignedTo)
	}
	if req.Notes != nil {
		printer.Notes = emptyToNil(req.Notes)
	}
	if req.IsForRent != nil {
		printer.IsForRent = *req.IsForRent
	}

	if err := s.db.WithContext(ctx).Omit("Toners").Save(printer).Error; err != nil {
		return nil, fmt.Errorf("update printer: %w", err)
	}
	return printer, nil
}

// clientDepartment loads a department and checks it belongs to the printer's client.
func (s *PrinterHandler) clientDepartment(ctx context.Context, clientID *int64, departmentID int64) (*models.Department, error) {
	var department models.Department
	if err := s.db.WithContext(ctx).First(&department, departmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("department", departmentID)
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	if clientID == nil || department.ClientID != *clientID {
		return nil, apperr.Validation("department %d does not belong to the printer's client", departmentID)
	}
	return &department, nil
}

// SetToners replaces the printer's toner set.
func (s *PrinterHandler) SetToners(ctx context.Context, id int64, tonerIDs []int64) (*models.Printer, error) {
	printer, err := s.GetPrinter(ctx, id)
	if err != nil {
		return nil, err
	}

	toners := []models.Toner{}
	if len(tonerIDs) > 0 {
		if err := s.db.WithContext(ctx).Where("id IN ?", tonerIDs).Find(&toners).Error; err != nil {
			return nil, fmt.Errorf("load toners: %w", err)
		}
		if missing := missingIDs(tonerIDs, toners); len(missing) > 0 {
			return nil, apperr.Validation("unknown toner ids: %v", missing)
		}
	}

	association := s.db.WithContext(ctx).Model(printer).Association("Toners")
	if len(toners) == 0 {
		err = association.Clear()
	} else {
		err = association.Replace(toners)
	}
	if err != nil {
		return nil, fmt.Errorf("set toners: %w", err)
	}
	return s.GetPrinter(ctx, id)
}

func missingIDs(want []int64, found []models.Toner) []int64 {
	have := make(map[int64]bool, len(found))
	for _, t := range found {
		have[t.ID] = true
	}
	var missing []int64
	for _, id := range want {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

// DeletePrinter removes the printer with its toner links, assignment rows and closed
// rentals. Transfer and maintenance history stays.
func (s *PrinterHandler) DeletePrinter(ctx context.Context, id int64) error {
	printer, err := s.GetPrinter(ctx, id)
	if err != nil {
		return err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var openRentals int64
	if err := tx.Model(&models.Rental{}).
		Where("printer_id = ? AND status IN ?", id, []models.RentalStatus{models.RentalUpcoming, models.RentalActive}).
		Count(&openRentals).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("check rentals: %w", err)
	}
	if openRentals > 0 {
		tx.Rollback()
		return apperr.Conflict("printer %d has %d open rentals", id, openRentals)
	}

	if err := tx.Where("printer_id = ?", id).Delete(&models.Rental{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("delete rentals: %w", err)
	}
	if err := tx.Where("printer_id = ?", id).Delete(&models.PrinterClientAssignment{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("delete assignments: %w", err)
	}
	if err := tx.Model(printer).Association("Toners").Clear(); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear toners: %w", err)
	}
	if err := tx.Delete(&models.Printer{}, id).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("delete printer: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit delete printer: %w", err)
	}

	s.log.Info("Printer deleted", zap.Int64("printer_id", id))
	return nil
}

func sameClient(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
