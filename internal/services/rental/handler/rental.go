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
	"printfleet-system/internal/database/models"
	"printfleet-system/internal/events"
	"printfleet-system/internal/logging"
	"printfleet-system/internal/observability/metrics"
)

type RentalHandler struct {
	db     *gorm.DB
	events *events.Publisher
	log    *zap.Logger
}

func NewRentalHandler(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *RentalHandler {
	logger = logging.OrNop(logger)
	return &RentalHandler{
		db:     db,
		events: events.NewPublisher(redisClient, logger),
		log:    logger,
	}
}

// ClientInfo names an existing client or describes a new one.
type ClientInfo struct {
	ClientID *int64  `json:"client_id,omitempty"`
	Name     string  `json:"name"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Company  *string `json:"company,omitempty"`
}

type CreateRentalRequest struct {
	Client         ClientInfo `json:"client"`
	PrinterID      int64      `json:"printer_id"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        time.Time  `json:"end_date"`
	RentalOptionID *int64     `json:"rental_option_id,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

type RentalFilter struct {
	Status    *models.RentalStatus
	PrinterID *int64
	ClientID  *int64
}

var openStatuses = []models.RentalStatus{models.RentalUpcoming, models.RentalActive}

// CreateRental books a printer as upcoming. A new client row is created when the request
// carries no client id. Overlapping bookings are accepted.
func (s *RentalHandler) CreateRental(ctx context.Context, req CreateRentalRequest) (*models.Rental, error) {
	if req.PrinterID == 0 {
		return nil, apperr.Validation("printer_id required")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, apperr.Validation("start_date and end_date required")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, apperr.Validation("end_date must not be before start_date")
	}
	if req.Client.ClientID == nil && strings.TrimSpace(req.Client.Name) == "" {
		return nil, apperr.Validation("client_id or client name required")
	}

	rental := models.Rental{
		PrinterID:      req.PrinterID,
		RentalOptionID: req.RentalOptionID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Status:         models.RentalUpcoming,
		Notes:          req.Notes,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Printer{}, req.PrinterID, "printer"); err != nil {
			return err
		}

		if req.RentalOptionID != nil {
			var option models.RentalOption
			if err := tx.First(&option, *req.RentalOptionID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("rental option", *req.RentalOptionID)
				}
				return err
			}
			if !option.IsActive {
				return apperr.Validation("rental option %d is not active", option.ID)
			}
		}

		if req.Client.ClientID != nil {
			if err := mustExist(tx, &models.Client{}, *req.Client.ClientID, "client"); err != nil {
				return err
			}
			rental.ClientID = *req.Client.ClientID
		} else {
			client := models.Client{
				Name:    strings.TrimSpace(req.Client.Name),
				Email:   req.Client.Email,
				Phone:   req.Client.Phone,
				Company: req.Client.Company,
			}
			if err := tx.Create(&client).Error; err != nil {
				return err
			}
			rental.ClientID = client.ID
		}

		return tx.Create(&rental).Error
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("create rental: %w", err)
	}

	metrics.IncRentalCreated()
	s.events.Publish(ctx, events.Event{
		EventType: events.RentalCreated,
		PrinterID: rental.PrinterID,
		EntityID:  rental.ID,
		Data:      map[string]interface{}{"client_id": rental.ClientID, "start_date": rental.StartDate, "end_date": rental.EndDate},
	})
	return s.GetRental(ctx, rental.ID)
}

func mustExist(tx *gorm.DB, model interface{}, id int64, entity string) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}

func (s *RentalHandler) GetRental(ctx context.Context, id int64) (*models.Rental, error) {
	var rental models.Rental
	err := s.db.WithContext(ctx).
		Preload("Printer").Preload("Client").Preload("RentalOption").
		First(&rental, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("rental", id)
		}
		return nil, fmt.Errorf("get rental: %w", err)
	}
	return &rental, nil
}

func (s *RentalHandler) ListRentals(ctx context.Context, filter RentalFilter) ([]models.Rental, error) {
	query := s.db.WithContext(ctx).Model(&models.Rental{}).
		Preload("Printer").Preload("Client").Preload("RentalOption")

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PrinterID != nil {
		query = query.Where("printer_id = ?", *filter.PrinterID)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}

	rentals := []models.Rental{}
	if err := query.Order("start_date DESC").Order("id DESC").Find(&rentals).Error; err != nil {
		return nil, fmt.Errorf("list rentals: %w", err)
	}
	return rentals, nil
}

func (s *RentalHandler) UpdateRentalStatus(ctx context.Context, id int64, status models.RentalStatus) (*models.Rental, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid rental status %q", status)
	}
	if _, err := s.GetRental(ctx, id); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Rental{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("update rental status: %w", err)
	}
	return s.GetRental(ctx, id)
}

// AttachDocuments stores the agreement and signature locations. Empty values leave the
// current value in place.
func (s *RentalHandler) AttachDocuments(ctx context.Context, id int64, agreementURL, signatureURL string) (*models.Rental, error) {
	if _, err := s.GetRental(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if v := strings.TrimSpace(agreementURL); v != "" {
		updates["agreement_url"] = v
	}
	if v := strings.TrimSpace(signatureURL); v != "" {
		updates["signature_url"] = v
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("agreement_url or signature_url required")
	}

	if err := s.db.WithContext(ctx).Model(&models.Rental{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("attach documents: %w", err)
	}
	return s.GetRental(ctx, id)
}

// Overlapping lists open bookings of the printer that intersect [start, end]. Nothing
// enforces exclusivity; callers use this to warn about double bookings.
func (s *RentalHandler) Overlapping(ctx context.Context, printerID int64, start, end time.Time) ([]models.Rental, error) {
	if end.Before(start) {
		return nil, apperr.Validation("end must not be before start")
	}

	rentals := []models.Rental{}
	if err := s.db.WithContext(ctx).
		Where("printer_id = ? AND status IN ? AND start_date <= ? AND end_date >= ?", printerID, openStatuses, end, start).
		Order("start_date ASC").
		Find(&rentals).Error; err != nil {
		return nil, fmt.Errorf("find overlapping rentals: %w", err)
	}
	return rentals, nil
}

type RefreshResult struct {
	Activated int64 `json:"activated"`
	Completed int64 `json:"completed"`
}

// RefreshStatuses moves started bookings to active and ended ones to completed, and keeps
// the rented printers' status in step. Cancelled bookings are never touched.
func (s *RentalHandler) RefreshStatuses(ctx context.Context, now time.Time) (*RefreshResult, error) {
	result := &RefreshResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ending []int64
		if err := tx.Model(&models.Rental{}).
			Where("status IN ? AND end_date < ?", openStatuses, now).
			Pluck("printer_id", &ending).Error; err != nil {
			return err
		}
		completed := tx.Model(&models.Rental{}).
			Where("status IN ? AND end_date < ?", openStatuses, now).
			Update("status", models.RentalCompleted)
		if completed.Error != nil {
			return completed.Error
		}
		result.Completed = completed.RowsAffected

		var starting []int64
		if err := tx.Model(&models.Rental{}).
			Where("status = ? AND start_date <= ?", models.RentalUpcoming, now).
			Pluck("printer_id", &starting).Error; err != nil {
			return err
		}
		activated := tx.Model(&models.Rental{}).
			Where("status = ? AND start_date <= ?", models.RentalUpcoming, now).
			Update("status", models.RentalActive)
		if activated.Error != nil {
			return activated.Error
		}
		result.Activated = activated.RowsAffected

		if len(ending) > 0 {
			if err := tx.Model(&models.Printer{}).
				Where("id IN ? AND status = ?", ending, models.PrinterRented).
				Where("NOT EXISTS (SELECT 1 FROM rentals WHERE rentals.printer_id = printers.id AND rentals.status = ?)", models.RentalActive).
				Update("status", models.PrinterAvailable).Error; err != nil {
				return err
			}
		}
		if len(starting) > 0 {
			if err := tx.Model(&models.Printer{}).
				Where("id IN ? AND status = ?", starting, models.PrinterAvailable).
				Update("status", models.PrinterRented).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("refresh rental statuses: %w", err)
	}

	if result.Activated > 0 || result.Completed > 0 {
		s.log.Info("Rental statuses refreshed",
			zap.Int64("activated", result.Activated),
			zap.Int64("completed", result.Completed))
	}
	return result, nil
}
