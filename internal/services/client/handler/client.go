package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/database/models"
	"printfleet-system/internal/events"
	"printfleet-system/internal/logging"
)

type ClientHandler struct {
	db     *gorm.DB
	events *events.Publisher
	log    *zap.Logger
}

func NewClientHandler(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *ClientHandler {
	logger = logging.OrNop(logger)
	return &ClientHandler{
		db:     db,
		events: events.NewPublisher(redisClient, logger),
		log:    logger,
	}
}

type ClientRequest struct {
	Name    string  `json:"name"`
	Company *string `json:"company,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

func (r ClientRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperr.Validation("Name is required")
	}
	if r.Email != nil && *r.Email != "" && !strings.Contains(*r.Email, "@") {
		return apperr.Validation("invalid email %q", *r.Email)
	}
	return nil
}

func (r ClientRequest) apply(client *models.Client) {
	client.Name = strings.TrimSpace(r.Name)
	client.Company = r.Company
	client.Email = r.Email
	client.Phone = r.Phone
	client.Address = r.Address
	client.Notes = r.Notes
}

func (s *ClientHandler) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	if err := s.db.WithContext(ctx).Preload("Printers").Order("name ASC").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

// ClientNames maps every client id to its display name.
func (s *ClientHandler) ClientNames(ctx context.Context) (map[int64]string, error) {
	var clients []models.Client
	if err := s.db.WithContext(ctx).Select("id", "name").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("list client names: %w", err)
	}
	names := make(map[int64]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (s *ClientHandler) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	var client models.Client
	err := s.db.WithContext(ctx).
		Preload("Printers").
		Preload("Departments", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		First(&client, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("client", id)
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &client, nil
}

func (s *ClientHandler) CreateClient(ctx context.Context, req ClientRequest) (*models.Client, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var client models.Client
	req.apply(&client)
	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	client.Printers = []models.Printer{}
	return &client, nil
}

func (s *ClientHandler) UpdateClient(ctx context.Context, id int64, req ClientRequest) (*models.Client, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	client, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}

	req.apply(client)
	if err := s.db.WithContext(ctx).Omit("Printers", "Departments").Save(client).Error; err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return client, nil
}

// DeleteClient detaches every printer of the client (available again, no client or user),
// then removes the client's assignment rows, departments, closed rentals and the client
// itself. Clients with upcoming or active rentals are refused.
func (s *ClientHandler) DeleteClient(ctx context.Context, id int64, actor string) error {
	if _, err := s.GetClient(ctx, id); err != nil {
		return err
	}

	var detached int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var openRentals int64
		if err := tx.Model(&models.Rental{}).
			Where("client_id = ? AND status IN ?", id, []models.RentalStatus{models.RentalUpcoming, models.RentalActive}).
			Count(&openRentals).Error; err != nil {
			return err
		}
		if openRentals > 0 {
			return apperr.Conflict("client %d has %d open rentals", id, openRentals)
		}

		result := tx.Model(&models.Printer{}).Where("client_id = ?", id).Updates(map[string]interface{}{
			"client_id":     nil,
			"assigned_to":   nil,
			"department":    nil,
			"department_id": nil,
			"status":        models.PrinterAvailable,
		})
		if result.Error != nil {
			return result.Error
		}
		detached = result.RowsAffected

		if err := tx.Where("client_id = ?", id).Delete(&models.PrinterClientAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", id).Delete(&models.Rental{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", id).Delete(&models.Department{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Client{}, id).Error
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return err
		}
		return fmt.Errorf("delete client: %w", err)
	}

	s.log.Info("Client deleted", zap.Int64("client_id", id), zap.Int64("printers_detached", detached))
	s.events.Publish(ctx, events.Event{
		EventType: events.ClientDeleted,
		EntityID:  id,
		Actor:     actor,
		Data:      map[string]int64{"printers_detached": detached},
	})
	return nil
}

// DerivedLocations lists the distinct printer locations of a client, sorted.
func (s *ClientHandler) DerivedLocations(ctx context.Context, clientID int64) ([]string, error) {
	locations := []string{}
	err := s.db.WithContext(ctx).Model(&models.Printer{}).
		Where("client_id = ? AND location IS NOT NULL AND location <> ''", clientID).
		Distinct().
		Order("location ASC").
		Pluck("location", &locations).Error
	if err != nil {
		return nil, fmt.Errorf("derive locations: %w", err)
	}
	return locations, nil
}
