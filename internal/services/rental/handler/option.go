package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/database/models"
)

type RentalOptionRequest struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	MonthlyRate decimal.Decimal `json:"monthly_rate"`
	MinMonths   int32           `json:"min_months"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

func (req RentalOptionRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return apperr.Validation("Name is required")
	}
	if req.MonthlyRate.IsNegative() {
		return apperr.Validation("monthly_rate must not be negative")
	}
	if req.MinMonths < 0 {
		return apperr.Validation("min_months must not be negative")
	}
	return nil
}

func (s *RentalHandler) ListOptions(ctx context.Context, activeOnly bool) ([]models.RentalOption, error) {
	query := s.db.WithContext(ctx).Model(&models.RentalOption{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	options := []models.RentalOption{}
	if err := query.Order("monthly_rate ASC").Order("id ASC").Find(&options).Error; err != nil {
		return nil, fmt.Errorf("list rental options: %w", err)
	}
	return options, nil
}

func (s *RentalHandler) CreateOption(ctx context.Context, req RentalOptionRequest) (*models.RentalOption, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	option := models.RentalOption{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		MonthlyRate: req.MonthlyRate.Round(2),
		MinMonths:   req.MinMonths,
		IsActive:    true,
	}
	if req.IsActive != nil {
		option.IsActive = *req.IsActive
	}

	if err := s.db.WithContext(ctx).Create(&option).Error; err != nil {
		return nil, fmt.Errorf("create rental option: %w", err)
	}
	return &option, nil
}

func (s *RentalHandler) UpdateOption(ctx context.Context, id int64, req RentalOptionRequest) (*models.RentalOption, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var option models.RentalOption
	if err := s.db.WithContext(ctx).First(&option, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("rental option", id)
		}
		return nil, fmt.Errorf("get rental option: %w", err)
	}

	option.Name = strings.TrimSpace(req.Name)
	option.Description = req.Description
	option.MonthlyRate = req.MonthlyRate.Round(2)
	option.MinMonths = req.MinMonths
	if req.IsActive != nil {
		option.IsActive = *req.IsActive
	}

	if err := s.db.WithContext(ctx).Save(&option).Error; err != nil {
		return nil, fmt.Errorf("update rental option: %w", err)
	}
	return &option, nil
}
