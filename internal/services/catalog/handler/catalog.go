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
	"printfleet-system/internal/cache"
	"printfleet-system/internal/database/models"
	"printfleet-system/internal/logging"
)

const (
	MAKES_CACHE_KEY      = "catalog:makes"
	SERIES_CACHE_PREFIX  = "catalog:series:"
	MODELS_CACHE_PREFIX  = "catalog:models:"
	CATALOG_CACHE_PREFIX = "catalog:"
	MODEL_DETAILS_PREFIX = "catalog:model-details:"
)

type CatalogHandler struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *zap.Logger
}

func NewCatalogHandler(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *CatalogHandler {
	logger = logging.OrNop(logger)
	return &CatalogHandler{
		db:    db,
		cache: cache.New(redisClient, logger),
		log:   logger,
	}
}

// ModelDetails is a model with its series and make names resolved.
type ModelDetails struct {
	ModelID  int64  `json:"model_id"`
	Model    string `json:"model"`
	SeriesID int64  `json:"series_id"`
	Series   string `json:"series"`
	MakeID   int64  `json:"make_id"`
	Make     string `json:"make"`
}

type CreateModelRequest struct {
	SeriesID      int64   `json:"series_id"`
	Name          string  `json:"name" binding:"required"`
	Description   *string `json:"description,omitempty"`
	IsColor       bool    `json:"is_color"`
	PrintSpeedPPM int32   `json:"print_speed_ppm"`
	MonthlyDuty   int32   `json:"monthly_duty"`
	ImageURL      *string `json:"image_url,omitempty"`
}

type UpdateModelRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	IsColor       *bool   `json:"is_color,omitempty"`
	PrintSpeedPPM *int32  `json:"print_speed_ppm,omitempty"`
	MonthlyDuty   *int32  `json:"monthly_duty,omitempty"`
	ImageURL      *string `json:"image_url,omitempty"`
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("Name is required")
	}
	return name, nil
}

// -- Makes --

func (s *CatalogHandler) ListMakes(ctx context.Context) ([]models.PrinterMake, error) {
	var makes []models.PrinterMake
	if s.cache.GetJSON(ctx, MAKES_CACHE_KEY, &makes) {
		return makes, nil
	}

	if err := s.db.WithContext(ctx).Order("name ASC").Find(&makes).Error; err != nil {
		return nil, fmt.Errorf("list makes: %w", err)
	}

	s.cache.SetJSON(ctx, MAKES_CACHE_KEY, makes, cache.TTLLong)
	return makes, nil
}

func (s *CatalogHandler) CreateMake(ctx context.Context, name string) (*models.PrinterMake, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}

	printerMake := models.PrinterMake{Name: name}
	if err := s.db.WithContext(ctx).Create(&printerMake).Error; err != nil {
		return nil, fmt.Errorf("create make: %w", err)
	}

	s.cache.Invalidate(ctx, MAKES_CACHE_KEY)
	return &printerMake, nil
}

// -- Series --

func (s *CatalogHandler) ListSeries(ctx context.Context, makeID int64) ([]models.PrinterSeries, error) {
	cacheKey := fmt.Sprintf("%s%d", SERIES_CACHE_PREFIX, makeID)

	var series []models.PrinterSeries
	if s.cache.GetJSON(ctx, cacheKey, &series) {
		return series, nil
	}

	if err := s.db.WithContext(ctx).Where("make_id = ?", makeID).Order("name ASC").Find(&series).Error; err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}

	s.cache.SetJSON(ctx, cacheKey, series, cache.TTLLong)
	return series, nil
}

func (s *CatalogHandler) CreateSeries(ctx context.Context, makeID int64, name string) (*models.PrinterSeries, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}

	if err := s.exists(ctx, &models.PrinterMake{}, makeID, "printer make"); err != nil {
		return nil, err
	}

	series := models.PrinterSeries{Name: name, MakeID: makeID}
	if err := s.db.WithContext(ctx).Create(&series).Error; err != nil {
		return nil, fmt.Errorf("create series: %w", err)
	}

	s.cache.Invalidate(ctx, fmt.Sprintf("%s%d", SERIES_CACHE_PREFIX, makeID))
	return &series, nil
}

// -- Models --

func (s *CatalogHandler) ListModels(ctx context.Context, seriesID int64) ([]models.PrinterModel, error) {
	cacheKey := fmt.Sprintf("%s%d", MODELS_CACHE_PREFIX, seriesID)

	var printerModels []models.PrinterModel
	if s.cache.GetJSON(ctx, cacheKey, &printerModels) {
		return printerModels, nil
	}

	if err := s.db.WithContext(ctx).Where("series_id = ?", seriesID).Order("name ASC").Find(&printerModels).Error; err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	s.cache.SetJSON(ctx, cacheKey, printerModels, cache.TTLLong)
	return printerModels, nil
}

func (s *CatalogHandler) CreateModel(ctx context.Context, req CreateModelRequest) (*models.PrinterModel, error) {
	name, err := requireName(req.Name)
	if err != nil {
		return nil, err
	}

	if err := s.exists(ctx, &models.PrinterSeries{}, req.SeriesID, "printer series"); err != nil {
		return nil, err
	}

	model := models.PrinterModel{
		Name:          name,
		SeriesID:      req.SeriesID,
		Description:   req.Description,
		IsColor:       req.IsColor,
		PrintSpeedPPM: req.PrintSpeedPPM,
		MonthlyDuty:   req.MonthlyDuty,
		ImageURL:      req.ImageURL,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, fmt.Errorf("create model: %w", err)
	}

	s.cache.Invalidate(ctx, fmt.Sprintf("%s%d", MODELS_CACHE_PREFIX, req.SeriesID))
	return &model, nil
}

func (s *CatalogHandler) GetModel(ctx context.Context, id int64) (*models.PrinterModel, error) {
	var model models.PrinterModel
	if err := s.db.WithContext(ctx).Preload("Series.Make").First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("printer model", id)
		}
		return nil, fmt.Errorf("get model: %w", err)
	}
	return &model, nil
}

// UpdateModel edits the wiki fields of a model.
func (s *CatalogHandler) UpdateModel(ctx context.Context, id int64, req UpdateModelRequest) (*models.PrinterModel, error) {
	model, err := s.GetModel(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name, err := requireName(*req.Name)
		if err != nil {
			return nil, err
		}
		model.Name = name
	}
	if req.Description != nil {
		model.Description = req.Description
	}
	if req.IsColor != nil {
		model.IsColor = *req.IsColor
	}
	if req.PrintSpeedPPM != nil {
		model.PrintSpeedPPM = *req.PrintSpeedPPM
	}
	if req.MonthlyDuty != nil {
		model.MonthlyDuty = *req.MonthlyDuty
	}
	if req.ImageURL != nil {
		model.ImageURL = req.ImageURL
	}

	if err := s.db.WithContext(ctx).Omit("Series").Save(model).Error; err != nil {
		return nil, fmt.Errorf("update model: %w", err)
	}

	s.cache.Invalidate(ctx,
		fmt.Sprintf("%s%d", MODELS_CACHE_PREFIX, model.SeriesID),
		fmt.Sprintf("%s%d", MODEL_DETAILS_PREFIX, id))
	return model, nil
}

// GetModelDetails resolves a model id to its make, series and model names.
func (s *CatalogHandler) GetModelDetails(ctx context.Context, modelID int64) (*ModelDetails, error) {
	cacheKey := fmt.Sprintf("%s%d", MODEL_DETAILS_PREFIX, modelID)

	var details ModelDetails
	if s.cache.GetJSON(ctx, cacheKey, &details) {
		return &details, nil
	}

	model, err := s.GetModel(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if model.Series == nil || model.Series.Make == nil {
		return nil, apperr.NotFound("catalog chain for model", modelID)
	}

	details = ModelDetails{
		ModelID:  model.ID,
		Model:    model.Name,
		SeriesID: model.Series.ID,
		Series:   model.Series.Name,
		MakeID:   model.Series.Make.ID,
		Make:     model.Series.Make.Name,
	}

	s.cache.SetJSON(ctx, cacheKey, details, cache.TTLLong)
	return &details, nil
}

func (s *CatalogHandler) exists(ctx context.Context, model interface{}, id int64, entity string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check %s: %w", entity, err)
	}
	if count == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}
