package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/cache"
	"printfleet-system/internal/compat"
	"printfleet-system/internal/database/models"
	"printfleet-system/internal/logging"
)

const (
	TONER_CACHE_PREFIX = "toners:"
	TONERS_CACHE_KEY   = "toners:all"
	STORE_CACHE_PREFIX = "store:"
	PRODUCTS_CACHE_KEY = "store:products"
)

type TonerHandler struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *zap.Logger
}

func NewTonerHandler(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *TonerHandler {
	logger = logging.OrNop(logger)
	return &TonerHandler{
		db:    db,
		cache: cache.New(redisClient, logger),
		log:   logger,
	}
}

func (s *TonerHandler) InvalidateTonerCaches(ctx context.Context) {
	s.cache.InvalidatePrefix(ctx, TONER_CACHE_PREFIX)
}

type TonerRequest struct {
	Brand              string            `json:"brand"`
	Model              string            `json:"model"`
	Color              models.TonerColor `json:"color"`
	OEMCode            *string           `json:"oem_code,omitempty"`
	PageYield          int32             `json:"page_yield"`
	Aliases            []string          `json:"aliases"`
	Compatibility      []string          `json:"compatibility"`
	IsBaseModel        bool              `json:"is_base_model"`
	BaseModelReference *int64            `json:"base_model_reference,omitempty"`
	VariantName        *string           `json:"variant_name,omitempty"`
}

type TonerFilter struct {
	Brand  *string
	Color  *models.TonerColor
	Search *string
}

func cleanList(values []string) models.StringArray {
	out := models.StringArray{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// validate checks the request against the catalog. selfID is zero on create.
func (s *TonerHandler) validate(ctx context.Context, req TonerRequest, selfID int64) error {
	if strings.TrimSpace(req.Brand) == "" {
		return apperr.Validation("brand required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return apperr.Validation("model required")
	}
	if !req.Color.Valid() {
		return apperr.Validation("invalid toner color %q", req.Color)
	}
	if req.PageYield < 0 {
		return apperr.Validation("page_yield must not be negative")
	}
	if req.BaseModelReference == nil {
		return nil
	}
	if req.IsBaseModel {
		return apperr.Validation("a base model cannot reference another base model")
	}
	if *req.BaseModelReference == selfID {
		return apperr.Validation("a toner cannot be its own base model")
	}

	var base models.Toner
	if err := s.db.WithContext(ctx).First(&base, *req.BaseModelReference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("base toner", *req.BaseModelReference)
		}
		return fmt.Errorf("load base toner: %w", err)
	}
	if !base.IsBaseModel {
		return apperr.Conflict("toner %d is not a base model", base.ID)
	}
	return nil
}

func (req TonerRequest) apply(toner *models.Toner) {
	toner.Brand = strings.TrimSpace(req.Brand)
	toner.Model = strings.TrimSpace(req.Model)
	toner.Color = req.Color
	toner.OEMCode = req.OEMCode
	toner.PageYield = req.PageYield
	toner.Aliases = cleanList(req.Aliases)
	toner.Compatibility = cleanList(req.Compatibility)
	toner.IsBaseModel = req.IsBaseModel
	toner.BaseModelReference = req.BaseModelReference
	toner.VariantName = req.VariantName
}

func (s *TonerHandler) CreateToner(ctx context.Context, req TonerRequest) (*models.Toner, error) {
	if err := s.validate(ctx, req, 0); err != nil {
		return nil, err
	}

	var toner models.Toner
	req.apply(&toner)
	if err := s.db.WithContext(ctx).Create(&toner).Error; err != nil {
		return nil, fmt.Errorf("create toner: %w", err)
	}

	s.InvalidateTonerCaches(ctx)
	return &toner, nil
}

func (s *TonerHandler) UpdateToner(ctx context.Context, id int64, req TonerRequest) (*models.Toner, error) {
	toner, err := s.GetToner(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, req, id); err != nil {
		return nil, err
	}

	if toner.IsBaseModel && !req.IsBaseModel {
		var variants int64
		if err := s.db.WithContext(ctx).Model(&models.Toner{}).Where("base_model_reference = ?", id).Count(&variants).Error; err != nil {
			return nil, fmt.Errorf("count variants: %w", err)
		}
		if variants > 0 {
			return nil, apperr.Conflict("toner %d still has %d variants", id, variants)
		}
	}

	req.apply(toner)
	if err := s.db.WithContext(ctx).Save(toner).Error; err != nil {
		return nil, fmt.Errorf("update toner: %w", err)
	}

	s.InvalidateTonerCaches(ctx)
	return toner, nil
}

func (s *TonerHandler) GetToner(ctx context.Context, id int64) (*models.Toner, error) {
	var toner models.Toner
	if err := s.db.WithContext(ctx).First(&toner, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("toner", id)
		}
		return nil, fmt.Errorf("get toner: %w", err)
	}
	return &toner, nil
}

// DeleteToner refuses base models that still have variants. Links to printers and
// printer models go with the toner; storefront products are kept and unlinked.
func (s *TonerHandler) DeleteToner(ctx context.Context, id int64) error {
	if _, err := s.GetToner(ctx, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var variants int64
		if err := tx.Model(&models.Toner{}).Where("base_model_reference = ?", id).Count(&variants).Error; err != nil {
			return err
		}
		if variants > 0 {
			return apperr.Conflict("toner %d still has %d variants", id, variants)
		}
		if err := tx.Exec("DELETE FROM printer_toners WHERE toner_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("toner_id = ?", id).Delete(&models.TonerCompatibility{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.CommercialTonerProduct{}).Where("toner_id = ?", id).Update("toner_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Toner{}, id).Error
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return err
		}
		return fmt.Errorf("delete toner: %w", err)
	}

	s.InvalidateTonerCaches(ctx)
	s.cache.InvalidatePrefix(ctx, STORE_CACHE_PREFIX)
	return nil
}

func (s *TonerHandler) ListToners(ctx context.Context, filter TonerFilter) ([]models.Toner, error) {
	unfiltered := filter.Brand == nil && filter.Color == nil && filter.Search == nil

	toners := []models.Toner{}
	if unfiltered && s.cache.GetJSON(ctx, TONERS_CACHE_KEY, &toners) {
		return toners, nil
	}

	query := s.db.WithContext(ctx).Model(&models.Toner{})
	if filter.Brand != nil {
		query = query.Where("LOWER(brand) = ?", strings.ToLower(strings.TrimSpace(*filter.Brand)))
	}
	if filter.Color != nil {
		query = query.Where("color = ?", *filter.Color)
	}
	if filter.Search != nil {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		query = query.Where("LOWER(model) LIKE ? OR LOWER(oem_code) LIKE ? OR LOWER(aliases) LIKE ?",
			searchTerm, searchTerm, searchTerm)
	}

	if err := query.Order("id ASC").Find(&toners).Error; err != nil {
		return nil, fmt.Errorf("list toners: %w", err)
	}

	if unfiltered {
		s.cache.SetJSON(ctx, TONERS_CACHE_KEY, toners, cache.TTLMedium)
	}
	return toners, nil
}

func (s *TonerHandler) ListVariants(ctx context.Context, baseID int64) ([]models.Toner, error) {
	if _, err := s.GetToner(ctx, baseID); err != nil {
		return nil, err
	}

	variants := []models.Toner{}
	if err := s.db.WithContext(ctx).Where("base_model_reference = ?", baseID).Order("id ASC").Find(&variants).Error; err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	return variants, nil
}

// LinkModel records that a toner fits a catalog printer model. Linking twice is a no-op.
func (s *TonerHandler) LinkModel(ctx context.Context, tonerID, modelID int64) error {
	if _, err := s.GetToner(ctx, tonerID); err != nil {
		return err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.PrinterModel{}).Where("id = ?", modelID).Count(&count).Error; err != nil {
		return fmt.Errorf("check printer model: %w", err)
	}
	if count == 0 {
		return apperr.NotFound("printer model", modelID)
	}

	link := models.TonerCompatibility{TonerID: tonerID, PrinterModelID: modelID}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
		return fmt.Errorf("link toner: %w", err)
	}

	s.InvalidateTonerCaches(ctx)
	return nil
}

func (s *TonerHandler) UnlinkModel(ctx context.Context, tonerID, modelID int64) error {
	result := s.db.WithContext(ctx).
		Where("toner_id = ? AND printer_model_id = ?", tonerID, modelID).
		Delete(&models.TonerCompatibility{})
	if result.Error != nil {
		return fmt.Errorf("unlink toner: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("toner link", fmt.Sprintf("%d/%d", tonerID, modelID))
	}

	s.InvalidateTonerCaches(ctx)
	return nil
}

func (s *TonerHandler) linkedTonerIDs(ctx context.Context, modelID *int64) (map[int64]bool, error) {
	linked := map[int64]bool{}
	if modelID == nil {
		return linked, nil
	}

	var ids []int64
	if err := s.db.WithContext(ctx).Model(&models.TonerCompatibility{}).
		Where("printer_model_id = ?", *modelID).
		Pluck("toner_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("load toner links: %w", err)
	}
	for _, id := range ids {
		linked[id] = true
	}
	return linked, nil
}

func (s *TonerHandler) loadPrinter(ctx context.Context, printerID int64) (*models.Printer, error) {
	var printer models.Printer
	if err := s.db.WithContext(ctx).First(&printer, printerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("printer", printerID)
		}
		return nil, fmt.Errorf("load printer: %w", err)
	}
	return &printer, nil
}

// TonerMatches splits the catalog into toners that fit a printer and same-make toners
// that do not.
type TonerMatches struct {
	Compatible []models.Toner `json:"compatible"`
	Related    []models.Toner `json:"related"`
}

// CompatibleForPrinter merges toners linked to the printer's catalog model with fuzzy
// model-name matches, in catalog order.
func (s *TonerHandler) CompatibleForPrinter(ctx context.Context, printerID int64) (*TonerMatches, error) {
	printer, err := s.loadPrinter(ctx, printerID)
	if err != nil {
		return nil, err
	}
	linked, err := s.linkedTonerIDs(ctx, printer.ModelID)
	if err != nil {
		return nil, err
	}
	toners, err := s.ListToners(ctx, TonerFilter{})
	if err != nil {
		return nil, err
	}

	target := compat.Target{Make: printer.Make, Model: printer.Model}
	matches := &TonerMatches{Compatible: []models.Toner{}}
	for _, toner := range toners {
		if linked[toner.ID] || compat.Matches(target, toner) {
			matches.Compatible = append(matches.Compatible, toner)
		}
	}
	matches.Related = compat.RelatedExcept(target, toners, func(t models.Toner) bool { return linked[t.ID] })
	return matches, nil
}
