package handler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/cache"
	"printfleet-system/internal/compat"
	"printfleet-system/internal/database/models"
)

type ProductRequest struct {
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	TonerID       *int64          `json:"toner_id,omitempty"`
	Manufacturer  string          `json:"manufacturer"`
	Compatibility []string        `json:"compatibility"`
	Price         decimal.Decimal `json:"price"`
	StockLevel    int32           `json:"stock_level"`
	Categories    []string        `json:"categories"`
	Description   *string         `json:"description,omitempty"`
	IsActive      *bool           `json:"is_active,omitempty"`
}

type ProductFilter struct {
	Category   *string
	InStock    *bool
	Search     *string
	ActiveOnly bool
}

// ProductMatches is the storefront view of a printer's toners.
type ProductMatches struct {
	Compatible []models.CommercialTonerProduct `json:"compatible"`
	Related    []models.CommercialTonerProduct `json:"related"`
}

func (s *TonerHandler) validateProduct(ctx context.Context, req ProductRequest, selfID int64) error {
	if strings.TrimSpace(req.SKU) == "" {
		return apperr.Validation("sku required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperr.Validation("Name is required")
	}
	if req.Price.IsNegative() {
		return apperr.Validation("price must not be negative")
	}
	if req.StockLevel < 0 {
		return apperr.Validation("stock_level must not be negative")
	}

	var dup int64
	if err := s.db.WithContext(ctx).Model(&models.CommercialTonerProduct{}).
		Where("sku = ? AND id <> ?", strings.TrimSpace(req.SKU), selfID).
		Count(&dup).Error; err != nil {
		return fmt.Errorf("check sku: %w", err)
	}
	if dup > 0 {
		return apperr.Conflict("sku %q already exists", req.SKU)
	}

	if req.TonerID != nil {
		if _, err := s.GetToner(ctx, *req.TonerID); err != nil {
			return err
		}
	}
	return nil
}

func (req ProductRequest) apply(product *models.CommercialTonerProduct) {
	product.SKU = strings.TrimSpace(req.SKU)
	product.Name = strings.TrimSpace(req.Name)
	product.TonerID = req.TonerID
	product.Manufacturer = strings.TrimSpace(req.Manufacturer)
	product.Compatibility = cleanList(req.Compatibility)
	product.Price = req.Price.Round(2)
	product.StockLevel = req.StockLevel
	product.Categories = cleanList(req.Categories)
	product.Description = req.Description
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
}

func (s *TonerHandler) CreateProduct(ctx context.Context, req ProductRequest) (*models.CommercialTonerProduct, error) {
	if err := s.validateProduct(ctx, req, 0); err != nil {
		return nil, err
	}

	product := models.CommercialTonerProduct{IsActive: true}
	req.apply(&product)
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.cache.InvalidatePrefix(ctx, STORE_CACHE_PREFIX)
	return &product, nil
}

func (s *TonerHandler) UpdateProduct(ctx context.Context, id int64, req ProductRequest) (*models.CommercialTonerProduct, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateProduct(ctx, req, id); err != nil {
		return nil, err
	}

	req.apply(product)
	if err := s.db.WithContext(ctx).Omit("Toner").Save(product).Error; err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.cache.InvalidatePrefix(ctx, STORE_CACHE_PREFIX)
	return product, nil
}

func (s *TonerHandler) GetProduct(ctx context.Context, id int64) (*models.CommercialTonerProduct, error) {
	var product models.CommercialTonerProduct
	if err := s.db.WithContext(ctx).Preload("Toner").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &product, nil
}

func (s *TonerHandler) ListProducts(ctx context.Context, filter ProductFilter) ([]models.CommercialTonerProduct, error) {
	unfiltered := filter.Category == nil && filter.InStock == nil && filter.Search == nil && !filter.ActiveOnly

	products := []models.CommercialTonerProduct{}
	if unfiltered && s.cache.GetJSON(ctx, PRODUCTS_CACHE_KEY, &products) {
		return products, nil
	}

	query := s.db.WithContext(ctx).Model(&models.CommercialTonerProduct{})
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Category != nil {
		query = query.Where("LOWER(categories) LIKE ?", `%"`+strings.ToLower(strings.TrimSpace(*filter.Category))+`"%`)
	}
	if filter.InStock != nil {
		if *filter.InStock {
			query = query.Where("stock_level > 0")
		} else {
			query = query.Where("stock_level = 0")
		}
	}
	if filter.Search != nil {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		query = query.Where("LOWER(sku) LIKE ? OR LOWER(name) LIKE ? OR LOWER(compatibility) LIKE ?",
			searchTerm, searchTerm, searchTerm)
	}

	if err := query.Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	if unfiltered {
		s.cache.SetJSON(ctx, PRODUCTS_CACHE_KEY, products, cache.TTLShort)
	}
	return products, nil
}

// AdjustStock applies delta to the stock level. The level never drops below zero.
func (s *TonerHandler) AdjustStock(ctx context.Context, id int64, delta int32) (*models.CommercialTonerProduct, error) {
	var product models.CommercialTonerProduct

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.First(&product, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product", id)
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	next := int64(product.StockLevel) + int64(delta)
	if next < 0 {
		tx.Rollback()
		return nil, apperr.Validation("Insufficient stock. Available: %d, Requested: %d", product.StockLevel, -int64(delta))
	}
	if next > math.MaxInt32 {
		tx.Rollback()
		return nil, apperr.Validation("stock level would exceed %d", math.MaxInt32)
	}

	result := tx.Model(&models.CommercialTonerProduct{}).
		Where("id = ? AND stock_level + ? >= 0", id, delta).
		Update("stock_level", gorm.Expr("stock_level + ?", delta))
	if result.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("update stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, apperr.Conflict("stock for product %d changed concurrently", id)
	}
	product.StockLevel = int32(next)

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit stock: %w", err)
	}

	s.log.Info("Stock adjusted",
		zap.Int64("product_id", id),
		zap.Int32("delta", delta),
		zap.Int32("stock_level", product.StockLevel))
	s.cache.InvalidatePrefix(ctx, STORE_CACHE_PREFIX)
	return &product, nil
}

// ProductsForPrinter runs active storefront products through the same resolver as the OEM
// catalog. Products tied to a toner linked to the printer's model count as compatible.
func (s *TonerHandler) ProductsForPrinter(ctx context.Context, printerID int64) (*ProductMatches, error) {
	printer, err := s.loadPrinter(ctx, printerID)
	if err != nil {
		return nil, err
	}
	linked, err := s.linkedTonerIDs(ctx, printer.ModelID)
	if err != nil {
		return nil, err
	}
	products, err := s.ListProducts(ctx, ProductFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	isLinked := func(p models.CommercialTonerProduct) bool {
		return p.TonerID != nil && linked[*p.TonerID]
	}

	target := compat.Target{Make: printer.Make, Model: printer.Model}
	matches := &ProductMatches{Compatible: []models.CommercialTonerProduct{}}
	for _, product := range products {
		if isLinked(product) || compat.Matches(target, product) {
			matches.Compatible = append(matches.Compatible, product)
		}
	}
	matches.Related = compat.RelatedExcept(target, products, isLinked)
	return matches, nil
}
