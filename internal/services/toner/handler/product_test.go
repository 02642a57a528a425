package handler

import (
	"context"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/database/dbtest"
	"printfleet-system/internal/database/models"
)

func product(sku, name, manufacturer string, stock int32, compatibility ...string) ProductRequest {
	return ProductRequest{
		SKU:           sku,
		Name:          name,
		Manufacturer:  manufacturer,
		Compatibility: compatibility,
		Price:         decimal.RequireFromString("89.99"),
		StockLevel:    stock,
		Categories:    []string{"Toner", "Laser"},
	}
}

func TestCreateProduct_Validation(t *testing.T) {
	h := NewTonerHandler(dbtest.New(t), nil, nil)
	ctx := context.Background()

	_, err := h.CreateProduct(ctx, ProductRequest{Name: "No SKU"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	negative := product("SKU-1", "Bad price", "HP", 1)
	negative.Price = decimal.NewFromInt(-5)
	_, err = h.CreateProduct(ctx, negative)
	require.ErrorIs(t, err, apperr.ErrValidation)

	created, err := h.CreateProduct(ctx, product("SKU-1", "HP 58A Black", "HP", 3, "M428"))
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	_, err = h.CreateProduct(ctx, product("SKU-1", "Duplicate", "HP", 1))
	require.ErrorIs(t, err, apperr.ErrConflict)

	missingToner := product("SKU-2", "Orphan", "HP", 1)
	id := int64(404)
	missingToner.TonerID = &id
	_, err = h.CreateProduct(ctx, missingToner)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAdjustStock_NeverNegative(t *testing.T) {
	h := NewTonerHandler(dbtest.New(t), nil, nil)
	ctx := context.Background()

	p, err := h.CreateProduct(ctx, product("SKU-9", "Brother TN-760", "Brother", 2))
	require.NoError(t, err)

	updated, err := h.AdjustStock(ctx, p.ID, -2)
	require.NoError(t, err)
	assert.Equal(t, int32(0), updated.StockLevel)

	_, err = h.AdjustStock(ctx, p.ID, -1)
	require.ErrorIs(t, err, apperr.ErrValidation)

	updated, err = h.AdjustStock(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(10), updated.StockLevel)

	reloaded, err := h.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(10), reloaded.StockLevel)

	_, err = h.AdjustStock(ctx, 999, 1)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAdjustStock_RejectsOverflow(t *testing.T) {
	h := NewTonerHandler(dbtest.New(t), nil, nil)
	ctx := context.Background()

	p, err := h.CreateProduct(ctx, product("SKU-10", "Canon 055H", "Canon", 5))
	require.NoError(t, err)

	_, err = h.AdjustStock(ctx, p.ID, math.MaxInt32)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "exceed")

	updated, err := h.AdjustStock(ctx, p.ID, math.MaxInt32-5)
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), updated.StockLevel)

	_, err = h.AdjustStock(ctx, p.ID, math.MinInt32)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "Insufficient stock")
}

func TestListProducts_Filters(t *testing.T) {
	h := NewTonerHandler(dbtest.New(t), nil, nil)
	ctx := context.Background()

	_, err := h.CreateProduct(ctx, product("HP-58A", "HP 58A", "HP", 4))
	require.NoError(t, err)
	empty, err := h.CreateProduct(ctx, product("BR-760", "Brother TN-760", "Brother", 0))
	require.NoError(t, err)
	inkjet := product("EP-502", "Epson 502 ink", "Epson", 6)
	inkjet.Categories = []string{"Ink"}
	_, err = h.CreateProduct(ctx, inkjet)
	require.NoError(t, err)

	inStock := true
	stocked, err := h.ListProducts(ctx, ProductFilter{InStock: &inStock})
	require.NoError(t, err)
	assert.Len(t, stocked, 2)

	outOfStock := false
	sold, err := h.ListProducts(ctx, ProductFilter{InStock: &outOfStock})
	require.NoError(t, err)
	require.Len(t, sold, 1)
	assert.Equal(t, empty.ID, sold[0].ID)

	toner, err := h.ListProducts(ctx, ProductFilter{Category: strp("toner")})
	require.NoError(t, err)
	assert.Len(t, toner, 2)

	found, err := h.ListProducts(ctx, ProductFilter{Search: strp("tn-760")})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	inactive := false
	update := product("BR-760", "Brother TN-760", "Brother", 0)
	update.IsActive = &inactive
	_, err = h.UpdateProduct(ctx, empty.ID, update)
	require.NoError(t, err)

	active, err := h.ListProducts(ctx, ProductFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestProductsForPrinter(t *testing.T) {
	db := dbtest.New(t)
	h := NewTonerHandler(db, nil, nil)
	ctx := context.Background()

	model := catalogModel(t, db)
	printer := fleetPrinter(t, db, model)

	oem, err := h.CreateToner(ctx, TonerRequest{Brand: "HP", Model: "58X", Color: models.TonerBlack})
	require.NoError(t, err)
	require.NoError(t, h.LinkModel(ctx, oem.ID, model.ID))

	nearMiss, err := h.CreateProduct(ctx, product("P-1", "Compatible 58A", "Generic", 5, "LaserJet Pro M428fdw"))
	require.NoError(t, err)
	linked := product("P-2", "HP 58X", "HP", 5)
	linked.TonerID = &oem.ID
	linkedProduct, err := h.CreateProduct(ctx, linked)
	require.NoError(t, err)
	sameMake, err := h.CreateProduct(ctx, product("P-3", "HP 410A", "HP", 5, "M452dn"))
	require.NoError(t, err)
	_, err = h.CreateProduct(ctx, product("P-4", "Canon 055", "Canon", 5, "MF741"))
	require.NoError(t, err)

	matches, err := h.ProductsForPrinter(ctx, printer.ID)
	require.NoError(t, err)
	require.Len(t, matches.Compatible, 1)
	assert.Equal(t, linkedProduct.ID, matches.Compatible[0].ID)
	require.Len(t, matches.Related, 1)
	assert.Equal(t, sameMake.ID, matches.Related[0].ID)
	assert.NotEqual(t, nearMiss.ID, matches.Related[0].ID)
}
