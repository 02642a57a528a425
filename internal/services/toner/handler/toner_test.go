package handler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/database/dbtest"
	"printfleet-system/internal/database/models"
)

func strp(s string) *string { return &s }

func catalogModel(t *testing.T, db *gorm.DB) models.PrinterModel {
	t.Helper()
	mk := models.PrinterMake{Name: "HP"}
	require.NoError(t, db.Create(&mk).Error)
	series := models.PrinterSeries{Name: "LaserJet", MakeID: mk.ID}
	require.NoError(t, db.Create(&series).Error)
	model := models.PrinterModel{Name: "M428fdn", SeriesID: series.ID}
	require.NoError(t, db.Create(&model).Error)
	return model
}

func fleetPrinter(t *testing.T, db *gorm.DB, model models.PrinterModel) models.Printer {
	t.Helper()
	p := models.Printer{
		Make: "HP", Series: "LaserJet", Model: model.Name, ModelID: &model.ID,
		Status: models.PrinterAvailable, Ownership: models.OwnershipSystemAsset,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestCreateToner_Validation(t *testing.T) {
	h := NewTonerHandler(dbtest.New(t), nil, nil)
	ctx := context.Background()

	_, err := h.CreateToner(ctx, TonerRequest{Brand: "HP", Model: "58A", Color: "purple"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = h.CreateToner(ctx, TonerRequest{Model: "58A", Color: models.TonerBlack})
	require.ErrorIs(t, err, apperr.ErrValidation)

	missing := int64(99)
	_, err = h.CreateToner(ctx, TonerRequest{Brand: "HP", Model: "58X", Color: models.TonerBlack, BaseModelReference: &missing})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVariantsNeedBaseModel(t *testing.T) {
	h := NewTonerHandler(dbtest.New(t), nil, nil)
	ctx := context.Background()

	notBase, err := h.CreateToner(ctx, TonerRequest{Brand: "HP", Model: "26A", Color: models.TonerBlack})
	require.NoError(t, err)
	_, err = h.CreateToner(ctx, TonerRequest{Brand: "HP", Model: "26X", Color: models.TonerBlack, BaseModelReference: &notBase.ID})
	require.ErrorIs(t, err, apperr.ErrConflict)

	base, err := h.CreateToner(ctx, TonerRequest{Brand: "HP", Model: "58A", Color: models.TonerBlack, IsBaseModel: true})
	require.NoError(t, err)
	variant, err := h.CreateToner(ctx, TonerRequest{
		Brand: "HP", Model: "58X", Color: models.TonerBlack,
		BaseModelReference: &base.ID, VariantName: strp("High yield"),
	})
	require.NoError(t, err)

	variants, err := h.ListVariants(ctx, base.ID)
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, variant.ID, variants[0].ID)

	_, err = h.UpdateToner(ctx, base.ID, TonerRequest{Brand: "HP", Model: "58A", Color: models.TonerBlack})
	require.ErrorIs(t, err, apperr.ErrConflict)
	err = h.DeleteToner(ctx, base.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = h.UpdateToner(ctx, variant.ID, TonerRequest{Brand: "HP", Model: "58X", Color: models.TonerBlack, BaseModelReference: &variant.ID})
	require.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, h.DeleteToner(ctx, variant.ID))
	require.NoError(t, h.DeleteToner(ctx, base.ID))
}

func TestListToners_Search(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	h := NewTonerHandler(dbtest.New(t), rdb, nil)
	ctx := context.Background()

	_, err := h.CreateToner(ctx, TonerRequest{Brand: "HP", Model: "58A", Color: models.TonerBlack, OEMCode: strp("CF258A")})
	require.NoError(t, err)
	_, err = h.CreateToner(ctx, TonerRequest{Brand: "Brother", Model: "TN-760", Color: models.TonerBlack, Aliases: []string{"TN760", "TN-730"}})
	require.NoError(t, err)
	_, err = h.CreateToner(ctx, TonerRequest{Brand: "HP", Model: "206A", Color: models.TonerCyan})
	require.NoError(t, err)

	all, err := h.ListToners(ctx, TonerFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.True(t, mr.Exists(TONERS_CACHE_KEY))

	byOEM, err := h.ListToners(ctx, TonerFilter{Search: strp("cf258")})
	require.NoError(t, err)
	require.Len(t, byOEM, 1)
	assert.Equal(t, "58A", byOEM[0].Model)

	byAlias, err := h.ListToners(ctx, TonerFilter{Search: strp("tn-730")})
	require.NoError(t, err)
	require.Len(t, byAlias, 1)
	assert.Equal(t, "Brother", byAlias[0].Brand)

	cyan := models.TonerCyan
	hp, err := h.ListToners(ctx, TonerFilter{Brand: strp("hp"), Color: &cyan})
	require.NoError(t, err)
	require.Len(t, hp, 1)
	assert.Equal(t, "206A", hp[0].Model)

	_, err = h.CreateToner(ctx, TonerRequest{Brand: "Canon", Model: "055", Color: models.TonerYellow})
	require.NoError(t, err)
	assert.False(t, mr.Exists(TONERS_CACHE_KEY))
}

func TestCompatibleForPrinter_LinksAndFuzzy(t *testing.T) {
	db := dbtest.New(t)
	h := NewTonerHandler(db, nil, nil)
	ctx := context.Background()

	model := catalogModel(t, db)
	printer := fleetPrinter(t, db, model)

	fuzzy, err := h.CreateToner(ctx, TonerRequest{Brand: "HP", Model: "58A", Color: models.TonerBlack, Compatibility: []string{"M428"}})
	require.NoError(t, err)
	linkedOnly, err := h.CreateToner(ctx, TonerRequest{Brand: "HP", Model: "58X", Color: models.TonerBlack, Compatibility: []string{"LaserJet Pro 400"}})
	require.NoError(t, err)
	related, err := h.CreateToner(ctx, TonerRequest{Brand: "HP", Model: "410A", Color: models.TonerBlack, Compatibility: []string{"M452dn"}})
	require.NoError(t, err)
	_, err = h.CreateToner(ctx, TonerRequest{Brand: "Brother", Model: "TN-760", Color: models.TonerBlack, Compatibility: []string{"HL-L2350"}})
	require.NoError(t, err)

	require.NoError(t, h.LinkModel(ctx, linkedOnly.ID, model.ID))
	require.NoError(t, h.LinkModel(ctx, linkedOnly.ID, model.ID))

	matches, err := h.CompatibleForPrinter(ctx, printer.ID)
	require.NoError(t, err)
	require.Len(t, matches.Compatible, 2)
	assert.Equal(t, fuzzy.ID, matches.Compatible[0].ID)
	assert.Equal(t, linkedOnly.ID, matches.Compatible[1].ID)
	require.Len(t, matches.Related, 1)
	assert.Equal(t, related.ID, matches.Related[0].ID)

	require.NoError(t, h.UnlinkModel(ctx, linkedOnly.ID, model.ID))
	err = h.UnlinkModel(ctx, linkedOnly.ID, model.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	matches, err = h.CompatibleForPrinter(ctx, printer.ID)
	require.NoError(t, err)
	assert.Len(t, matches.Compatible, 1)
	assert.Len(t, matches.Related, 2)

	_, err = h.CompatibleForPrinter(ctx, 999)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	err = h.LinkModel(ctx, fuzzy.ID, 999)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
