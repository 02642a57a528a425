package handler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/database/dbtest"
)

func newTestHandler(t *testing.T) (*CatalogHandler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCatalogHandler(dbtest.New(t), rdb, nil), mr
}

func seedChain(t *testing.T, h *CatalogHandler) (int64, int64, int64) {
	t.Helper()
	ctx := context.Background()

	hp, err := h.CreateMake(ctx, "HP")
	require.NoError(t, err)
	series, err := h.CreateSeries(ctx, hp.ID, "LaserJet")
	require.NoError(t, err)
	model, err := h.CreateModel(ctx, CreateModelRequest{SeriesID: series.ID, Name: "M428fdn"})
	require.NoError(t, err)
	return hp.ID, series.ID, model.ID
}

func TestCreateMake_RequiresName(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := h.CreateMake(context.Background(), "   ")
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Name is required", err.Error())
}

func TestCreateSeries_UnknownMake(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := h.CreateSeries(context.Background(), 999, "LaserJet")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateModel_UnknownSeries(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := h.CreateModel(context.Background(), CreateModelRequest{SeriesID: 42, Name: "M428fdn"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListMakes_CachedAndInvalidated(t *testing.T) {
	h, mr := newTestHandler(t)
	ctx := context.Background()

	_, err := h.CreateMake(ctx, "Xerox")
	require.NoError(t, err)

	makes, err := h.ListMakes(ctx)
	require.NoError(t, err)
	require.Len(t, makes, 1)
	assert.True(t, mr.Exists(MAKES_CACHE_KEY))

	_, err = h.CreateMake(ctx, "Brother")
	require.NoError(t, err)
	assert.False(t, mr.Exists(MAKES_CACHE_KEY))

	makes, err = h.ListMakes(ctx)
	require.NoError(t, err)
	require.Len(t, makes, 2)
	assert.Equal(t, "Brother", makes[0].Name)
}

func TestListSeriesAndModels_ScopedToParent(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	hpID, seriesID, modelID := seedChain(t, h)
	canon, err := h.CreateMake(ctx, "Canon")
	require.NoError(t, err)
	_, err = h.CreateSeries(ctx, canon.ID, "imageRUNNER")
	require.NoError(t, err)

	series, err := h.ListSeries(ctx, hpID)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, seriesID, series[0].ID)

	printerModels, err := h.ListModels(ctx, seriesID)
	require.NoError(t, err)
	require.Len(t, printerModels, 1)
	assert.Equal(t, modelID, printerModels[0].ID)

	empty, err := h.ListSeries(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetModelDetails(t *testing.T) {
	h, _ := newTestHandler(t)
	_, _, modelID := seedChain(t, h)

	details, err := h.GetModelDetails(context.Background(), modelID)
	require.NoError(t, err)
	assert.Equal(t, "HP", details.Make)
	assert.Equal(t, "LaserJet", details.Series)
	assert.Equal(t, "M428fdn", details.Model)

	_, err = h.GetModelDetails(context.Background(), 777)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateModel_WikiFields(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()
	_, _, modelID := seedChain(t, h)

	desc := "Monochrome MFP"
	speed := int32(40)
	model, err := h.UpdateModel(ctx, modelID, UpdateModelRequest{Description: &desc, PrintSpeedPPM: &speed})
	require.NoError(t, err)
	assert.Equal(t, "M428fdn", model.Name)
	require.NotNil(t, model.Description)
	assert.Equal(t, desc, *model.Description)

	reloaded, err := h.GetModel(ctx, modelID)
	require.NoError(t, err)
	assert.Equal(t, int32(40), reloaded.PrintSpeedPPM)
}

func TestReselect(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()
	hpID, seriesID, modelID := seedChain(t, h)

	canon, err := h.CreateMake(ctx, "Canon")
	require.NoError(t, err)

	t.Run("keeps a consistent chain", func(t *testing.T) {
		res, err := h.Reselect(ctx, Selection{MakeID: &hpID, SeriesID: &seriesID, ModelID: &modelID})
		require.NoError(t, err)
		assert.Equal(t, &modelID, res.Selection.ModelID)
		assert.Len(t, res.Models, 1)
	})

	t.Run("make change drops foreign series and model", func(t *testing.T) {
		res, err := h.Reselect(ctx, Selection{MakeID: &canon.ID, SeriesID: &seriesID, ModelID: &modelID})
		require.NoError(t, err)
		assert.Equal(t, &canon.ID, res.Selection.MakeID)
		assert.Nil(t, res.Selection.SeriesID)
		assert.Nil(t, res.Selection.ModelID)
	})

	t.Run("cleared make clears everything", func(t *testing.T) {
		res, err := h.Reselect(ctx, Selection{SeriesID: &seriesID, ModelID: &modelID})
		require.NoError(t, err)
		assert.Equal(t, Selection{}, res.Selection)
		assert.Empty(t, res.Series)
	})

	t.Run("cleared series clears model", func(t *testing.T) {
		res, err := h.Reselect(ctx, Selection{MakeID: &hpID, ModelID: &modelID})
		require.NoError(t, err)
		assert.Nil(t, res.Selection.ModelID)
		assert.Len(t, res.Series, 1)
	})
}
