package handler

import (
	"context"

	"printfleet-system/internal/database/models"
)

// Selection is the make/series/model picked in a cascading selector.
type Selection struct {
	MakeID   *int64 `json:"make_id"`
	SeriesID *int64 `json:"series_id"`
	ModelID  *int64 `json:"model_id"`
}

// SelectionResult carries the re-validated selection and the child lists it was checked
// against, so a form can redraw both dependent selectors from one call.
type SelectionResult struct {
	Selection Selection              `json:"selection"`
	Series    []models.PrinterSeries `json:"series"`
	Models    []models.PrinterModel  `json:"models"`
}

// Reselect drops every dependent value that no longer belongs to its parent. A cleared
// parent clears all of its descendants.
func (s *CatalogHandler) Reselect(ctx context.Context, sel Selection) (*SelectionResult, error) {
	result := &SelectionResult{
		Series: []models.PrinterSeries{},
		Models: []models.PrinterModel{},
	}
	if sel.MakeID == nil {
		return result, nil
	}
	result.Selection.MakeID = sel.MakeID

	series, err := s.ListSeries(ctx, *sel.MakeID)
	if err != nil {
		return nil, err
	}
	result.Series = series

	if sel.SeriesID == nil || !containsSeries(series, *sel.SeriesID) {
		return result, nil
	}
	result.Selection.SeriesID = sel.SeriesID

	printerModels, err := s.ListModels(ctx, *sel.SeriesID)
	if err != nil {
		return nil, err
	}
	result.Models = printerModels

	if sel.ModelID != nil && containsModel(printerModels, *sel.ModelID) {
		result.Selection.ModelID = sel.ModelID
	}
	return result, nil
}

func containsSeries(series []models.PrinterSeries, id int64) bool {
	for _, s := range series {
		if s.ID == id {
			return true
		}
	}
	return false
}

func containsModel(printerModels []models.PrinterModel, id int64) bool {
	for _, m := range printerModels {
		if m.ID == id {
			return true
		}
	}
	return false
}
