package handler

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/database/dbtest"
	"printfleet-system/internal/database/models"
)

func newPrinter(t *testing.T, db *gorm.DB, withClient bool) models.Printer {
	t.Helper()
	p := models.Printer{Make: "HP", Series: "LaserJet", Model: "M428fdn", Status: models.PrinterAvailable, Ownership: models.OwnershipSystemAsset}
	if withClient {
		client := models.Client{Name: "Acme"}
		require.NoError(t, db.Create(&client).Error)
		p.ClientID = &client.ID
		p.Status = models.PrinterDeployed
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func printerStatus(t *testing.T, db *gorm.DB, id int64) models.PrinterStatus {
	t.Helper()
	var p models.Printer
	require.NoError(t, db.First(&p, id).Error)
	return p.Status
}

func TestCreateRecord(t *testing.T) {
	db := dbtest.New(t)
	h := NewMaintenanceHandler(db, nil, nil)
	ctx := context.Background()
	printer := newPrinter(t, db, false)

	record, err := h.CreateRecord(ctx, CreateRecordRequest{PrinterID: printer.ID, IssueDescription: "Paper jam", ReportedBy: "frontdesk"})
	require.NoError(t, err)
	assert.Equal(t, models.MaintenancePending, record.Status)
	assert.Equal(t, models.PrinterForRepair, printerStatus(t, db, printer.ID))

	_, err = h.CreateRecord(ctx, CreateRecordRequest{PrinterID: 999, IssueDescription: "x", ReportedBy: "y"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = h.CreateRecord(ctx, CreateRecordRequest{PrinterID: printer.ID, ReportedBy: "y"})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateStatus_ProjectsPrinterStatus(t *testing.T) {
	cases := []struct {
		status     models.MaintenanceStatus
		withClient bool
		want       models.PrinterStatus
	}{
		{models.MaintenancePending, false, models.PrinterForRepair},
		{models.MaintenanceInProgress, false, models.PrinterMaintenance},
		{models.MaintenanceCompleted, false, models.PrinterAvailable},
		{models.MaintenanceCompleted, true, models.PrinterDeployed},
		{models.MaintenanceUnrepairable, true, models.PrinterRetired},
		{models.MaintenanceDecommissioned, false, models.PrinterRetired},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			db := dbtest.New(t)
			h := NewMaintenanceHandler(db, nil, nil)
			ctx := context.Background()
			printer := newPrinter(t, db, tc.withClient)

			record, err := h.CreateRecord(ctx, CreateRecordRequest{PrinterID: printer.ID, IssueDescription: "Streaks", ReportedBy: "ops"})
			require.NoError(t, err)

			_, err = h.UpdateStatus(ctx, record.ID, tc.status, "tech")
			require.NoError(t, err)
			assert.Equal(t, tc.want, printerStatus(t, db, printer.ID))
		})
	}
}

func TestUpdateStatus_LeavesIssueFieldsAlone(t *testing.T) {
	db := dbtest.New(t)
	h := NewMaintenanceHandler(db, nil, nil)
	ctx := context.Background()
	printer := newPrinter(t, db, false)

	reportedAt := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	record, err := h.CreateRecord(ctx, CreateRecordRequest{
		PrinterID: printer.ID, IssueDescription: "Fuser error 50.2", ReportedBy: "alice", ReportedAt: &reportedAt,
	})
	require.NoError(t, err)

	for _, status := range []models.MaintenanceStatus{models.MaintenanceInProgress, models.MaintenanceCompleted, models.MaintenancePending} {
		updated, err := h.UpdateStatus(ctx, record.ID, status, "tech")
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
		assert.Equal(t, "Fuser error 50.2", updated.IssueDescription)
		assert.Equal(t, "alice", updated.ReportedBy)
		assert.True(t, reportedAt.Equal(updated.ReportedAt))
	}

	_, err = h.UpdateStatus(ctx, record.ID, models.MaintenanceStatus("done"), "tech")
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = h.UpdateStatus(ctx, 4242, models.MaintenanceCompleted, "tech")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDiagnosisRepairAndRemarks(t *testing.T) {
	db := dbtest.New(t)
	h := NewMaintenanceHandler(db, nil, nil)
	ctx := context.Background()
	printer := newPrinter(t, db, false)

	record, err := h.CreateRecord(ctx, CreateRecordRequest{PrinterID: printer.ID, IssueDescription: "Noisy", ReportedBy: "bob"})
	require.NoError(t, err)

	diagnosed, err := h.RecordDiagnosis(ctx, record.ID, "Worn pickup roller", "tech1")
	require.NoError(t, err)
	assert.Equal(t, "Worn pickup roller", *diagnosed.Diagnosis)
	assert.NotNil(t, diagnosed.DiagnosedAt)

	_, err = h.RecordRepair(ctx, record.ID, RepairRequest{Technician: "tech1", RepairCost: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, apperr.ErrValidation)

	next := time.Now().AddDate(0, 3, 0)
	repaired, err := h.RecordRepair(ctx, record.ID, RepairRequest{
		Technician:          "tech1",
		PartsUsed:           []string{"RM2-5452", " "},
		RepairCost:          decimal.RequireFromString("45.50"),
		NextMaintenanceDate: &next,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StringArray{"RM2-5452"}, repaired.PartsUsed)

	reloaded, err := h.GetRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("45.5").Equal(reloaded.RepairCost))
	assert.Equal(t, "Noisy", reloaded.IssueDescription)

	withRemarks, err := h.SetRemarks(ctx, record.ID, "Customer notified")
	require.NoError(t, err)
	assert.Equal(t, "Customer notified", *withRemarks.Remarks)

	due, err := h.ListDue(ctx, time.Now().AddDate(0, 4, 0))
	require.NoError(t, err)
	assert.Len(t, due, 1)
	notDue, err := h.ListDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, notDue)
}

func TestListForPrinter_NewestFirst(t *testing.T) {
	db := dbtest.New(t)
	h := NewMaintenanceHandler(db, nil, nil)
	ctx := context.Background()
	printer := newPrinter(t, db, false)

	older := time.Now().Add(-48 * time.Hour)
	first, err := h.CreateRecord(ctx, CreateRecordRequest{PrinterID: printer.ID, IssueDescription: "A", ReportedBy: "x", ReportedAt: &older})
	require.NoError(t, err)
	second, err := h.CreateRecord(ctx, CreateRecordRequest{PrinterID: printer.ID, IssueDescription: "B", ReportedBy: "x"})
	require.NoError(t, err)

	records, err := h.ListForPrinter(ctx, printer.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID)
	assert.Equal(t, first.ID, records[1].ID)
}

func TestGenerateServiceReport_UpsertsSingleRow(t *testing.T) {
	db := dbtest.New(t)
	h := NewMaintenanceHandler(db, nil, nil)
	ctx := context.Background()
	printer := newPrinter(t, db, true)

	record, err := h.CreateRecord(ctx, CreateRecordRequest{PrinterID: printer.ID, IssueDescription: "No power", ReportedBy: "carol"})
	require.NoError(t, err)

	first, err := h.GenerateServiceReport(ctx, record.ID, "tech1")
	require.NoError(t, err)
	assert.Regexp(t, `^SR-\d{8}-[0-9A-F]{8}$`, first.ReportNumber)

	_, err = h.UpdateStatus(ctx, record.ID, models.MaintenanceCompleted, "tech1")
	require.NoError(t, err)

	second, err := h.GenerateServiceReport(ctx, record.ID, "tech2")
	require.NoError(t, err)
	assert.Equal(t, first.ReportNumber, second.ReportNumber)

	var count int64
	require.NoError(t, db.Model(&models.MaintenanceReport{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	snapshot, err := DecodeSnapshot(second)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceCompleted, snapshot.Record.Status)
	assert.Equal(t, "tech2", snapshot.GeneratedBy)
	assert.Equal(t, models.PrinterDeployed, snapshot.Printer.Status)
	require.NotNil(t, snapshot.Printer.ClientName)
	assert.Equal(t, "Acme", *snapshot.Printer.ClientName)

	_, err = h.GetReport(ctx, 999)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
