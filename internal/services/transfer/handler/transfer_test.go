package handler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/database/dbtest"
	"printfleet-system/internal/database/models"
	"printfleet-system/internal/events"
)

func strp(s string) *string { return &s }

func seed(t *testing.T, db *gorm.DB) (models.Printer, models.Client, models.Client) {
	t.Helper()
	from := models.Client{Name: "Acme"}
	to := models.Client{Name: "Globex"}
	require.NoError(t, db.Create(&from).Error)
	require.NoError(t, db.Create(&to).Error)

	printer := models.Printer{
		Make: "HP", Model: "M428fdn", Status: models.PrinterDeployed, Ownership: models.OwnershipSystemAsset,
		ClientID: &from.ID, Department: strp("Finance"), AssignedTo: strp("alice"),
	}
	require.NoError(t, db.Create(&printer).Error)
	return printer, from, to
}

func TestRecordTransfer_AppliesDestination(t *testing.T) {
	db := dbtest.New(t)
	h := NewTransferHandler(db, nil, nil)
	printer, from, to := seed(t, db)

	entry, err := h.RecordTransfer(context.Background(), RecordTransferRequest{
		PrinterID:     printer.ID,
		To:            Party{ClientID: &to.ID, Department: strp("Ops"), User: strp("bob")},
		Notes:         strp("Office move"),
		TransferredBy: "admin",
	})
	require.NoError(t, err)

	require.NotNil(t, entry.FromClientID)
	assert.Equal(t, from.ID, *entry.FromClientID)
	assert.Equal(t, "Finance", *entry.FromDepartment)
	assert.Equal(t, "alice", *entry.FromUser)

	var reloaded models.Printer
	require.NoError(t, db.First(&reloaded, printer.ID).Error)
	assert.Equal(t, to.ID, *reloaded.ClientID)
	assert.Equal(t, "Ops", *reloaded.Department)
	assert.Equal(t, "bob", *reloaded.AssignedTo)
	assert.Equal(t, models.PrinterDeployed, reloaded.Status)
}

func TestRecordTransfer_ResolvesDestinationDepartment(t *testing.T) {
	db := dbtest.New(t)
	h := NewTransferHandler(db, nil, nil)
	ctx := context.Background()
	printer, from, to := seed(t, db)

	finance := models.Department{ClientID: from.ID, Name: "Finance"}
	legal := models.Department{ClientID: from.ID, Name: "Legal"}
	ops := models.Department{ClientID: to.ID, Name: "Ops"}
	require.NoError(t, db.Create(&finance).Error)
	require.NoError(t, db.Create(&legal).Error)
	require.NoError(t, db.Create(&ops).Error)
	require.NoError(t, db.Model(&printer).Update("department_id", finance.ID).Error)

	reload := func() models.Printer {
		var p models.Printer
		require.NoError(t, db.First(&p, printer.ID).Error)
		return p
	}

	_, err := h.RecordTransfer(ctx, RecordTransferRequest{
		PrinterID: printer.ID, To: Party{ClientID: &from.ID, Department: strp("Legal")}, TransferredBy: "admin",
	})
	require.NoError(t, err)
	p := reload()
	require.NotNil(t, p.DepartmentID)
	assert.Equal(t, legal.ID, *p.DepartmentID)

	_, err = h.RecordTransfer(ctx, RecordTransferRequest{
		PrinterID: printer.ID, To: Party{ClientID: &from.ID, Department: strp("Warehouse")}, TransferredBy: "admin",
	})
	require.NoError(t, err)
	p = reload()
	assert.Equal(t, "Warehouse", *p.Department)
	assert.Nil(t, p.DepartmentID)

	_, err = h.RecordTransfer(ctx, RecordTransferRequest{
		PrinterID: printer.ID, To: Party{ClientID: &to.ID, Department: strp("Finance")}, TransferredBy: "admin",
	})
	require.NoError(t, err)
	p = reload()
	assert.Equal(t, "Finance", *p.Department)
	assert.Nil(t, p.DepartmentID)

	_, err = h.RecordTransfer(ctx, RecordTransferRequest{
		PrinterID: printer.ID, To: Party{ClientID: &to.ID, Department: strp("Ops")}, TransferredBy: "admin",
	})
	require.NoError(t, err)
	p = reload()
	require.NotNil(t, p.DepartmentID)
	assert.Equal(t, ops.ID, *p.DepartmentID)
}

func TestRecordTransfer_ToStockMakesAvailable(t *testing.T) {
	db := dbtest.New(t)
	h := NewTransferHandler(db, nil, nil)
	printer, _, _ := seed(t, db)

	_, err := h.RecordTransfer(context.Background(), RecordTransferRequest{PrinterID: printer.ID, TransferredBy: "admin"})
	require.NoError(t, err)

	var reloaded models.Printer
	require.NoError(t, db.First(&reloaded, printer.ID).Error)
	assert.Nil(t, reloaded.ClientID)
	assert.Nil(t, reloaded.AssignedTo)
	assert.Equal(t, models.PrinterAvailable, reloaded.Status)
}

func TestRecordTransfer_FailureWritesNothing(t *testing.T) {
	db := dbtest.New(t)
	h := NewTransferHandler(db, nil, nil)
	printer, from, _ := seed(t, db)
	ctx := context.Background()

	missing := int64(999)
	_, err := h.RecordTransfer(ctx, RecordTransferRequest{PrinterID: printer.ID, To: Party{ClientID: &missing}, TransferredBy: "admin"})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = h.RecordTransfer(ctx, RecordTransferRequest{PrinterID: 12345, TransferredBy: "admin"})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = h.RecordTransfer(ctx, RecordTransferRequest{PrinterID: printer.ID})
	require.ErrorIs(t, err, apperr.ErrValidation)

	var count int64
	require.NoError(t, db.Model(&models.TransferLog{}).Count(&count).Error)
	assert.Zero(t, count)

	var reloaded models.Printer
	require.NoError(t, db.First(&reloaded, printer.ID).Error)
	assert.Equal(t, from.ID, *reloaded.ClientID)
}

func TestListTransfersForPrinter_NewestFirst(t *testing.T) {
	db := dbtest.New(t)
	h := NewTransferHandler(db, nil, nil)
	printer, _, to := seed(t, db)
	ctx := context.Background()

	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	older := day.AddDate(0, 0, -3)

	first, err := h.RecordTransfer(ctx, RecordTransferRequest{PrinterID: printer.ID, To: Party{ClientID: &to.ID}, TransferredBy: "a", Date: &day})
	require.NoError(t, err)
	second, err := h.RecordTransfer(ctx, RecordTransferRequest{PrinterID: printer.ID, TransferredBy: "b", Date: &day})
	require.NoError(t, err)
	oldest, err := h.RecordTransfer(ctx, RecordTransferRequest{PrinterID: printer.ID, TransferredBy: "c", Date: &older})
	require.NoError(t, err)

	list, err := h.ListTransfersForPrinter(ctx, printer.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{second.ID, first.ID, oldest.ID}, []int64{list[0].ID, list[1].ID, list[2].ID})

	recent, err := h.ListRecentTransfers(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestRecordTransfer_PublishesEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	db := dbtest.New(t)
	h := NewTransferHandler(db, rdb, nil)
	printer, _, _ := seed(t, db)

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, events.Channel(events.TransferRecorded))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	_, err = h.RecordTransfer(ctx, RecordTransferRequest{PrinterID: printer.ID, TransferredBy: "admin"})
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		assert.Contains(t, msg.Payload, `"event_type":"transfer.recorded"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no transfer event received")
	}
}
