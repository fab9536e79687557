package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/salonpos/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stockItemCols = []string{"id", "name", "sku", "unit", "quantity_on_hand", "reorder_level", "unit_cost", "created_at", "updated_at"}

func stockItemRow(id string, onHand, reorder int64) *sqlmock.Rows {
	return sqlmock.NewRows(stockItemCols).
		AddRow(id, "Keratin shampoo "+id, nil, "btl", onHand, reorder, 45000, fixedNow, fixedNow)
}

func newTestInventory(t *testing.T) (*InventoryService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := func() time.Time { return fixedNow }
	audit := NewAuditRecorder()
	audit.now = clock
	svc := NewInventoryService(db, audit, nil)
	svc.now = clock
	return svc, mock
}

func TestInventoryService_CreateItem(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults the unit", func(t *testing.T) {
		svc, mock := newTestInventory(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO stock_items").
			WithArgs(sqlmock.AnyArg(), "Hair serum", nil, "pcs", int64(5), int64(30000), fixedNow, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		item, err := svc.CreateItem(ctx, StockItemRequest{Name: " Hair serum ", ReorderLevel: 5, UnitCost: 30000}, "owner1")
		require.NoError(t, err)
		assert.Equal(t, "pcs", item.Unit)
		assert.Zero(t, item.QuantityOnHand)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate sku", func(t *testing.T) {
		svc, mock := newTestInventory(t)
		sku := "SER-01"

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO stock_items").WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		_, err := svc.CreateItem(ctx, StockItemRequest{Name: "Hair serum", SKU: &sku}, "owner1")
		assert.ErrorIs(t, err, ErrDuplicate)
		assert.Equal(t, KindConflict, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blank name", func(t *testing.T) {
		svc, _ := newTestInventory(t)
		_, err := svc.CreateItem(ctx, StockItemRequest{Name: "   "}, "owner1")
		assert.Equal(t, KindValidation, KindOf(err))
	})
}

func TestInventoryService_RecordPurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("increases stock in item order", func(t *testing.T) {
		svc, mock := newTestInventory(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO purchase_receipts").
			WithArgs(sqlmock.AnyArg(), "Lakme Distributors", "INV-881", int64(2*45000+10*1200), "", "owner1", fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery("FROM stock_items WHERE id = \\$1 FOR UPDATE").
			WithArgs("itemA").
			WillReturnRows(stockItemRow("itemA", 1, 2))
		mock.ExpectExec("INSERT INTO purchase_receipt_items").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "itemA", int64(2), int64(45000), int64(90000)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE stock_items SET quantity_on_hand").
			WithArgs(int64(3), int64(45000), fixedNow, "itemA").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO stock_movements").
			WithArgs(sqlmock.AnyArg(), "itemA", models.MovementPurchase, int64(2), int64(3), sqlmock.AnyArg(),
				"purchase from Lakme Distributors", "owner1", fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery("FROM stock_items WHERE id = \\$1 FOR UPDATE").
			WithArgs("itemB").
			WillReturnRows(stockItemRow("itemB", 0, 0))
		mock.ExpectExec("INSERT INTO purchase_receipt_items").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE stock_items SET quantity_on_hand").
			WithArgs(int64(10), int64(1200), fixedNow, "itemB").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO stock_movements").WillReturnResult(sqlmock.NewResult(0, 1))

		expectAudit(mock)
		mock.ExpectCommit()

		receipt, err := svc.RecordPurchase(ctx, PurchaseRequest{
			SupplierName: "Lakme Distributors",
			Reference:    "INV-881",
			Items: []PurchaseLine{
				{StockItemID: "itemB", Quantity: 10, UnitCost: 1200},
				{StockItemID: "itemA", Quantity: 2, UnitCost: 45000},
			},
		}, "owner1")
		require.NoError(t, err)
		assert.Equal(t, int64(102000), receipt.Total)
		require.Len(t, receipt.Items, 2)
		assert.Equal(t, "itemA", receipt.Items[0].StockItemID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown item rolls back", func(t *testing.T) {
		svc, mock := newTestInventory(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO purchase_receipts").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM stock_items WHERE id = \\$1 FOR UPDATE").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(stockItemCols))
		mock.ExpectRollback()

		_, err := svc.RecordPurchase(ctx, PurchaseRequest{
			SupplierName: "Lakme Distributors",
			Items:        []PurchaseLine{{StockItemID: "ghost", Quantity: 1, UnitCost: 100}},
		}, "owner1")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("same item twice", func(t *testing.T) {
		svc, mock := newTestInventory(t)

		_, err := svc.RecordPurchase(ctx, PurchaseRequest{
			SupplierName: "Lakme Distributors",
			Items: []PurchaseLine{
				{StockItemID: "itemA", Quantity: 1, UnitCost: 100},
				{StockItemID: "itemA", Quantity: 2, UnitCost: 100},
			},
		}, "owner1")
		assert.Equal(t, KindValidation, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("quantity above the cap", func(t *testing.T) {
		svc, _ := newTestInventory(t)
		_, err := svc.RecordPurchase(ctx, PurchaseRequest{
			SupplierName: "Lakme Distributors",
			Items:        []PurchaseLine{{StockItemID: "itemA", Quantity: 1 << 40, UnitCost: 100}},
		}, "owner1")
		assert.Equal(t, KindValidation, KindOf(err))
	})
}

func TestInventoryService_AdjustStock(t *testing.T) {
	ctx := context.Background()

	t.Run("usage reduces stock", func(t *testing.T) {
		svc, mock := newTestInventory(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM stock_items WHERE id = \\$1 FOR UPDATE").
			WithArgs("itemA").
			WillReturnRows(stockItemRow("itemA", 4, 2))
		mock.ExpectExec("UPDATE stock_items SET quantity_on_hand").
			WithArgs(int64(1), int64(45000), fixedNow, "itemA").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO stock_movements").
			WithArgs(sqlmock.AnyArg(), "itemA", models.MovementUsage, int64(-3), int64(1), nil,
				"colour service", "sty1", fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectAudit(mock)
		mock.ExpectCommit()

		item, err := svc.AdjustStock(ctx, "itemA", AdjustmentRequest{
			Kind: models.MovementUsage, Delta: -3, Reason: " colour service ",
		}, "sty1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), item.QuantityOnHand)
		assert.True(t, item.NeedsReorder())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cannot go below zero", func(t *testing.T) {
		svc, mock := newTestInventory(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM stock_items WHERE id = \\$1 FOR UPDATE").
			WithArgs("itemA").
			WillReturnRows(stockItemRow("itemA", 2, 0))
		mock.ExpectRollback()

		_, err := svc.AdjustStock(ctx, "itemA", AdjustmentRequest{
			Kind: models.MovementAdjustment, Delta: -5, Reason: "stock count",
		}, "owner1")
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Equal(t, KindConsistency, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("usage cannot add stock", func(t *testing.T) {
		svc, mock := newTestInventory(t)
		_, err := svc.AdjustStock(ctx, "itemA", AdjustmentRequest{
			Kind: models.MovementUsage, Delta: 2, Reason: "oops",
		}, "owner1")
		assert.Equal(t, KindValidation, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blank reason", func(t *testing.T) {
		svc, _ := newTestInventory(t)
		_, err := svc.AdjustStock(ctx, "itemA", AdjustmentRequest{
			Kind: models.MovementAdjustment, Delta: 1, Reason: "  ",
		}, "owner1")
		assert.Equal(t, KindValidation, KindOf(err))
	})
}

func TestInventoryService_ListItems(t *testing.T) {
	svc, mock := newTestInventory(t)

	mock.ExpectQuery("FROM stock_items WHERE quantity_on_hand <= reorder_level ORDER BY name").
		WillReturnRows(stockItemRow("itemA", 1, 2))

	items, err := svc.ListItems(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].NeedsReorder())
	assert.NoError(t, mock.ExpectationsWereMet())
}
