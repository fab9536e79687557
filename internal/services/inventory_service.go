package services

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/models"
)

const stockItemColumns = `id, name, sku, unit, quantity_on_hand, reorder_level, unit_cost, created_at, updated_at`

const movementColumns = `id, stock_item_id, kind, quantity_delta, quantity_after, receipt_id, reason, created_by, created_at`

// InventoryService keeps product stock. Every quantity change is written as
// a stock movement in the same transaction that updates the item.
type InventoryService struct {
	db        *sql.DB
	audit     *AuditRecorder
	metrics   *Metrics
	validator *ValidationHelper
	log       zerolog.Logger
	now       func() time.Time
}

func NewInventoryService(db *sql.DB, audit *AuditRecorder, metrics *Metrics) *InventoryService {
	return &InventoryService{
		db:        db,
		audit:     audit,
		metrics:   metrics,
		validator: NewValidationHelper(),
		log:       logger.WithComponent("inventory"),
		now:       time.Now,
	}
}

type StockItemRequest struct {
	Name         string  `json:"name" validate:"required,max=120"`
	SKU          *string `json:"sku" validate:"omitempty,max=40"`
	Unit         string  `json:"unit" validate:"max=20"`
	ReorderLevel int64   `json:"reorder_level" validate:"gte=0,lte=1000000"`
	UnitCost     int64   `json:"unit_cost" validate:"gte=0,lte=100000000"`
}

type PurchaseLine struct {
	StockItemID string `json:"stock_item_id" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"gte=1,lte=100000"`
	UnitCost    int64  `json:"unit_cost" validate:"gte=0,lte=100000000"`
}

type PurchaseRequest struct {
	SupplierName string         `json:"supplier_name" validate:"required,max=120"`
	Reference    string         `json:"reference" validate:"max=60"`
	Items        []PurchaseLine `json:"items" validate:"required,min=1,max=100,dive"`
	Notes        string         `json:"notes" validate:"max=500"`
}

// AdjustmentRequest records product used on clients (USAGE, always
// negative) or a stock-count correction (ADJUSTMENT, either sign).
type AdjustmentRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=USAGE ADJUSTMENT"`
	Delta  int64  `json:"quantity_delta" validate:"ne=0,gte=-100000,lte=100000"`
	Reason string `json:"reason" validate:"required,max=500"`
}

func scanStockItem(row rowScanner) (*models.StockItem, error) {
	var i models.StockItem
	err := row.Scan(&i.ID, &i.Name, &i.SKU, &i.Unit, &i.QuantityOnHand, &i.ReorderLevel, &i.UnitCost,
		&i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (s *InventoryService) CreateItem(ctx context.Context, req StockItemRequest, actor string) (*models.StockItem, error) {
	const op = "CreateStockItem"
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid(op, err)
	}

	item := &models.StockItem{
		ID:           models.NewID(),
		Name:         req.Name,
		SKU:          req.SKU,
		Unit:         cmp.Or(strings.TrimSpace(req.Unit), "pcs"),
		ReorderLevel: req.ReorderLevel,
		UnitCost:     req.UnitCost,
	}
	item.Touch(s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_items (id, name, sku, unit, reorder_level, unit_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.Name, item.SKU, item.Unit, item.ReorderLevel, item.UnitCost, item.CreatedAt, item.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, wrap(op, fmt.Errorf("%w: sku", ErrDuplicate))
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "stock_item.create", "stock_item", item.ID, nil, item); err != nil {
		return nil, wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}

	s.log.Info().Str("stock_item_id", item.ID).Str("name", item.Name).Msg("stock item created")
	return item, nil
}

// ListItems returns items by name. With lowOnly set, only items at or
// below their reorder level are returned.
func (s *InventoryService) ListItems(ctx context.Context, lowOnly bool) ([]models.StockItem, error) {
	query := `SELECT ` + stockItemColumns + ` FROM stock_items`
	if lowOnly {
		query += ` WHERE quantity_on_hand <= reorder_level`
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY name`)
	if err != nil {
		return nil, wrap("ListStockItems", err)
	}
	defer rows.Close()

	items := []models.StockItem{}
	for rows.Next() {
		i, err := scanStockItem(rows)
		if err != nil {
			return nil, wrap("ListStockItems", err)
		}
		items = append(items, *i)
	}
	return items, wrap("ListStockItems", rows.Err())
}

func (s *InventoryService) lockItem(ctx context.Context, tx DBTX, id string) (*models.StockItem, error) {
	item, err := scanStockItem(tx.QueryRowContext(ctx,
		`SELECT `+stockItemColumns+` FROM stock_items WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stock item %s: %w", id, ErrNotFound)
	}
	return item, err
}

// move applies delta to a locked item and appends the movement row.
func (s *InventoryService) move(ctx context.Context, tx DBTX, item *models.StockItem, kind string, delta int64,
	receiptID *string, reason, actor string, now time.Time) (*models.StockMovement, error) {
	after := item.QuantityOnHand + delta
	if after < 0 {
		return nil, fmt.Errorf("%w: %s has %d, change %d", ErrInsufficientStock, item.Name, item.QuantityOnHand, delta)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE stock_items SET quantity_on_hand = $1, unit_cost = $2, updated_at = $3 WHERE id = $4`,
		after, item.UnitCost, now, item.ID); err != nil {
		return nil, err
	}
	item.QuantityOnHand = after
	item.Touch(now)

	m := &models.StockMovement{
		ID:            models.NewID(),
		StockItemID:   item.ID,
		Kind:          kind,
		QuantityDelta: delta,
		QuantityAfter: after,
		ReceiptID:     receiptID,
		Reason:        reason,
		CreatedBy:     actor,
		CreatedAt:     now,
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_movements (`+movementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.StockItemID, m.Kind, m.QuantityDelta, m.QuantityAfter, m.ReceiptID, m.Reason, m.CreatedBy, m.CreatedAt)
	return m, err
}

// RecordPurchase books a supplier delivery. Items are locked in id order so
// two deliveries touching the same products cannot deadlock.
func (s *InventoryService) RecordPurchase(ctx context.Context, req PurchaseRequest, actor string) (*models.PurchaseReceipt, error) {
	const op = "RecordPurchase"
	req.SupplierName = strings.TrimSpace(req.SupplierName)
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid(op, err)
	}

	lines := slices.Clone(req.Items)
	slices.SortFunc(lines, func(a, b PurchaseLine) int { return strings.Compare(a.StockItemID, b.StockItemID) })
	var total int64
	for i, l := range lines {
		if i > 0 && lines[i-1].StockItemID == l.StockItemID {
			return nil, invalid(op, fmt.Errorf("stock item %s listed more than once", l.StockItemID))
		}
		total += l.Quantity * l.UnitCost
	}

	now := s.now()
	receipt := &models.PurchaseReceipt{
		ID:           models.NewID(),
		SupplierName: req.SupplierName,
		Reference:    strings.TrimSpace(req.Reference),
		Total:        total,
		Notes:        req.Notes,
		ReceivedBy:   actor,
		ReceivedAt:   now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO purchase_receipts (id, supplier_name, reference, total, notes, received_by, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		receipt.ID, receipt.SupplierName, receipt.Reference, receipt.Total, receipt.Notes,
		receipt.ReceivedBy, receipt.ReceivedAt); err != nil {
		return nil, wrap(op, err)
	}

	for _, l := range lines {
		item, err := s.lockItem(ctx, tx, l.StockItemID)
		if err != nil {
			return nil, wrap(op, err)
		}
		line := models.PurchaseReceiptItem{
			ID:          models.NewID(),
			ReceiptID:   receipt.ID,
			StockItemID: item.ID,
			Quantity:    l.Quantity,
			UnitCost:    l.UnitCost,
			LineTotal:   l.Quantity * l.UnitCost,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_receipt_items (id, receipt_id, stock_item_id, quantity, unit_cost, line_total)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			line.ID, line.ReceiptID, line.StockItemID, line.Quantity, line.UnitCost, line.LineTotal); err != nil {
			return nil, wrap(op, err)
		}
		item.UnitCost = l.UnitCost
		if _, err := s.move(ctx, tx, item, models.MovementPurchase, l.Quantity, &receipt.ID,
			"purchase from "+receipt.SupplierName, actor, now); err != nil {
			return nil, wrap(op, err)
		}
		receipt.Items = append(receipt.Items, line)
	}

	if err := s.audit.RecordEvent(ctx, tx, EventStockPurchased, "purchase_receipt", receipt.ID, map[string]any{
		"supplier": receipt.SupplierName,
		"total":    receipt.Total,
		"lines":    len(receipt.Items),
	}); err != nil {
		return nil, wrap(op, err)
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "purchase.record", "purchase_receipt", receipt.ID, nil, receipt); err != nil {
		return nil, wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}

	s.metrics.stockMoved(models.MovementPurchase, len(receipt.Items))
	s.log.Info().
		Str("receipt_id", receipt.ID).
		Str("supplier", receipt.SupplierName).
		Int64("total", receipt.Total).
		Msg("purchase recorded")
	return receipt, nil
}

// AdjustStock records usage or a count correction. Stock never goes
// below zero.
func (s *InventoryService) AdjustStock(ctx context.Context, itemID string, req AdjustmentRequest, actor string) (*models.StockItem, error) {
	const op = "AdjustStock"
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid(op, err)
	}
	if req.Kind == models.MovementUsage && req.Delta > 0 {
		return nil, invalid(op, errors.New("usage must reduce stock"))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer tx.Rollback()

	item, err := s.lockItem(ctx, tx, itemID)
	if err != nil {
		return nil, wrap(op, err)
	}
	before := *item
	m, err := s.move(ctx, tx, item, req.Kind, req.Delta, nil, req.Reason, actor, s.now())
	if err != nil {
		return nil, wrap(op, err)
	}

	if err := s.audit.RecordEvent(ctx, tx, EventStockAdjusted, "stock_item", item.ID, map[string]any{
		"kind":           m.Kind,
		"quantity_delta": m.QuantityDelta,
		"quantity_after": m.QuantityAfter,
	}); err != nil {
		return nil, wrap(op, err)
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "stock_item.adjust", "stock_item", item.ID, before, item); err != nil {
		return nil, wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}

	s.metrics.stockMoved(req.Kind, 1)
	ev := s.log.Info()
	if item.NeedsReorder() {
		ev = s.log.Warn().Int64("reorder_level", item.ReorderLevel)
	}
	ev.Str("stock_item_id", item.ID).
		Str("kind", req.Kind).
		Int64("quantity_after", item.QuantityOnHand).
		Msg("stock adjusted")
	return item, nil
}

// ListMovements returns the most recent movements of an item, newest first.
func (s *InventoryService) ListMovements(ctx context.Context, itemID string) ([]models.StockMovement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+movementColumns+`
		FROM stock_movements
		WHERE stock_item_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 200`, itemID)
	if err != nil {
		return nil, wrap("ListStockMovements", err)
	}
	defer rows.Close()

	movements := []models.StockMovement{}
	for rows.Next() {
		var m models.StockMovement
		if err := rows.Scan(&m.ID, &m.StockItemID, &m.Kind, &m.QuantityDelta, &m.QuantityAfter, &m.ReceiptID,
			&m.Reason, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, wrap("ListStockMovements", err)
		}
		movements = append(movements, m)
	}
	return movements, wrap("ListStockMovements", rows.Err())
}
