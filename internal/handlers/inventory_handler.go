package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/models"
	"github.com/salonpos/backend/internal/services"
)

type inventoryStore interface {
	CreateItem(ctx context.Context, req services.StockItemRequest, actor string) (*models.StockItem, error)
	ListItems(ctx context.Context, lowOnly bool) ([]models.StockItem, error)
	RecordPurchase(ctx context.Context, req services.PurchaseRequest, actor string) (*models.PurchaseReceipt, error)
	AdjustStock(ctx context.Context, itemID string, req services.AdjustmentRequest, actor string) (*models.StockItem, error)
	ListMovements(ctx context.Context, itemID string) ([]models.StockMovement, error)
}

type InventoryHandler struct {
	inventory inventoryStore
	log       zerolog.Logger
}

func NewInventoryHandler(inventory inventoryStore) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, log: logger.WithComponent("inventory_handler")}
}

// ListItems returns stock items. ?low=true narrows to items due for reorder.
// @Summary List stock items
// @Tags inventory
// @Produce json
// @Security BearerAuth
// @Param low query bool false "only items at or below reorder level"
// @Success 200 {array} models.StockItem
// @Router /inventory/items [get]
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.ListItems(r.Context(), r.URL.Query().Get("low") == "true")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if items == nil {
		items = []models.StockItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *InventoryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req services.StockItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.inventory.CreateItem(r.Context(), req, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Adjust records product usage or a stock-count correction.
// @Summary Adjust stock
// @Tags inventory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "stock item id"
// @Param request body services.AdjustmentRequest true "Adjustment"
// @Success 200 {object} models.StockItem
// @Failure 422 {object} services.ErrorResponse "insufficient stock"
// @Router /inventory/items/{id}/adjustments [post]
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req services.AdjustmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.inventory.AdjustStock(r.Context(), chi.URLParam(r, "id"), req, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) Movements(w http.ResponseWriter, r *http.Request) {
	list, err := h.inventory.ListMovements(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if list == nil {
		list = []models.StockMovement{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *InventoryHandler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	var req services.PurchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	receipt, err := h.inventory.RecordPurchase(r.Context(), req, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}
