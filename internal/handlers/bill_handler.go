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

type billPoster interface {
	CreateBill(ctx context.Context, req services.CreateBillRequest, actor string) (*models.Bill, error)
	GetBill(ctx context.Context, id string) (*models.Bill, error)
}

type receiptBuilder interface {
	ForBill(ctx context.Context, billID string) (*services.Receipt, error)
}

type BillHandler struct {
	bills    billPoster
	receipts receiptBuilder
	log      zerolog.Logger
}

func NewBillHandler(bills billPoster, receipts receiptBuilder) *BillHandler {
	return &BillHandler{bills: bills, receipts: receipts, log: logger.WithComponent("bill_handler")}
}

// Create posts a bill: items, discount, tax, payments and any pending
// balance movement happen in one transaction.
// @Summary Post bill
// @Tags bills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateBillRequest true "Bill"
// @Success 201 {object} models.Bill
// @Failure 400 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /bills [post]
func (h *BillHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateBillRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bill, err := h.bills.CreateBill(r.Context(), req, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	bill, err := h.bills.GetBill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (h *BillHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.receipts.ForBill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
