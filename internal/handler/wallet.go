package handler

import (
	"net/http"
	"time"

	"mediahub-credits-api/internal/middleware"
	"mediahub-credits-api/internal/model"
	"mediahub-credits-api/internal/service"
	"mediahub-credits-api/pkg/apierror"
	"mediahub-credits-api/pkg/response"
)

// WalletHandler serves the polling surface: balances, unlock grants and sale
// history. Event subscribers use these endpoints as their fallback source of
// truth.
type WalletHandler struct {
	settlement *service.SettlementService
}

// NewWalletHandler creates a new wallet handler.
func NewWalletHandler(settlement *service.SettlementService) *WalletHandler {
	return &WalletHandler{
		settlement: settlement,
	}
}

// BalanceResponse represents the balance payload.
type BalanceResponse struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
}

// GetBalance handles GET /api/v1/wallet/balance
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.CurrentUserID(r.Context())
	if userID == "" {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	amount, err := h.settlement.GetBalance(r.Context(), userID)
	if err != nil {
		response.Error(w, settlementError(err))
		return
	}

	response.OK(w, BalanceResponse{UserID: userID, Amount: amount})
}

// UnlockEntry is one grant with its display validity.
type UnlockEntry struct {
	model.UnlockGrant
	Active bool `json:"active"`
}

// ListUnlocks handles GET /api/v1/wallet/unlocks
func (h *WalletHandler) ListUnlocks(w http.ResponseWriter, r *http.Request) {
	userID := middleware.CurrentUserID(r.Context())
	if userID == "" {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	grants, err := h.settlement.ListUnlocks(r.Context(), userID)
	if err != nil {
		response.Error(w, settlementError(err))
		return
	}

	now := time.Now()
	unlocks := make([]UnlockEntry, len(grants))
	for i := range grants {
		unlocks[i] = UnlockEntry{UnlockGrant: grants[i], Active: grants[i].ActiveAt(now)}
	}

	response.OK(w, map[string]interface{}{
		"user_id": userID,
		"unlocks": unlocks,
	})
}

// ListSales handles GET /api/v1/sales
func (h *WalletHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	sellerID := middleware.CurrentUserID(r.Context())
	if sellerID == "" {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	sales, err := h.settlement.ListSales(r.Context(), sellerID)
	if err != nil {
		response.Error(w, settlementError(err))
		return
	}

	response.OK(w, map[string]interface{}{
		"seller_id": sellerID,
		"sales":     sales,
	})
}
