package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"mediahub-credits-api/internal/middleware"
	"mediahub-credits-api/internal/model"
	"mediahub-credits-api/internal/service"
	"mediahub-credits-api/pkg/apierror"
	"mediahub-credits-api/pkg/response"
)

// PurchaseHandler exposes the settlement engine's sole mutating entry point.
type PurchaseHandler struct {
	settlement *service.SettlementService
}

// NewPurchaseHandler creates a new purchase handler.
func NewPurchaseHandler(settlement *service.SettlementService) *PurchaseHandler {
	return &PurchaseHandler{
		settlement: settlement,
	}
}

// PurchaseRequest represents the request body for a purchase.
type PurchaseRequest struct {
	MediaID        string `json:"media_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Purchase handles POST /api/v1/purchases
func (h *PurchaseHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	buyerID := middleware.CurrentUserID(r.Context())
	if buyerID == "" {
		response.Error(w, apierror.Unauthorized("Purchase requires an authenticated user"))
		return
	}

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.MediaID == "" {
		response.Error(w, apierror.BadRequest("media_id is required"))
		return
	}
	if req.IdempotencyKey == "" {
		response.Error(w, apierror.BadRequest("idempotency_key is required"))
		return
	}

	result, err := h.settlement.Purchase(r.Context(), model.PurchaseIntent{
		BuyerID:        buyerID,
		MediaID:        req.MediaID,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(w, settlementError(err))
		return
	}

	response.OK(w, result)
}

// settlementError maps the settlement error taxonomy to structured API
// errors. Only the category crosses this boundary.
func settlementError(err error) *apierror.Error {
	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		return apierror.Unauthorized("")
	case errors.Is(err, model.ErrInvalidPurchase):
		return apierror.New(http.StatusBadRequest, "INVALID_PURCHASE", err.Error())
	case errors.Is(err, model.ErrInsufficientFunds):
		return apierror.PaymentRequired("")
	case errors.Is(err, model.ErrMediaNotFound):
		return apierror.NotFound("media item not found")
	case errors.Is(err, model.ErrSettlementFailed):
		// Compensated: the buyer was not net-debited, safe to retry.
		return apierror.New(http.StatusServiceUnavailable, "SETTLEMENT_FAILED", "settlement failed, please try again")
	case errors.Is(err, model.ErrSettlementInconsistent):
		// Escalated for manual reconciliation; do not auto-retry.
		return apierror.New(http.StatusInternalServerError, "SETTLEMENT_INCONSISTENT", "settlement requires manual review")
	case errors.Is(err, model.ErrStoreUnavailable):
		return apierror.ServiceUnavailable("store unavailable, retry with the same idempotency key")
	default:
		return apierror.InternalError("")
	}
}
