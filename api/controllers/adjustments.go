package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/vendomarket-backend/api/responses"
	"github.com/angelmondragon/vendomarket-backend/api/validators"
	"github.com/angelmondragon/vendomarket-backend/internal/adjustments"
	"github.com/angelmondragon/vendomarket-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
)

type refundRequest struct {
	OrderCode   string `json:"order_code" validate:"required"`
	AmountCents int    `json:"amount_cents" validate:"required,min=1"`
}

// RefundsCreate initiates a refund with the processor. Ledger bookkeeping
// happens when the processor's refund event comes back through the webhook.
func RefundsCreate(svc *adjustments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "adjustment service unavailable"))
			return
		}

		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.InitiateRefund(r.Context(), payload.OrderCode, payload.AmountCents); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "refund_initiated"})
	}
}

// DisputeGet returns the dispute fields stored on the order.
func DisputeGet(repo orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order repository unavailable"))
			return
		}

		order, err := repo.FindByCode(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.DisputeID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order has no dispute"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"dispute_id":        order.DisputeID,
			"reason":            order.DisputeReason,
			"status":            order.DisputeStatus,
			"amount_cents":      order.DisputeAmountCents,
			"disputed_at":       order.DisputedAt,
			"dispute_closed_at": order.DisputeClosedAt,
		})
	}
}

type disputeEvidenceRequest struct {
	ProductDescription     string `json:"product_description,omitempty"`
	CustomerEmail          string `json:"customer_email,omitempty" validate:"omitempty,email"`
	ShippingTrackingNumber string `json:"shipping_tracking_number,omitempty"`
	Notes                  string `json:"notes,omitempty"`
}

// DisputeEvidenceSubmit forwards seller evidence for the order's open dispute.
func DisputeEvidenceSubmit(svc *adjustments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "adjustment service unavailable"))
			return
		}

		var payload disputeEvidenceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err := svc.SubmitDisputeEvidence(r.Context(), chi.URLParam(r, "code"), adjustments.DisputeEvidence{
			ProductDescription:     payload.ProductDescription,
			CustomerEmail:          payload.CustomerEmail,
			ShippingTrackingNumber: payload.ShippingTrackingNumber,
			Notes:                  payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "evidence_submitted"})
	}
}
