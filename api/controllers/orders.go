package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/vendomarket-backend/api/responses"
	"github.com/angelmondragon/vendomarket-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/vendomarket-backend/internal/checkout"
	"github.com/angelmondragon/vendomarket-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
)

type confirmOrderRequest struct {
	PaymentRef string `json:"payment_ref" validate:"required"`
}

// OrdersConfirm re-verifies the payment with the processor and materializes
// the order. Safe to race with the webhook: both paths converge on the same
// idempotent materializer.
func OrdersConfirm(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload confirmOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmOrder(r.Context(), payload.PaymentRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrdersList returns the calling buyer's orders, newest first.
func OrdersList(repo orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order repository unavailable"))
			return
		}

		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := repo.ListByBuyer(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrdersGet returns one order, with its line items and timelines, by its
// human-readable code.
func OrdersGet(repo orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order repository unavailable"))
			return
		}

		code := chi.URLParam(r, "code")
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order code required"))
			return
		}

		order, err := repo.FindByCode(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
