package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendomarket-backend/api/middleware"
	"github.com/angelmondragon/vendomarket-backend/api/responses"
	"github.com/angelmondragon/vendomarket-backend/internal/settlements"
	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
)

// SettlementsProcess runs a settlement batch on demand. The cron worker runs
// the same batch on its weekly cadence.
func SettlementsProcess(svc *settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		result, err := svc.ProcessDue(r.Context())
		if err != nil {
			// Partial batches still report what went through.
			if result != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settlement batch partially failed").
						WithDetails(result))
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SettlementsPending lists the calling seller's settlement rows.
func SettlementsPending(repo settlements.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement repository unavailable"))
			return
		}

		raw := middleware.SellerIDFromContext(r.Context())
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "seller identity missing"))
			return
		}
		sellerID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "seller identity invalid"))
			return
		}

		rows, err := repo.FindBySeller(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pendingCents := 0
		for _, row := range rows {
			if row.Status == enums.SettlementStatusPending {
				pendingCents += row.CommissionCents
			}
		}
		responses.WriteSuccess(w, map[string]any{
			"settlements":   rows,
			"pending_cents": pendingCents,
		})
	}
}
