package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/api/responses"
	"github.com/angelmondragon/supplyhub-backend/api/validators"
	"github.com/angelmondragon/supplyhub-backend/internal/ledger"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/pagination"
)

type ledgerEntryResponse struct {
	ID            uuid.UUID                 `json:"id"`
	Type          enums.LedgerEntryType     `json:"type"`
	Amount        decimal.Decimal           `json:"amount"`
	BalanceAfter  decimal.Decimal           `json:"balance_after"`
	ReferenceType enums.LedgerReferenceType `json:"reference_type"`
	ReferenceID   uuid.UUID                 `json:"reference_id"`
	Description   *string                   `json:"description,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
}

type ledgerStatementResponse struct {
	SupplierID uuid.UUID             `json:"supplier_id"`
	Balance    decimal.Decimal       `json:"balance"`
	Entries    []ledgerEntryResponse `json:"entries"`
}

// GetLedgerStatement returns the acting supplier's balance and latest entries.
func GetLedgerStatement(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actx, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stmt, err := svc.Statement(r.Context(), actx, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := ledgerStatementResponse{
			SupplierID: stmt.SupplierID,
			Balance:    stmt.Balance,
			Entries:    make([]ledgerEntryResponse, 0, len(stmt.Entries)),
		}
		for _, e := range stmt.Entries {
			out.Entries = append(out.Entries, ledgerEntryResponse{
				ID:            e.ID,
				Type:          e.Type,
				Amount:        e.Amount,
				BalanceAfter:  e.BalanceAfter,
				ReferenceType: e.ReferenceType,
				ReferenceID:   e.ReferenceID,
				Description:   e.Description,
				CreatedAt:     e.CreatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
