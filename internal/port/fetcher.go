// Package port declares the interfaces between the export core and its
// external collaborators.
package port

import (
	"context"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/filter"
)

// DocumentFetcher retrieves candidate accounting documents from the
// bookkeeping backend. The returned sequence is ordered by issue date then
// document number; the caller relies on that ordering for deterministic
// archives. Transport or auth failures wrap domain.ErrFetchUnavailable or
// domain.ErrFetchRejected.
type DocumentFetcher interface {
	Fetch(ctx context.Context, predicate filter.QueryPredicate) ([]domain.AccountingDocument, error)
}
