// Package filter resolves an export filter specification into a concrete
// query predicate over accounting documents.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
)

// QueryPredicate is the normalized form of a FilterSpec. All constraints are
// combined with logical AND when matching a document.
type QueryPredicate struct {
	Kinds      []domain.DocumentKind
	IssuedFrom time.Time // zero means unbounded
	IssuedTo   time.Time // zero means unbounded
	States     domain.StateFilter
	Clauses    []domain.FilterClause
	Warnings   []string
}

// Resolve turns a FilterSpec into a QueryPredicate. It is total: invalid
// combinations degrade to the widest safe default and record a warning,
// never to an empty predicate that would silently export nothing.
func Resolve(spec domain.FilterSpec) QueryPredicate {
	p := QueryPredicate{Clauses: spec.Clauses}

	direction := spec.Direction
	if !direction.IsValid() {
		if direction != "" {
			p.Warnings = append(p.Warnings, fmt.Sprintf("unknown direction %q, using both", direction))
		}
		direction = domain.DirectionBoth
	}
	docType := spec.DocumentType
	if !docType.IsValid() {
		if docType != "" {
			p.Warnings = append(p.Warnings, fmt.Sprintf("unknown document type %q, using all", docType))
		}
		docType = domain.DocTypeAll
	}
	p.Kinds = kindsFor(direction, docType)

	p.States = spec.StateFilter
	if !p.States.IsValid() {
		if p.States != "" {
			p.Warnings = append(p.Warnings, fmt.Sprintf("unknown state filter %q, using posted", p.States))
		}
		p.States = domain.StatePostedOnly
	}

	from, to, warn := resolveDates(spec)
	p.IssuedFrom, p.IssuedTo = from, to
	if warn != "" {
		p.Warnings = append(p.Warnings, warn)
	}

	return p
}

func kindsFor(direction domain.Direction, docType domain.DocumentTypeFilter) []domain.DocumentKind {
	var kinds []domain.DocumentKind
	for _, k := range domain.AllDocumentKinds() {
		if direction == domain.DirectionOutgoing && !k.IsCustomerFacing() {
			continue
		}
		if direction == domain.DirectionIncoming && k.IsCustomerFacing() {
			continue
		}
		if docType == domain.DocTypeInvoice && k.IsCreditNote() {
			continue
		}
		if docType == domain.DocTypeRefund && !k.IsCreditNote() {
			continue
		}
		kinds = append(kinds, k)
	}
	return kinds
}

// quarterBounds maps a quarter code to its first month and last month.
var quarterBounds = map[string][2]time.Month{
	"Q1": {time.January, time.March},
	"Q2": {time.April, time.June},
	"Q3": {time.July, time.September},
	"Q4": {time.October, time.December},
}

func resolveDates(spec domain.FilterSpec) (from, to time.Time, warning string) {
	if spec.DateFrom != "" || spec.DateTo != "" {
		var err error
		if spec.DateFrom != "" {
			from, err = time.Parse("2006-01-02", spec.DateFrom)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Sprintf("unparseable date_from %q, date range not applied", spec.DateFrom)
			}
		}
		if spec.DateTo != "" {
			to, err = time.Parse("2006-01-02", spec.DateTo)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Sprintf("unparseable date_to %q, date range not applied", spec.DateTo)
			}
		}
		if !from.IsZero() && !to.IsZero() && to.Before(from) {
			return time.Time{}, time.Time{}, fmt.Sprintf("date_to %s before date_from %s, date range not applied", spec.DateTo, spec.DateFrom)
		}
		return from, to, ""
	}

	if spec.Quarter != "" {
		bounds, ok := quarterBounds[strings.ToUpper(spec.Quarter)]
		if !ok || spec.Year == 0 {
			return time.Time{}, time.Time{}, fmt.Sprintf("invalid quarter %q year %d, date range not applied", spec.Quarter, spec.Year)
		}
		from = time.Date(spec.Year, bounds[0], 1, 0, 0, 0, 0, time.UTC)
		// Last day of the quarter's final month.
		to = time.Date(spec.Year, bounds[1]+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
		return from, to, ""
	}

	return time.Time{}, time.Time{}, "no date range or quarter given, exporting all dates"
}

// Matches reports whether a document satisfies the predicate. Raw clauses
// are evaluated by the backend query, not here; a document handed to Matches
// is assumed to already satisfy them.
func (p QueryPredicate) Matches(doc domain.AccountingDocument) bool {
	if !p.kindMatches(doc.Kind) {
		return false
	}
	if !p.stateMatches(doc) {
		return false
	}
	if !p.IssuedFrom.IsZero() && doc.IssueDate.Before(p.IssuedFrom) {
		return false
	}
	if !p.IssuedTo.IsZero() && doc.IssueDate.After(p.IssuedTo) {
		return false
	}
	return true
}

func (p QueryPredicate) kindMatches(kind domain.DocumentKind) bool {
	for _, k := range p.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (p QueryPredicate) stateMatches(doc domain.AccountingDocument) bool {
	switch p.States {
	case domain.StateAny:
		return true
	case domain.StatePostedOnly:
		return doc.State == domain.StatePosted
	case domain.StatePostedDraftBills:
		// Drafts admitted only on the vendor side.
		return doc.State == domain.StatePosted ||
			(doc.State == domain.StateDraft && !doc.Kind.IsCustomerFacing())
	case domain.StatePostedDraftInvoices:
		// Drafts admitted only on the customer side.
		return doc.State == domain.StatePosted ||
			(doc.State == domain.StateDraft && doc.Kind.IsCustomerFacing())
	case domain.StatePostedDraftAll:
		return doc.State == domain.StatePosted || doc.State == domain.StateDraft
	}
	return doc.State == domain.StatePosted
}
