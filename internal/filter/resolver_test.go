package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
)

func TestResolveQuarterDates(t *testing.T) {
	tests := []struct {
		quarter  string
		year     int
		wantFrom string
		wantTo   string
	}{
		{"Q1", 2025, "2025-01-01", "2025-03-31"},
		{"Q2", 2025, "2025-04-01", "2025-06-30"},
		{"Q3", 2025, "2025-07-01", "2025-09-30"},
		{"Q4", 2025, "2025-10-01", "2025-12-31"},
		{"q4", 2025, "2025-10-01", "2025-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.quarter, func(t *testing.T) {
			p := Resolve(domain.FilterSpec{
				Direction:    domain.DirectionBoth,
				DocumentType: domain.DocTypeAll,
				StateFilter:  domain.StatePostedOnly,
				Quarter:      tt.quarter,
				Year:         tt.year,
			})
			assert.Empty(t, p.Warnings)
			assert.Equal(t, tt.wantFrom, p.IssuedFrom.Format("2006-01-02"))
			assert.Equal(t, tt.wantTo, p.IssuedTo.Format("2006-01-02"))
		})
	}
}

func TestResolveQuarterBoundsInclusive(t *testing.T) {
	p := Resolve(domain.FilterSpec{
		Direction:    domain.DirectionBoth,
		DocumentType: domain.DocTypeAll,
		StateFilter:  domain.StatePostedOnly,
		Quarter:      "Q4",
		Year:         2025,
	})

	doc := postedInvoice("2025-10-01")
	assert.True(t, p.Matches(doc), "first day of quarter must be included")

	doc = postedInvoice("2025-12-31")
	assert.True(t, p.Matches(doc), "last day of quarter must be included")

	doc = postedInvoice("2025-09-30")
	assert.False(t, p.Matches(doc), "day before quarter must be excluded")

	doc = postedInvoice("2026-01-01")
	assert.False(t, p.Matches(doc), "day after quarter must be excluded")
}

func TestResolveKinds(t *testing.T) {
	tests := []struct {
		name      string
		direction domain.Direction
		docType   domain.DocumentTypeFilter
		want      []domain.DocumentKind
	}{
		{
			name: "both all", direction: domain.DirectionBoth, docType: domain.DocTypeAll,
			want: domain.AllDocumentKinds(),
		},
		{
			name: "outgoing invoice", direction: domain.DirectionOutgoing, docType: domain.DocTypeInvoice,
			want: []domain.DocumentKind{domain.KindCustomerInvoice},
		},
		{
			name: "incoming all", direction: domain.DirectionIncoming, docType: domain.DocTypeAll,
			want: []domain.DocumentKind{domain.KindVendorBill, domain.KindVendorCreditNote},
		},
		{
			name: "both refund", direction: domain.DirectionBoth, docType: domain.DocTypeRefund,
			want: []domain.DocumentKind{domain.KindCustomerCreditNote, domain.KindVendorCreditNote},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Resolve(domain.FilterSpec{
				Direction:    tt.direction,
				DocumentType: tt.docType,
				StateFilter:  domain.StatePostedOnly,
				Quarter:      "Q1",
				Year:         2025,
			})
			assert.Equal(t, tt.want, p.Kinds)
		})
	}
}

func TestResolveDegradesInvalidInput(t *testing.T) {
	p := Resolve(domain.FilterSpec{
		Direction:    "sideways",
		DocumentType: "receipt",
		StateFilter:  "whatever",
	})

	// Never an empty predicate: everything falls back to the widest safe default.
	assert.Equal(t, domain.AllDocumentKinds(), p.Kinds)
	assert.Equal(t, domain.StatePostedOnly, p.States)
	assert.True(t, p.IssuedFrom.IsZero())
	assert.True(t, p.IssuedTo.IsZero())
	require.Len(t, p.Warnings, 4)
}

func TestResolveBadDateRange(t *testing.T) {
	p := Resolve(domain.FilterSpec{
		Direction:    domain.DirectionBoth,
		DocumentType: domain.DocTypeAll,
		StateFilter:  domain.StatePostedOnly,
		DateFrom:     "2025-06-30",
		DateTo:       "2025-01-01",
	})
	assert.True(t, p.IssuedFrom.IsZero())
	assert.True(t, p.IssuedTo.IsZero())
	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], "date_to")
}

func TestStateFilterAsymmetry(t *testing.T) {
	draftCustomerInvoice := domain.AccountingDocument{
		Kind:      domain.KindCustomerInvoice,
		State:     domain.StateDraft,
		IssueDate: mustDate("2025-05-01"),
	}
	draftVendorBill := domain.AccountingDocument{
		Kind:      domain.KindVendorBill,
		State:     domain.StateDraft,
		IssueDate: mustDate("2025-05-01"),
	}

	base := domain.FilterSpec{
		Direction:    domain.DirectionBoth,
		DocumentType: domain.DocTypeAll,
		Quarter:      "Q2",
		Year:         2025,
	}

	base.StateFilter = domain.StatePostedDraftInvoices
	p := Resolve(base)
	assert.True(t, p.Matches(draftCustomerInvoice), "draft customer invoice admitted by posted_draft_invoices")
	assert.False(t, p.Matches(draftVendorBill), "draft vendor bill excluded by posted_draft_invoices")

	base.StateFilter = domain.StatePostedDraftBills
	p = Resolve(base)
	assert.False(t, p.Matches(draftCustomerInvoice), "draft customer invoice excluded by posted_draft_bills")
	assert.True(t, p.Matches(draftVendorBill), "draft vendor bill admitted by posted_draft_bills")
}

func TestStateFilterPostedAndCancelled(t *testing.T) {
	cancelled := domain.AccountingDocument{
		Kind:      domain.KindCustomerInvoice,
		State:     domain.StateCancelled,
		IssueDate: mustDate("2025-05-01"),
	}
	for _, state := range []domain.StateFilter{
		domain.StatePostedOnly,
		domain.StatePostedDraftBills,
		domain.StatePostedDraftInvoices,
		domain.StatePostedDraftAll,
	} {
		p := Resolve(domain.FilterSpec{
			Direction:    domain.DirectionBoth,
			DocumentType: domain.DocTypeAll,
			StateFilter:  state,
			Quarter:      "Q2",
			Year:         2025,
		})
		assert.False(t, p.Matches(cancelled), "cancelled documents never match %s", state)
	}

	p := Resolve(domain.FilterSpec{
		Direction:    domain.DirectionBoth,
		DocumentType: domain.DocTypeAll,
		StateFilter:  domain.StateAny,
		Quarter:      "Q2",
		Year:         2025,
	})
	assert.True(t, p.Matches(cancelled), "state filter any matches every state")
}

func TestClausesCarriedThrough(t *testing.T) {
	clauses := []domain.FilterClause{{Field: "journal_id", Op: "=", Value: 7}}
	p := Resolve(domain.FilterSpec{
		Direction:    domain.DirectionBoth,
		DocumentType: domain.DocTypeAll,
		StateFilter:  domain.StatePostedOnly,
		Quarter:      "Q1",
		Year:         2025,
		Clauses:      clauses,
	})
	assert.Equal(t, clauses, p.Clauses)
}

func postedInvoice(date string) domain.AccountingDocument {
	return domain.AccountingDocument{
		Kind:      domain.KindCustomerInvoice,
		State:     domain.StatePosted,
		IssueDate: mustDate(date),
	}
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
