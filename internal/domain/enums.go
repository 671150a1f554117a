package domain

// Direction selects which side of the books an export covers.
type Direction string

const (
	DirectionBoth     Direction = "both"
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// IsValid returns true if the direction is a known value.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionBoth, DirectionOutgoing, DirectionIncoming:
		return true
	}
	return false
}

// DocumentTypeFilter narrows an export to invoices, refunds, or both.
type DocumentTypeFilter string

const (
	DocTypeAll     DocumentTypeFilter = "all"
	DocTypeInvoice DocumentTypeFilter = "invoice"
	DocTypeRefund  DocumentTypeFilter = "refund"
)

// IsValid returns true if the document type filter is a known value.
func (t DocumentTypeFilter) IsValid() bool {
	switch t {
	case DocTypeAll, DocTypeInvoice, DocTypeRefund:
		return true
	}
	return false
}

// StateFilter selects which legal states of a document qualify for export.
//
// Draft admission is deliberately asymmetric: draft vendor bills are safer
// to expose than the filer's own draft customer invoices, so the two get
// separate filter values.
type StateFilter string

const (
	StatePostedOnly          StateFilter = "posted"
	StatePostedDraftBills    StateFilter = "posted_draft_bills"
	StatePostedDraftInvoices StateFilter = "posted_draft_invoices"
	StatePostedDraftAll      StateFilter = "posted_draft_all"
	StateAny                 StateFilter = "any"
)

// IsValid returns true if the state filter is a known value.
func (s StateFilter) IsValid() bool {
	switch s {
	case StatePostedOnly, StatePostedDraftBills, StatePostedDraftInvoices, StatePostedDraftAll, StateAny:
		return true
	}
	return false
}

// DocumentKind is the concrete kind of an accounting document as stored in
// the bookkeeping backend: the cross product of direction and invoice/refund.
type DocumentKind string

const (
	KindCustomerInvoice    DocumentKind = "customer_invoice"
	KindCustomerCreditNote DocumentKind = "customer_credit_note"
	KindVendorBill         DocumentKind = "vendor_bill"
	KindVendorCreditNote   DocumentKind = "vendor_credit_note"
)

// AllDocumentKinds lists every document kind, in a stable order.
func AllDocumentKinds() []DocumentKind {
	return []DocumentKind{
		KindCustomerInvoice,
		KindCustomerCreditNote,
		KindVendorBill,
		KindVendorCreditNote,
	}
}

// IsCustomerFacing reports whether the kind sits on the sales side.
func (k DocumentKind) IsCustomerFacing() bool {
	return k == KindCustomerInvoice || k == KindCustomerCreditNote
}

// IsCreditNote reports whether the kind is a refund document.
func (k DocumentKind) IsCreditNote() bool {
	return k == KindCustomerCreditNote || k == KindVendorCreditNote
}

// DocumentState is the legal state of a document in the backend.
type DocumentState string

const (
	StateDraft     DocumentState = "draft"
	StatePosted    DocumentState = "posted"
	StateCancelled DocumentState = "cancelled"
)

// RunStatus describes the outcome of one export run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
	RunStatusEmpty     RunStatus = "empty"
)
