package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Party is one legal entity on an accounting document.
type Party struct {
	Name           string `json:"name"`
	VATNumber      string `json:"vat_number,omitempty"`
	EndpointID     string `json:"endpoint_id,omitempty"`
	EndpointScheme string `json:"endpoint_scheme,omitempty"`
	Street         string `json:"street,omitempty"`
	City           string `json:"city,omitempty"`
	PostalCode     string `json:"postal_code,omitempty"`
	CountryCode    string `json:"country_code,omitempty"`
	Email          string `json:"email,omitempty"`
}

// LineItem is one billed quantity on an accounting document.
type LineItem struct {
	Index       int             `json:"index"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCode    string          `json:"unit_code,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	TaxCategory string          `json:"tax_category"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// TaxBreakdownEntry aggregates all lines sharing a tax category and rate.
type TaxBreakdownEntry struct {
	Category      string          `json:"category"`
	Rate          decimal.Decimal `json:"rate"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
}

// AccountingDocument is one invoice or credit note as fetched from the
// bookkeeping backend. It is read-only to the export pipeline.
// DeclaredTotal is nil when the source carries no total of its own; a
// present zero is a real declared value, not an absence.
type AccountingDocument struct {
	ID            int64            `json:"id"`
	Number        string           `json:"number"`
	IssueDate     time.Time        `json:"issue_date"`
	DueDate       *time.Time       `json:"due_date,omitempty"`
	Kind          DocumentKind     `json:"kind"`
	State         DocumentState    `json:"state"`
	CurrencyCode  string           `json:"currency_code"`
	Seller        Party            `json:"seller"`
	Buyer         Party            `json:"buyer"`
	Lines         []LineItem       `json:"lines"`
	DeclaredTotal *decimal.Decimal `json:"declared_total,omitempty"`
	PaymentRef    string           `json:"payment_ref,omitempty"`
	BankAccount   string           `json:"bank_account,omitempty"`
	PaymentTerms  string           `json:"payment_terms,omitempty"`
	BuyerRef      string           `json:"buyer_ref,omitempty"`
	Note          string           `json:"note,omitempty"`
}

// FilterClause is one raw predicate clause conjoined onto the resolved
// query, e.g. {"journal_id", "=", 7}.
type FilterClause struct {
	Field string      `json:"field"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

// FilterSpec is an immutable description of one export request.
// Either Quarter+Year or DateFrom+DateTo select the issue-date window.
type FilterSpec struct {
	Direction    Direction          `json:"direction"`
	DocumentType DocumentTypeFilter `json:"document_type"`
	StateFilter  StateFilter        `json:"state_filter"`
	Quarter      string             `json:"quarter,omitempty"`
	Year         int                `json:"year,omitempty"`
	DateFrom     string             `json:"date_from,omitempty"`
	DateTo       string             `json:"date_to,omitempty"`
	Clauses      []FilterClause     `json:"clauses,omitempty"`
}

// SkippedDocument records one document excluded from an export and why.
type SkippedDocument struct {
	Number string `json:"number"`
	Reason string `json:"reason"`
}

// ExportManifest is the per-run summary produced by the batch assembler.
type ExportManifest struct {
	ArchiveName string            `json:"archive_name"`
	Candidates  int               `json:"candidates"`
	Exported    int               `json:"exported"`
	Skipped     []SkippedDocument `json:"skipped"`
	NetTotal    decimal.Decimal   `json:"net_total"`
	TaxTotal    decimal.Decimal   `json:"tax_total"`
	GrossTotal  decimal.Decimal   `json:"gross_total"`
}

// ExportRun is one persisted export run.
type ExportRun struct {
	ID          string         `json:"id" db:"id"`
	ArchiveName string         `json:"archive_name" db:"archive_name"`
	Status      RunStatus      `json:"status" db:"status"`
	Spec        FilterSpec     `json:"spec" db:"-"`
	Manifest    ExportManifest `json:"manifest" db:"-"`
	StorageKey  string         `json:"storage_key,omitempty" db:"storage_key"`
	Error       string         `json:"error,omitempty" db:"error"`
	StartedAt   time.Time      `json:"started_at" db:"started_at"`
	FinishedAt  time.Time      `json:"finished_at" db:"finished_at"`
}

// ExportInfo describes one stored archive in object storage.
type ExportInfo struct {
	Filename     string    `json:"filename"`
	SizeBytes    int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// ExportResult is the outcome of one export run handed back to callers.
type ExportResult struct {
	Run      ExportRun `json:"run"`
	Archive  []byte    `json:"-"`
	Download string    `json:"download_url,omitempty"`
}
