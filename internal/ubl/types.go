// Package ubl holds the Peppol BIS Billing 3.0 document model, the mapper
// from accounting documents onto it, and the XML serializer.
package ubl

import (
	"encoding/xml"

	"github.com/shopspring/decimal"
)

// Peppol BIS Billing 3.0 identifiers.
const (
	CustomizationID = "urn:cen.eu:en16931:2017#compliant#urn:fdc:peppol.eu:2017:poacc:billing:3.0"
	ProfileID       = "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0"

	nsInvoice    = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	nsCreditNote = "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2"
	nsCac        = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	nsCbc        = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
)

// UNTDID 1001 document type codes used by the profile.
const (
	TypeCodeInvoice              = "380"
	TypeCodeCreditNote           = "381"
	TypeCodeSelfBilledInvoice    = "389"
	TypeCodeSelfBilledCreditNote = "261"
)

// Amount is a monetary value qualified with its currency. It renders with
// exactly two decimals.
type Amount struct {
	Value      decimal.Decimal
	CurrencyID string
}

func (a Amount) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "currencyID"}, Value: a.CurrencyID})
	return e.EncodeElement(a.Value.StringFixed(2), start)
}

// Quantity is a billed quantity qualified with its UN/ECE rec 20 unit code.
type Quantity struct {
	Value    decimal.Decimal
	UnitCode string
}

func (q Quantity) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "unitCode"}, Value: q.UnitCode})
	return e.EncodeElement(q.Value.StringFixed(2), start)
}

// Percent renders a tax rate with two decimals.
type Percent struct {
	Value decimal.Decimal
}

func (p Percent) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(p.Value.StringFixed(2), start)
}

// EndpointID is a Peppol network address, scheme-qualified.
type EndpointID struct {
	SchemeID string `xml:"schemeID,attr"`
	Value    string `xml:",chardata"`
}

// Country holds the ISO 3166-1 alpha-2 country code of an address.
type Country struct {
	IdentificationCode string `xml:"cbc:IdentificationCode"`
}

// PostalAddress is the cac:PostalAddress block. Element order is mandated
// by the UBL schema.
type PostalAddress struct {
	StreetName string  `xml:"cbc:StreetName,omitempty"`
	CityName   string  `xml:"cbc:CityName,omitempty"`
	PostalZone string  `xml:"cbc:PostalZone,omitempty"`
	Country    Country `xml:"cac:Country"`
}

// TaxScheme identifies the tax system, always VAT in this profile.
type TaxScheme struct {
	ID string `xml:"cbc:ID"`
}

// PartyTaxScheme carries a party's VAT registration.
type PartyTaxScheme struct {
	CompanyID string    `xml:"cbc:CompanyID"`
	TaxScheme TaxScheme `xml:"cac:TaxScheme"`
}

// PartyLegalEntity carries a party's registered legal name.
type PartyLegalEntity struct {
	RegistrationName string `xml:"cbc:RegistrationName"`
	CompanyID        string `xml:"cbc:CompanyID,omitempty"`
}

// Contact is the optional cac:Contact block.
type Contact struct {
	ElectronicMail string `xml:"cbc:ElectronicMail,omitempty"`
}

// PartyName wraps a party's trading name.
type PartyName struct {
	Name string `xml:"cbc:Name"`
}

// Party is the cac:Party block shared by supplier and customer.
type Party struct {
	EndpointID     EndpointID       `xml:"cbc:EndpointID"`
	PartyName      *PartyName       `xml:"cac:PartyName,omitempty"`
	PostalAddress  PostalAddress    `xml:"cac:PostalAddress"`
	PartyTaxScheme *PartyTaxScheme  `xml:"cac:PartyTaxScheme,omitempty"`
	LegalEntity    PartyLegalEntity `xml:"cac:PartyLegalEntity"`
	Contact        *Contact         `xml:"cac:Contact,omitempty"`
}

// SupplierParty is the cac:AccountingSupplierParty block.
type SupplierParty struct {
	Party Party `xml:"cac:Party"`
}

// CustomerParty is the cac:AccountingCustomerParty block.
type CustomerParty struct {
	Party Party `xml:"cac:Party"`
}

// FinancialAccount is the payee bank account reference.
type FinancialAccount struct {
	ID string `xml:"cbc:ID"`
}

// PaymentMeans is the cac:PaymentMeans block.
type PaymentMeans struct {
	PaymentMeansCode      string            `xml:"cbc:PaymentMeansCode"`
	PaymentID             string            `xml:"cbc:PaymentID,omitempty"`
	PayeeFinancialAccount *FinancialAccount `xml:"cac:PayeeFinancialAccount,omitempty"`
}

// PaymentTerms is the cac:PaymentTerms block.
type PaymentTerms struct {
	Note string `xml:"cbc:Note"`
}

// TaxCategory classifies a taxable amount (UNCL 5305 category + rate).
type TaxCategory struct {
	ID        string    `xml:"cbc:ID"`
	Percent   Percent   `xml:"cbc:Percent"`
	TaxScheme TaxScheme `xml:"cac:TaxScheme"`
}

// TaxSubtotal is one per-category tax breakdown entry.
type TaxSubtotal struct {
	TaxableAmount Amount      `xml:"cbc:TaxableAmount"`
	TaxAmount     Amount      `xml:"cbc:TaxAmount"`
	TaxCategory   TaxCategory `xml:"cac:TaxCategory"`
}

// TaxTotal carries the document tax amount and its breakdown.
type TaxTotal struct {
	TaxAmount   Amount        `xml:"cbc:TaxAmount"`
	TaxSubtotal []TaxSubtotal `xml:"cac:TaxSubtotal"`
}

// MonetaryTotal is the cac:LegalMonetaryTotal block.
type MonetaryTotal struct {
	LineExtensionAmount   Amount  `xml:"cbc:LineExtensionAmount"`
	TaxExclusiveAmount    Amount  `xml:"cbc:TaxExclusiveAmount"`
	TaxInclusiveAmount    Amount  `xml:"cbc:TaxInclusiveAmount"`
	PayableRoundingAmount *Amount `xml:"cbc:PayableRoundingAmount,omitempty"`
	PayableAmount         Amount  `xml:"cbc:PayableAmount"`
}

// Item describes what a line bills, including its tax classification.
type Item struct {
	Description           string      `xml:"cbc:Description,omitempty"`
	Name                  string      `xml:"cbc:Name"`
	ClassifiedTaxCategory TaxCategory `xml:"cac:ClassifiedTaxCategory"`
}

// Price carries the unit net price of a line.
type Price struct {
	PriceAmount Amount `xml:"cbc:PriceAmount"`
}

// InvoiceLine is one cac:InvoiceLine.
type InvoiceLine struct {
	ID                  string   `xml:"cbc:ID"`
	InvoicedQuantity    Quantity `xml:"cbc:InvoicedQuantity"`
	LineExtensionAmount Amount   `xml:"cbc:LineExtensionAmount"`
	Item                Item     `xml:"cac:Item"`
	Price               Price    `xml:"cac:Price"`
}

// CreditNoteLine is one cac:CreditNoteLine.
type CreditNoteLine struct {
	ID                  string   `xml:"cbc:ID"`
	CreditedQuantity    Quantity `xml:"cbc:CreditedQuantity"`
	LineExtensionAmount Amount   `xml:"cbc:LineExtensionAmount"`
	Item                Item     `xml:"cac:Item"`
	Price               Price    `xml:"cac:Price"`
}

// Invoice is the UBL 2.1 Invoice root. Field order follows the schema's
// declared element sequence.
type Invoice struct {
	XMLName  xml.Name `xml:"Invoice"`
	Xmlns    string   `xml:"xmlns,attr"`
	XmlnsCac string   `xml:"xmlns:cac,attr"`
	XmlnsCbc string   `xml:"xmlns:cbc,attr"`

	CustomizationID      string        `xml:"cbc:CustomizationID"`
	ProfileID            string        `xml:"cbc:ProfileID"`
	ID                   string        `xml:"cbc:ID"`
	IssueDate            string        `xml:"cbc:IssueDate"`
	DueDate              string        `xml:"cbc:DueDate,omitempty"`
	InvoiceTypeCode      string        `xml:"cbc:InvoiceTypeCode"`
	Note                 string        `xml:"cbc:Note,omitempty"`
	DocumentCurrencyCode string        `xml:"cbc:DocumentCurrencyCode"`
	BuyerReference       string        `xml:"cbc:BuyerReference,omitempty"`
	Supplier             SupplierParty `xml:"cac:AccountingSupplierParty"`
	Customer             CustomerParty `xml:"cac:AccountingCustomerParty"`
	PaymentMeans         *PaymentMeans `xml:"cac:PaymentMeans,omitempty"`
	PaymentTerms         *PaymentTerms `xml:"cac:PaymentTerms,omitempty"`
	TaxTotal             TaxTotal      `xml:"cac:TaxTotal"`
	LegalMonetaryTotal   MonetaryTotal `xml:"cac:LegalMonetaryTotal"`
	Lines                []InvoiceLine `xml:"cac:InvoiceLine"`
}

// CreditNote is the UBL 2.1 CreditNote root.
type CreditNote struct {
	XMLName  xml.Name `xml:"CreditNote"`
	Xmlns    string   `xml:"xmlns,attr"`
	XmlnsCac string   `xml:"xmlns:cac,attr"`
	XmlnsCbc string   `xml:"xmlns:cbc,attr"`

	CustomizationID      string           `xml:"cbc:CustomizationID"`
	ProfileID            string           `xml:"cbc:ProfileID"`
	ID                   string           `xml:"cbc:ID"`
	IssueDate            string           `xml:"cbc:IssueDate"`
	CreditNoteTypeCode   string           `xml:"cbc:CreditNoteTypeCode"`
	Note                 string           `xml:"cbc:Note,omitempty"`
	DocumentCurrencyCode string           `xml:"cbc:DocumentCurrencyCode"`
	BuyerReference       string           `xml:"cbc:BuyerReference,omitempty"`
	Supplier             SupplierParty    `xml:"cac:AccountingSupplierParty"`
	Customer             CustomerParty    `xml:"cac:AccountingCustomerParty"`
	PaymentMeans         *PaymentMeans    `xml:"cac:PaymentMeans,omitempty"`
	PaymentTerms         *PaymentTerms    `xml:"cac:PaymentTerms,omitempty"`
	TaxTotal             TaxTotal         `xml:"cac:TaxTotal"`
	LegalMonetaryTotal   MonetaryTotal    `xml:"cac:LegalMonetaryTotal"`
	Lines                []CreditNoteLine `xml:"cac:CreditNoteLine"`
}

// Document wraps exactly one of the two root variants.
type Document struct {
	Invoice    *Invoice
	CreditNote *CreditNote
}

// DocID returns the document identifier of whichever variant is set.
func (d *Document) DocID() string {
	if d.Invoice != nil {
		return d.Invoice.ID
	}
	if d.CreditNote != nil {
		return d.CreditNote.ID
	}
	return ""
}

// IsCreditNote reports whether the CreditNote variant is set.
func (d *Document) IsCreditNote() bool {
	return d.CreditNote != nil
}
