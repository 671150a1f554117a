package ubl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
)

const (
	dateLayout = "2006-01-02"

	// UN/ECE rec 20 "one" unit, used when a line carries no unit code.
	defaultUnitCode = "C62"

	// UNCL 4461 credit transfer.
	paymentMeansCreditTransfer = "30"

	// Belgian enterprise number scheme, the default Peppol address scheme
	// for parties that carry no explicit endpoint scheme.
	defaultEndpointScheme = "0208"
)

// totalsTolerance is one minor unit: a declared total may differ from the
// computed total by at most this much before the document is rejected.
var totalsTolerance = decimal.NewFromFloat(0.01)

// Mapper converts accounting documents into UBL documents.
type Mapper struct {
	selfBilling bool
}

// NewMapper builds a mapper. With selfBilling enabled, vendor-side documents
// map to self-billed UBL variants; otherwise they are unsupported.
func NewMapper(selfBilling bool) *Mapper {
	return &Mapper{selfBilling: selfBilling}
}

// Map converts one accounting document into a UBL document. A *MappingError
// return means the document is excluded from the batch, not that the batch
// failed.
func (m *Mapper) Map(doc domain.AccountingDocument) (*Document, error) {
	typeCode, isCreditNote, err := m.variant(doc.Kind)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(doc); err != nil {
		return nil, err
	}

	currency := doc.CurrencyCode
	supplier, err := mapParty(doc.Seller, "seller")
	if err != nil {
		return nil, err
	}
	customer, err := mapParty(doc.Buyer, "buyer")
	if err != nil {
		return nil, err
	}

	taxTotal, netTotal := buildTaxTotal(doc.Lines, currency)
	grossTotal := netTotal.Add(taxTotal.TaxAmount.Value)

	monetary, err := buildMonetaryTotal(doc, netTotal, grossTotal, currency)
	if err != nil {
		return nil, err
	}

	payMeans := paymentMeans(doc)
	payTerms := paymentTerms(doc)

	if isCreditNote {
		cn := &CreditNote{
			Xmlns:                nsCreditNote,
			XmlnsCac:             nsCac,
			XmlnsCbc:             nsCbc,
			CustomizationID:      CustomizationID,
			ProfileID:            ProfileID,
			ID:                   doc.Number,
			IssueDate:            doc.IssueDate.Format(dateLayout),
			CreditNoteTypeCode:   typeCode,
			Note:                 doc.Note,
			DocumentCurrencyCode: currency,
			BuyerReference:       buyerReference(doc),
			Supplier:             SupplierParty{Party: supplier},
			Customer:             CustomerParty{Party: customer},
			PaymentMeans:         payMeans,
			PaymentTerms:         payTerms,
			TaxTotal:             taxTotal,
			LegalMonetaryTotal:   monetary,
		}
		for _, line := range doc.Lines {
			cn.Lines = append(cn.Lines, CreditNoteLine{
				ID:                  fmt.Sprintf("%d", line.Index),
				CreditedQuantity:    Quantity{Value: line.Quantity, UnitCode: unitCode(line)},
				LineExtensionAmount: Amount{Value: line.NetAmount, CurrencyID: currency},
				Item:                mapItem(line),
				Price:               Price{PriceAmount: Amount{Value: line.UnitPrice, CurrencyID: currency}},
			})
		}
		return &Document{CreditNote: cn}, nil
	}

	inv := &Invoice{
		Xmlns:                nsInvoice,
		XmlnsCac:             nsCac,
		XmlnsCbc:             nsCbc,
		CustomizationID:      CustomizationID,
		ProfileID:            ProfileID,
		ID:                   doc.Number,
		IssueDate:            doc.IssueDate.Format(dateLayout),
		InvoiceTypeCode:      typeCode,
		Note:                 doc.Note,
		DocumentCurrencyCode: currency,
		BuyerReference:       buyerReference(doc),
		Supplier:             SupplierParty{Party: supplier},
		Customer:             CustomerParty{Party: customer},
		PaymentMeans:         payMeans,
		PaymentTerms:         payTerms,
		TaxTotal:             taxTotal,
		LegalMonetaryTotal:   monetary,
	}
	if doc.DueDate != nil {
		inv.DueDate = doc.DueDate.Format(dateLayout)
	}
	for _, line := range doc.Lines {
		inv.Lines = append(inv.Lines, InvoiceLine{
			ID:                  fmt.Sprintf("%d", line.Index),
			InvoicedQuantity:    Quantity{Value: line.Quantity, UnitCode: unitCode(line)},
			LineExtensionAmount: Amount{Value: line.NetAmount, CurrencyID: currency},
			Item:                mapItem(line),
			Price:               Price{PriceAmount: Amount{Value: line.UnitPrice, CurrencyID: currency}},
		})
	}
	return &Document{Invoice: inv}, nil
}

// variant selects the UBL root and type code from the document kind.
func (m *Mapper) variant(kind domain.DocumentKind) (typeCode string, isCreditNote bool, err error) {
	switch kind {
	case domain.KindCustomerInvoice:
		return TypeCodeInvoice, false, nil
	case domain.KindCustomerCreditNote:
		return TypeCodeCreditNote, true, nil
	case domain.KindVendorBill:
		if m.selfBilling {
			return TypeCodeSelfBilledInvoice, false, nil
		}
		return "", false, domain.NewUnsupportedVariant("vendor bill requires self-billing")
	case domain.KindVendorCreditNote:
		if m.selfBilling {
			return TypeCodeSelfBilledCreditNote, true, nil
		}
		return "", false, domain.NewUnsupportedVariant("vendor credit note requires self-billing")
	}
	return "", false, domain.NewUnsupportedVariant(fmt.Sprintf("unknown document kind %q", kind))
}

func checkRequired(doc domain.AccountingDocument) error {
	switch {
	case doc.Number == "":
		return domain.NewMissingRequiredField("number")
	case doc.IssueDate.IsZero():
		return domain.NewMissingRequiredField("issue_date")
	case doc.CurrencyCode == "":
		return domain.NewMissingRequiredField("currency_code")
	case len(doc.Lines) == 0:
		return domain.NewMissingRequiredField("lines")
	}
	return nil
}

// mapParty projects a domain party onto the cac:Party shape. role is the
// field prefix used in missing-field errors.
func mapParty(p domain.Party, role string) (Party, error) {
	if p.Name == "" {
		return Party{}, domain.NewMissingRequiredField(role + ".name")
	}
	if p.CountryCode == "" {
		return Party{}, domain.NewMissingRequiredField(role + ".country_code")
	}

	endpoint, scheme := p.EndpointID, p.EndpointScheme
	if endpoint == "" && p.VATNumber != "" {
		// Fall back to the enterprise number derived from the VAT number.
		endpoint = vatToEnterpriseNumber(p.VATNumber)
		scheme = ""
	}
	if endpoint == "" {
		return Party{}, domain.NewMissingRequiredField(role + ".endpoint_id")
	}
	if scheme == "" {
		scheme = defaultEndpointScheme
	}

	party := Party{
		EndpointID: EndpointID{SchemeID: scheme, Value: endpoint},
		PostalAddress: PostalAddress{
			StreetName: p.Street,
			CityName:   p.City,
			PostalZone: p.PostalCode,
			Country:    Country{IdentificationCode: p.CountryCode},
		},
		LegalEntity: PartyLegalEntity{RegistrationName: p.Name},
	}
	if p.VATNumber != "" {
		party.PartyTaxScheme = &PartyTaxScheme{
			CompanyID: normalizeVAT(p.VATNumber),
			TaxScheme: TaxScheme{ID: "VAT"},
		}
	} else if role == "seller" {
		// BR-CO-26: the seller must carry a tax registration.
		return Party{}, domain.NewMissingRequiredField("seller.vat_number")
	}
	if p.Email != "" {
		party.Contact = &Contact{ElectronicMail: p.Email}
	}
	return party, nil
}

// normalizeVAT strips spacing and punctuation, keeping the country prefix:
// "BE 0123.456.749" becomes "BE0123456749".
func normalizeVAT(vat string) string {
	var b strings.Builder
	for _, r := range vat {
		if r == ' ' || r == '.' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// vatToEnterpriseNumber drops the country prefix and punctuation, leaving
// the bare registration digits used as a Peppol endpoint value.
func vatToEnterpriseNumber(vat string) string {
	normalized := normalizeVAT(vat)
	return strings.TrimLeftFunc(normalized, func(r rune) bool {
		return r >= 'A' && r <= 'Z'
	})
}

type taxGroupKey struct {
	category string
	rate     string
}

// buildTaxTotal derives the tax breakdown from the lines themselves, never
// from pre-aggregated source fields, grouping by category and rate. Each
// group's tax is rounded once; the document tax amount is the exact sum of
// the rounded group amounts so breakdown and total cannot diverge.
func buildTaxTotal(lines []domain.LineItem, currency string) (TaxTotal, decimal.Decimal) {
	groups := make(map[taxGroupKey]*TaxSubtotal)
	var order []taxGroupKey
	netTotal := decimal.Zero

	for _, line := range lines {
		netTotal = netTotal.Add(line.NetAmount)
		key := taxGroupKey{category: line.TaxCategory, rate: line.TaxRate.String()}
		sub, ok := groups[key]
		if !ok {
			sub = &TaxSubtotal{
				TaxableAmount: Amount{Value: decimal.Zero, CurrencyID: currency},
				TaxAmount:     Amount{Value: decimal.Zero, CurrencyID: currency},
				TaxCategory: TaxCategory{
					ID:        line.TaxCategory,
					Percent:   Percent{Value: line.TaxRate},
					TaxScheme: TaxScheme{ID: "VAT"},
				},
			}
			groups[key] = sub
			order = append(order, key)
		}
		sub.TaxableAmount.Value = sub.TaxableAmount.Value.Add(line.NetAmount)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].category != order[j].category {
			return order[i].category < order[j].category
		}
		return order[i].rate < order[j].rate
	})

	total := TaxTotal{TaxAmount: Amount{Value: decimal.Zero, CurrencyID: currency}}
	for _, key := range order {
		sub := groups[key]
		rate := sub.TaxCategory.Percent.Value
		sub.TaxAmount.Value = sub.TaxableAmount.Value.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
		total.TaxAmount.Value = total.TaxAmount.Value.Add(sub.TaxAmount.Value)
		total.TaxSubtotal = append(total.TaxSubtotal, *sub)
	}
	return total, netTotal
}

// buildMonetaryTotal checks the computed gross against the declared total.
// Divergence beyond one minor unit rejects the document; divergence within
// it becomes an explicit PayableRoundingAmount, never a silent correction.
// A nil declared total means the source carried none and the computed gross
// stands; a declared zero is compared like any other value.
func buildMonetaryTotal(doc domain.AccountingDocument, net, gross decimal.Decimal, currency string) (MonetaryTotal, error) {
	total := MonetaryTotal{
		LineExtensionAmount: Amount{Value: net, CurrencyID: currency},
		TaxExclusiveAmount:  Amount{Value: net, CurrencyID: currency},
		TaxInclusiveAmount:  Amount{Value: gross, CurrencyID: currency},
		PayableAmount:       Amount{Value: gross, CurrencyID: currency},
	}

	if doc.DeclaredTotal == nil {
		return total, nil
	}
	declared := *doc.DeclaredTotal
	diff := declared.Sub(gross)
	if diff.Abs().GreaterThan(totalsTolerance) {
		return MonetaryTotal{}, domain.NewTotalsMismatch(fmt.Sprintf(
			"declared %s, computed %s", declared.StringFixed(2), gross.StringFixed(2)))
	}
	if !diff.IsZero() {
		total.PayableRoundingAmount = &Amount{Value: diff, CurrencyID: currency}
		total.PayableAmount = Amount{Value: declared, CurrencyID: currency}
	}
	return total, nil
}

func paymentMeans(doc domain.AccountingDocument) *PaymentMeans {
	if doc.BankAccount == "" && doc.PaymentRef == "" {
		return nil
	}
	pm := &PaymentMeans{
		PaymentMeansCode: paymentMeansCreditTransfer,
		PaymentID:        doc.PaymentRef,
	}
	if doc.BankAccount != "" {
		pm.PayeeFinancialAccount = &FinancialAccount{ID: normalizeIBAN(doc.BankAccount)}
	}
	return pm
}

func normalizeIBAN(iban string) string {
	return strings.ReplaceAll(iban, " ", "")
}

func paymentTerms(doc domain.AccountingDocument) *PaymentTerms {
	if doc.PaymentTerms == "" {
		return nil
	}
	return &PaymentTerms{Note: doc.PaymentTerms}
}

func buyerReference(doc domain.AccountingDocument) string {
	if doc.BuyerRef != "" {
		return doc.BuyerRef
	}
	return doc.Number
}

func unitCode(line domain.LineItem) string {
	if line.UnitCode != "" {
		return line.UnitCode
	}
	return defaultUnitCode
}

func mapItem(line domain.LineItem) Item {
	name := line.Description
	if name == "" {
		name = fmt.Sprintf("Line %d", line.Index)
	}
	return Item{
		Name: name,
		ClassifiedTaxCategory: TaxCategory{
			ID:        line.TaxCategory,
			Percent:   Percent{Value: line.TaxRate},
			TaxScheme: TaxScheme{ID: "VAT"},
		},
	}
}
