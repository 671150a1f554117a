// Package summary renders a per-run summary workbook for the accountant.
package summary

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/archive"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/ubl"
)

const (
	sheetExported = "Exported"
	sheetSkipped  = "Skipped"
)

// Build renders the run manifest and the exported documents into an XLSX
// workbook: one row per exported document on the Exported sheet, one row
// per skipped document on the Skipped sheet.
func Build(manifest domain.ExportManifest, items []archive.Item) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	f.SetSheetName("Sheet1", sheetExported)
	if _, err := f.NewSheet(sheetSkipped); err != nil {
		return nil, fmt.Errorf("creating skipped sheet: %w", err)
	}

	exportedHeader := []interface{}{"Number", "Issue date", "Type", "Counterparty", "Currency", "Net", "Tax", "Gross"}
	if err := setRow(f, sheetExported, 1, exportedHeader); err != nil {
		return nil, err
	}
	row := 2
	for _, item := range items {
		if item.Err != nil || item.Doc == nil {
			continue
		}
		net, tax, gross := docTotals(item.Doc)
		values := []interface{}{
			item.Source.Number,
			item.Source.IssueDate.Format("2006-01-02"),
			docTypeLabel(item.Source.Kind),
			counterparty(item.Source),
			item.Source.CurrencyCode,
			net, tax, gross,
		}
		if err := setRow(f, sheetExported, row, values); err != nil {
			return nil, err
		}
		row++
	}

	totalsRow := []interface{}{
		"Total", "", "", "", "",
		manifest.NetTotal.StringFixed(2),
		manifest.TaxTotal.StringFixed(2),
		manifest.GrossTotal.StringFixed(2),
	}
	if err := setRow(f, sheetExported, row+1, totalsRow); err != nil {
		return nil, err
	}

	if err := setRow(f, sheetSkipped, 1, []interface{}{"Number", "Reason"}); err != nil {
		return nil, err
	}
	for i, skipped := range manifest.Skipped {
		if err := setRow(f, sheetSkipped, i+2, []interface{}{skipped.Number, skipped.Reason}); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("resolving cell: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d on %s: %w", row, sheet, err)
	}
	return nil
}

func docTotals(doc *ubl.Document) (net, tax, gross string) {
	switch {
	case doc.Invoice != nil:
		return doc.Invoice.LegalMonetaryTotal.LineExtensionAmount.Value.StringFixed(2),
			doc.Invoice.TaxTotal.TaxAmount.Value.StringFixed(2),
			doc.Invoice.LegalMonetaryTotal.TaxInclusiveAmount.Value.StringFixed(2)
	case doc.CreditNote != nil:
		return doc.CreditNote.LegalMonetaryTotal.LineExtensionAmount.Value.Neg().StringFixed(2),
			doc.CreditNote.TaxTotal.TaxAmount.Value.Neg().StringFixed(2),
			doc.CreditNote.LegalMonetaryTotal.TaxInclusiveAmount.Value.Neg().StringFixed(2)
	}
	return "", "", ""
}

func docTypeLabel(kind domain.DocumentKind) string {
	switch kind {
	case domain.KindCustomerInvoice:
		return "Customer invoice"
	case domain.KindCustomerCreditNote:
		return "Customer credit note"
	case domain.KindVendorBill:
		return "Vendor bill"
	case domain.KindVendorCreditNote:
		return "Vendor credit note"
	}
	return string(kind)
}

// counterparty returns the party on the other side of the document from
// the filer.
func counterparty(doc domain.AccountingDocument) string {
	if doc.Kind.IsCustomerFacing() {
		return doc.Buyer.Name
	}
	return doc.Seller.Name
}
