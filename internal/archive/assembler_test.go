package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/ubl"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func testDocument(number string, kind domain.DocumentKind) domain.AccountingDocument {
	return domain.AccountingDocument{
		Number:       number,
		IssueDate:    time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC),
		Kind:         kind,
		State:        domain.StatePosted,
		CurrencyCode: "EUR",
		Seller: domain.Party{
			Name:        "Voorbeeld BV",
			VATNumber:   "BE0123456749",
			CountryCode: "BE",
		},
		Buyer: domain.Party{
			Name:        "Klant NV",
			VATNumber:   "BE0987654321",
			CountryCode: "BE",
		},
		Lines: []domain.LineItem{{
			Index:       1,
			Description: "Consultancy",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("100.00"),
			NetAmount:   decimal.RequireFromString("100.00"),
			TaxCategory: "S",
			TaxRate:     decimal.NewFromInt(21),
		}},
		DeclaredTotal: decPtr("121.00"),
	}
}

func mappedItem(t *testing.T, number string, kind domain.DocumentKind) Item {
	t.Helper()
	src := testDocument(number, kind)
	doc, err := ubl.NewMapper(false).Map(src)
	require.NoError(t, err)
	data, err := ubl.Serialize(doc)
	require.NoError(t, err)
	return Item{Source: src, Doc: doc, Bytes: data}
}

func entryNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func mappedDoc(t *testing.T, number string, kind domain.DocumentKind) *ubl.Document {
	t.Helper()
	// Self-billing on so vendor-side kinds map too.
	doc, err := ubl.NewMapper(true).Map(testDocument(number, kind))
	require.NoError(t, err)
	return doc
}

func TestEntryNaming(t *testing.T) {
	a := NewAssembler("xml")
	assert.Equal(t, "INV-2025-0001.xml", a.EntryName(mappedDoc(t, "2025-0001", domain.KindCustomerInvoice)))
	assert.Equal(t, "RINV-2025-0001.xml", a.EntryName(mappedDoc(t, "2025-0001", domain.KindCustomerCreditNote)))
	assert.Equal(t, "INV-INV-2025-0002.xml", a.EntryName(mappedDoc(t, "INV/2025/0002", domain.KindVendorBill)))
	assert.Equal(t, "RINV-NC_2025-3.xml", a.EntryName(mappedDoc(t, "NC 2025/3", domain.KindVendorCreditNote)))
}

func TestArchiveName(t *testing.T) {
	assert.Equal(t, "Export_2025_Q4.zip", ArchiveName(domain.FilterSpec{
		DocumentType: domain.DocTypeAll, Quarter: "Q4", Year: 2025,
	}))
	assert.Equal(t, "INV_2025_Q1.zip", ArchiveName(domain.FilterSpec{
		DocumentType: domain.DocTypeInvoice, Quarter: "q1", Year: 2025,
	}))
	assert.Equal(t, "RINV_2025-01-01_2025-06-30.zip", ArchiveName(domain.FilterSpec{
		DocumentType: domain.DocTypeRefund, DateFrom: "2025-01-01", DateTo: "2025-06-30",
	}))
	assert.Equal(t, "Export_all.zip", ArchiveName(domain.FilterSpec{DocumentType: domain.DocTypeAll}))
}

func TestAssembleArchiveAndManifest(t *testing.T) {
	a := NewAssembler("xml")
	items := []Item{
		mappedItem(t, "2025-0001", domain.KindCustomerInvoice),
		mappedItem(t, "2025-0002", domain.KindCustomerCreditNote),
		{
			Source: testDocument("2025-0003", domain.KindVendorBill),
			Err:    domain.NewUnsupportedVariant("vendor bill requires self-billing"),
		},
	}

	data, manifest, err := a.Assemble("Export_2025_Q4.zip", items)
	require.NoError(t, err)

	assert.Equal(t, "Export_2025_Q4.zip", manifest.ArchiveName)
	assert.Equal(t, 3, manifest.Candidates)
	assert.Equal(t, 2, manifest.Exported)
	require.Len(t, manifest.Skipped, 1)
	assert.Equal(t, "2025-0003", manifest.Skipped[0].Number)
	assert.Contains(t, manifest.Skipped[0].Reason, "self-billing")

	names := entryNames(t, data)
	assert.Equal(t, []string{"UBL/INV-2025-0001.xml", "UBL/RINV-2025-0002.xml"}, names)

	// Manifest totals net out the credit note against the invoice.
	assert.True(t, manifest.NetTotal.IsZero())
	assert.True(t, manifest.GrossTotal.IsZero())
}

func TestAssembleSkippedNeverWritten(t *testing.T) {
	a := NewAssembler("xml")
	items := []Item{{
		Source: testDocument("2025-0009", domain.KindCustomerInvoice),
		Err:    domain.NewMissingRequiredField("seller.vat_number"),
	}}

	data, manifest, err := a.Assemble("Export_2025_Q4.zip", items)
	require.NoError(t, err)
	assert.Equal(t, 0, manifest.Exported)
	assert.Empty(t, entryNames(t, data), "skipped documents must not leave placeholder entries")
}

func TestAssembleIdempotent(t *testing.T) {
	a := NewAssembler("xml")
	items := []Item{
		mappedItem(t, "2025-0001", domain.KindCustomerInvoice),
		mappedItem(t, "2025-0002", domain.KindCustomerInvoice),
	}

	first, _, err := a.Assemble("Export_2025_Q4.zip", items)
	require.NoError(t, err)
	second, _, err := a.Assemble("Export_2025_Q4.zip", items)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same batch must produce byte-identical archives")
}

func TestAssembleEntryContent(t *testing.T) {
	a := NewAssembler("xml")
	item := mappedItem(t, "2025-0001", domain.KindCustomerInvoice)

	data, _, err := a.Assemble("Export_2025_Q4.zip", []Item{item})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, item.Bytes, content, "entries are written whole, never partially")
}
