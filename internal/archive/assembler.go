// Package archive bundles serialized UBL documents into a deterministic zip
// archive and the manifest that accompanies it.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/ubl"
)

// Entries in the archive live under this sub-directory.
const archiveSubdir = "UBL"

// Item pairs one candidate document with its mapping outcome. Exactly one
// of Doc or Err is meaningful alongside the source document.
type Item struct {
	Source domain.AccountingDocument
	Doc    *ubl.Document
	Bytes  []byte
	Err    error
}

// Assembler builds export archives.
type Assembler struct {
	extension string
}

// NewAssembler builds an assembler writing entries with the given file
// extension (without dot), defaulting to "xml".
func NewAssembler(extension string) *Assembler {
	if extension == "" {
		extension = "xml"
	}
	return &Assembler{extension: strings.TrimPrefix(extension, ".")}
}

// EntryName derives the deterministic archive entry name for a mapped
// document: INV- for invoices, RINV- for credit notes, followed by the
// sanitized document identifier.
func (a *Assembler) EntryName(doc *ubl.Document) string {
	prefix := "INV"
	if doc.IsCreditNote() {
		prefix = "RINV"
	}
	return fmt.Sprintf("%s-%s.%s", prefix, sanitizeNumber(doc.DocID()), a.extension)
}

func sanitizeNumber(number string) string {
	number = strings.ReplaceAll(number, "/", "-")
	number = strings.ReplaceAll(number, " ", "_")
	return number
}

// ArchiveName derives the archive file name from the filter spec:
// <doc-prefix>_<year>_<quarter-or-range>.zip.
func ArchiveName(spec domain.FilterSpec) string {
	prefix := "Export"
	switch spec.DocumentType {
	case domain.DocTypeInvoice:
		prefix = "INV"
	case domain.DocTypeRefund:
		prefix = "RINV"
	}
	if spec.Quarter != "" && spec.Year != 0 {
		return fmt.Sprintf("%s_%d_%s.zip", prefix, spec.Year, strings.ToUpper(spec.Quarter))
	}
	if spec.DateFrom != "" || spec.DateTo != "" {
		from := spec.DateFrom
		if from == "" {
			from = "open"
		}
		to := spec.DateTo
		if to == "" {
			to = "open"
		}
		return fmt.Sprintf("%s_%s_%s.zip", prefix, from, to)
	}
	return prefix + "_all.zip"
}

// Assemble collects the serialized documents of one run into a zip archive
// and its manifest. Per-document failures are recorded in the manifest and
// excluded from the archive; an I/O failure building the zip aborts the run.
//
// Entries are written with zip.Writer.Create, which carries no timestamps,
// so two runs over the same batch produce byte-identical archives.
func (a *Assembler) Assemble(name string, items []Item) ([]byte, domain.ExportManifest, error) {
	manifest := domain.ExportManifest{
		ArchiveName: name,
		Candidates:  len(items),
		NetTotal:    decimal.Zero,
		TaxTotal:    decimal.Zero,
		GrossTotal:  decimal.Zero,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, item := range items {
		if item.Err != nil {
			manifest.Skipped = append(manifest.Skipped, domain.SkippedDocument{
				Number: item.Source.Number,
				Reason: item.Err.Error(),
			})
			continue
		}
		w, err := zw.Create(archiveSubdir + "/" + a.EntryName(item.Doc))
		if err != nil {
			return nil, manifest, fmt.Errorf("%w: creating entry for %s: %v", domain.ErrAssembly, item.Source.Number, err)
		}
		if _, err := w.Write(item.Bytes); err != nil {
			return nil, manifest, fmt.Errorf("%w: writing entry for %s: %v", domain.ErrAssembly, item.Source.Number, err)
		}
		manifest.Exported++
		accumulateTotals(&manifest, item.Doc)
	}
	if err := zw.Close(); err != nil {
		return nil, manifest, fmt.Errorf("%w: closing archive: %v", domain.ErrAssembly, err)
	}
	return buf.Bytes(), manifest, nil
}

// accumulateTotals adds a mapped document's totals into the manifest.
// Credit notes subtract: the manifest totals reflect the net position.
func accumulateTotals(manifest *domain.ExportManifest, doc *ubl.Document) {
	var net, tax, gross decimal.Decimal
	switch {
	case doc.Invoice != nil:
		net = doc.Invoice.LegalMonetaryTotal.LineExtensionAmount.Value
		tax = doc.Invoice.TaxTotal.TaxAmount.Value
		gross = doc.Invoice.LegalMonetaryTotal.TaxInclusiveAmount.Value
	case doc.CreditNote != nil:
		net = doc.CreditNote.LegalMonetaryTotal.LineExtensionAmount.Value.Neg()
		tax = doc.CreditNote.TaxTotal.TaxAmount.Value.Neg()
		gross = doc.CreditNote.LegalMonetaryTotal.TaxInclusiveAmount.Value.Neg()
	}
	manifest.NetTotal = manifest.NetTotal.Add(net)
	manifest.TaxTotal = manifest.TaxTotal.Add(tax)
	manifest.GrossTotal = manifest.GrossTotal.Add(gross)
}
