package ubl

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/domain"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// Serialize renders a UBL document to UTF-8 XML bytes. It fails only on an
// internal-consistency bug; mapping has already rejected invalid documents.
func Serialize(doc *Document) ([]byte, error) {
	var root interface{}
	switch {
	case doc.Invoice != nil:
		root = doc.Invoice
	case doc.CreditNote != nil:
		root = doc.CreditNote
	default:
		return nil, fmt.Errorf("%w: document has no root variant", domain.ErrSerialization)
	}

	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
