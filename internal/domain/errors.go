package domain

import (
	"errors"
	"fmt"
)

// Run-level errors. These abort a run; no partial archive is exposed.
var (
	ErrFetchUnavailable = errors.New("document source unavailable")
	ErrFetchRejected    = errors.New("document source rejected the query")
	ErrSerialization    = errors.New("xml serialization failed")
	ErrAssembly         = errors.New("archive assembly failed")
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
)

// MappingReason classifies why a single document could not be mapped to UBL.
type MappingReason string

const (
	ReasonUnsupportedVariant   MappingReason = "unsupported_variant"
	ReasonMissingRequiredField MappingReason = "missing_required_field"
	ReasonTotalsMismatch       MappingReason = "totals_mismatch"
)

// MappingError is a per-document failure. It excludes the document from the
// archive and is recorded in the manifest; it never aborts the batch.
type MappingError struct {
	Reason MappingReason
	Field  string
	Detail string
}

func (e *MappingError) Error() string {
	switch e.Reason {
	case ReasonMissingRequiredField:
		return fmt.Sprintf("missing required field: %s", e.Field)
	case ReasonTotalsMismatch:
		return fmt.Sprintf("totals mismatch: %s", e.Detail)
	case ReasonUnsupportedVariant:
		return fmt.Sprintf("unsupported document variant: %s", e.Detail)
	}
	return string(e.Reason)
}

// NewUnsupportedVariant builds a MappingError for a kind the profile cannot express.
func NewUnsupportedVariant(detail string) *MappingError {
	return &MappingError{Reason: ReasonUnsupportedVariant, Detail: detail}
}

// NewMissingRequiredField builds a MappingError for an absent mandatory field.
func NewMissingRequiredField(field string) *MappingError {
	return &MappingError{Reason: ReasonMissingRequiredField, Field: field}
}

// NewTotalsMismatch builds a MappingError for a declared/computed total divergence.
func NewTotalsMismatch(detail string) *MappingError {
	return &MappingError{Reason: ReasonTotalsMismatch, Detail: detail}
}

// AsMappingError unwraps err into a *MappingError if it is one.
func AsMappingError(err error) (*MappingError, bool) {
	var me *MappingError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}
