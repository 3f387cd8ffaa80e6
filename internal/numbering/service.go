package numbering

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
)

const nextNumberSQL = `
INSERT INTO document_sequences (business_id, doc_type, year, last_number, updated_at)
VALUES (?, ?, ?, 1, ?)
ON CONFLICT (business_id, doc_type, year)
DO UPDATE SET last_number = document_sequences.last_number + 1, updated_at = excluded.updated_at
RETURNING last_number`

// Prefixes maps each document series to the prefix printed on its numbers.
type Prefixes map[enums.DocumentType]string

// DefaultPrefixes are the series used when configuration does not override them.
func DefaultPrefixes() Prefixes {
	return Prefixes{
		enums.DocumentSale:   "VTA",
		enums.DocumentQuote:  "COT",
		enums.DocumentReturn: "DEV",
	}
}

// Service allocates gap-free document numbers per business, series and year.
type Service interface {
	Next(ctx context.Context, tx *gorm.DB, businessID uuid.UUID, docType enums.DocumentType, at time.Time) (string, error)
}

type service struct {
	prefixes Prefixes
	loc      *time.Location
}

// NewService builds the numbering service. loc selects the calendar year a
// document belongs to.
func NewService(prefixes Prefixes, loc *time.Location) (Service, error) {
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes()
	}
	for _, doc := range []enums.DocumentType{enums.DocumentSale, enums.DocumentQuote, enums.DocumentReturn} {
		if strings.TrimSpace(prefixes[doc]) == "" {
			return nil, fmt.Errorf("prefix for %s required", doc)
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &service{prefixes: prefixes, loc: loc}, nil
}

// Next increments the counter inside tx. The counter row stays locked until
// tx ends, so concurrent sales of one business queue on it.
func (s *service) Next(ctx context.Context, tx *gorm.DB, businessID uuid.UUID, docType enums.DocumentType, at time.Time) (string, error) {
	if tx == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "numbering requires a transaction")
	}
	prefix, ok := s.prefixes[docType]
	if !ok {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown document type %q", docType)
	}
	if at.IsZero() {
		at = time.Now()
	}
	year := at.In(s.loc).Year()

	var last int64
	err := tx.WithContext(ctx).
		Raw(nextNumberSQL, businessID, docType, year, time.Now().UTC()).
		Scan(&last).Error
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate document number")
	}
	if last <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "document counter returned no value")
	}
	return Format(prefix, year, last), nil
}

// Format renders PREFIX-YYYY-NNNNN.
func Format(prefix string, year int, n int64) string {
	return fmt.Sprintf("%s-%04d-%05d", prefix, year, n)
}
