package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeBusinessRule, status: http.StatusUnprocessableEntity, publicMsg: "business rule violated", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}

	formatted := Newf(CodeBusinessRule, "insufficient stock, available %d, requested %d", 0, 1)
	if formatted.Message() != "insufficient stock, available 0, requested 1" {
		t.Fatalf("unexpected formatted message %q", formatted.Message())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeAndCodeOfFollowWrapping(t *testing.T) {
	inner := New(CodeBusinessRule, "no open shift for operator")
	outer := fmt.Errorf("create sale: %w", inner)

	if !IsCode(outer, CodeBusinessRule) {
		t.Fatalf("expected wrapped business rule to be detected")
	}
	if IsCode(outer, CodeNotFound) {
		t.Fatalf("unexpected code match")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("plain errors should map to internal")
	}
	if CodeOf(outer) != CodeBusinessRule {
		t.Fatalf("expected business rule code")
	}
}

func TestDumpCapturesPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_cash_shifts_open_till", TableName: "cash_shifts", Message: "duplicate key value"}
	err := Wrap(CodeConflict, pgErr, "till already has an open shift")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.PGCode != "23505" || dump.PGConstraint != "ux_cash_shifts_open_till" || dump.PGTable != "cash_shifts" {
		t.Fatalf("unexpected pg fields %+v", dump)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", dump.Chain)
	}
}
