package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		exposed   bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, exposed: true, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, exposed: true},
		{code: CodeForbidden, status: http.StatusForbidden, exposed: true},
		{code: CodeNotFound, status: http.StatusNotFound, exposed: true},
		{code: CodeConflict, status: http.StatusConflict, exposed: true, detailsOK: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, exposed: true, detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, exposed: true, detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, retryable: true, exposed: true},
		{code: CodeConfiguration, status: http.StatusInternalServerError, exposed: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s has no public message", tt.code)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.ExposeMessage != tt.exposed {
			t.Fatalf("code %s expected exposed %v got %v", tt.code, tt.exposed, meta.ExposeMessage)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestServerSide(t *testing.T) {
	for _, code := range []Code{CodeInternal, CodeDependency, CodeConfiguration, "UNKNOWN"} {
		if !ServerSide(code) {
			t.Fatalf("%s should be server side", code)
		}
	}
	for _, code := range []Code{CodeValidation, CodeStateConflict, CodeRateLimit} {
		if ServerSide(code) {
			t.Fatalf("%s should be client side", code)
		}
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("deadline exceeded"), "list shifts")
	if got := err.Error(); got != "DEPENDENCY_ERROR: list shifts: deadline exceeded" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := Newf(CodeValidation, "days must be between 1 and %d", 31).Error(); got != "VALIDATION_ERROR: days must be between 1 and 31" {
		t.Fatalf("unexpected error string %q", got)
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

func TestIsMatchesWrappedCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeStateConflict, "already resolved"))
	if !Is(err, CodeStateConflict) {
		t.Fatal("expected state conflict code to be found")
	}
	if Is(err, CodeNotFound) {
		t.Fatal("did not expect not found code")
	}
	if Is(stdErrors.New("plain"), CodeInternal) {
		t.Fatal("plain errors carry no code")
	}
}

func TestTraceIncludesUpstreamStatus(t *testing.T) {
	cause := status.Error(codes.Aborted, "too much contention")
	err := Wrap(CodeDependency, cause, "accept swap")

	trace := TraceOf(err)
	if trace.Code != CodeDependency {
		t.Fatalf("unexpected code %s", trace.Code)
	}
	if trace.GRPCCode != codes.Aborted.String() || trace.GRPCMessage != "too much contention" {
		t.Fatalf("unexpected grpc status %q %q", trace.GRPCCode, trace.GRPCMessage)
	}
	if len(trace.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(trace.Chain))
	}
	fields := trace.Fields()
	if fields["grpc_code"] != "Aborted" || len(fields["error_chain"].([]string)) != 2 {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := fields["error"]; ok {
		t.Fatal("the logger records the message itself")
	}

	rest := Wrap(CodeDependency, &googleapi.Error{Code: 503, Message: "backend"}, "query analytics")
	if got := TraceOf(rest).HTTPStatus; got != 503 {
		t.Fatalf("expected upstream 503, got %d", got)
	}
}

func TestTraceFollowsJoinedErrors(t *testing.T) {
	joined := stdErrors.Join(stdErrors.New("first"), New(CodeConflict, "second"))
	trace := TraceOf(joined)
	if len(trace.Chain) != 3 {
		t.Fatalf("expected join plus both branches, got %v", trace.Chain)
	}
	if trace.Code != CodeConflict {
		t.Fatalf("typed branch should supply the code, got %q", trace.Code)
	}
	if _, ok := TraceOf(stdErrors.New("plain")).Fields()["error_chain"]; ok {
		t.Fatal("single-link chains are not logged")
	}
	if got := TraceOf(nil); got.Message != "" || got.Chain != nil {
		t.Fatalf("nil error should give an empty trace, got %+v", got)
	}
}
