package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := Gateway("organize", errors.New("boom"))
	wrapped := fmt.Errorf("trigger: %w", base)
	if KindOf(wrapped) != KindGateway {
		t.Fatalf("KindOf=%q, want gateway", KindOf(wrapped))
	}
	if !IsGateway(wrapped) {
		t.Fatal("IsGateway should be true")
	}
	if IsValidation(wrapped) {
		t.Fatal("IsValidation should be false")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatal("unclassified error should be internal")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Validation("add", "content is empty")
	if got := err.Error(); !strings.Contains(got, "add") || !strings.Contains(got, "content is empty") {
		t.Fatalf("unexpected message %q", got)
	}
	cause := errors.New("disk full")
	serr := Storage("save", cause)
	if !errors.Is(serr, cause) {
		t.Fatal("Storage error should unwrap to cause")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{Validation("x", "y"), http.StatusBadRequest},
		{NotFound("x", "fragment"), http.StatusNotFound},
		{Gateway("x", errors.New("y")), http.StatusBadGateway},
		{Stream("x", errors.New("y")), http.StatusBadGateway},
		{Storage("x", errors.New("y")), http.StatusServiceUnavailable},
		{errors.New("y"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v)=%d, want %d", tc.err, got, tc.want)
		}
	}
}
