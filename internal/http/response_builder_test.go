package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"finspect/internal/apierr"
	"finspect/internal/core"
)

func TestJSONResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusCreated).Header("Location", "/x").Data(map[string]int{"id": 1}).Write(rec)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("Location") != "/x" {
		t.Errorf("Location = %q", rec.Header().Get("Location"))
	}
	if rec.Body.String() != "{\"id\":1}\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestJSONResponseBuilder_NoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Data("ignored").Write(rec)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Data(make(chan int)).Write(rec)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		kind      apierr.Kind
		retryable bool
	}{
		{"field validation", apierr.As(&core.ValidationError{Fields: []core.FieldError{{Field: "name", Message: "too short"}}}), http.StatusUnprocessableEntity, apierr.Validation, false},
		{"plain validation", apierr.New(apierr.Validation, "bad"), http.StatusBadRequest, apierr.Validation, false},
		{"upstream status kept", &apierr.Error{Kind: apierr.Server, Status: 503}, 503, apierr.Server, true},
		{"timeout", apierr.New(apierr.Timeout, ""), http.StatusGatewayTimeout, apierr.Timeout, true},
		{"foreign error", errors.New("boom"), http.StatusInternalServerError, apierr.Unknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ErrorResponse(tt.err).Write(rec)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var doc ErrorDocument
			if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if doc.Kind != tt.kind || doc.Retryable != tt.retryable {
				t.Errorf("doc = %+v", doc)
			}
			if doc.Title == "" || doc.Message == "" {
				t.Errorf("title and message must be set: %+v", doc)
			}
		})
	}
}

func TestTooManyRequestsError(t *testing.T) {
	rec := httptest.NewRecorder()
	TooManyRequestsError().Write(rec)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d", rec.Code)
	}
}
