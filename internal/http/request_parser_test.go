package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finspect/internal/apierr"
	"finspect/internal/core"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		query   string
		def     bool
		want    bool
		wantErr bool
	}{
		{"", false, false, false},
		{"", true, true, false},
		{"flag=true", false, true, false},
		{"flag=0", true, false, false},
		{"flag=maybe", false, false, true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		got, err := ParseBool(r, "flag", tt.def)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBool(%q) error = %v", tt.query, err)
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseBool(%q) = %v, want %v", tt.query, got, tt.want)
		}
		if err != nil && !apierr.Is(err, apierr.Validation) {
			t.Errorf("ParseBool(%q) error kind = %v", tt.query, apierr.KindOf(err))
		}
	}
}

func TestParseOptionalID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?editing=12", nil)
	id, err := ParseOptionalID(r, "editing")
	if err != nil || id == nil || *id != 12 {
		t.Fatalf("ParseOptionalID() = %v, %v", id, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	if id, err := ParseOptionalID(r, "editing"); err != nil || id != nil {
		t.Fatalf("missing param = %v, %v; want nil, nil", id, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/?editing=x", nil)
	if _, err := ParseOptionalID(r, "editing"); !apierr.Is(err, apierr.Validation) {
		t.Fatalf("invalid param error = %v", err)
	}
}

func TestParsePathID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/categories/7", nil)
	r.SetPathValue("id", "7")
	id, err := ParsePathID(r)
	if err != nil || id != core.ID(7) {
		t.Fatalf("ParsePathID() = %v, %v", id, err)
	}

	r.SetPathValue("id", "seven")
	if _, err := ParsePathID(r); !apierr.Is(err, apierr.Validation) {
		t.Fatalf("ParsePathID(seven) error = %v", err)
	}
}

func TestDecodeCategoryInput(t *testing.T) {
	body := `{"name":"  Coffee\u0007 ","description":" beans ","colorCode":" #123456 ","parentId":3,"sortOrder":2}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")

	in, err := DecodeCategoryInput(httptest.NewRecorder(), r)
	if err != nil {
		t.Fatalf("DecodeCategoryInput() error = %v", err)
	}
	if in.Name != "Coffee" || in.Description != "beans" || in.ColorCode != "#123456" {
		t.Errorf("text not sanitized: %+v", in)
	}
	if in.ParentID == nil || *in.ParentID != 3 || in.SortOrder == nil || *in.SortOrder != 2 {
		t.Errorf("ids not decoded: %+v", in)
	}
}

func TestDecodeCategoryInput_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"form body", "application/x-www-form-urlencoded", "name=Coffee"},
		{"oversized", "application/json", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`},
		{"wrong type", "application/json", `{"name":42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)
			_, err := DecodeCategoryInput(httptest.NewRecorder(), r)
			if !apierr.Is(err, apierr.Validation) {
				t.Fatalf("error = %v, want validation", err)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput(" a\tb\x00c \n"); got != "abc" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
