package core

import (
	"errors"
	"strings"
	"testing"
)

func TestCategoryInputValidate(t *testing.T) {
	cases := []struct {
		name   string
		in     CategoryInput
		ok     bool
		fields []string
	}{
		{"valid root", CategoryInput{Name: "Food", ColorCode: "#FF5733"}, true, nil},
		{"valid lower hex", CategoryInput{Name: "Fo", ColorCode: "#abcdef"}, true, nil},
		{"valid child", CategoryInput{Name: "Groceries", ColorCode: "#00aa00", ParentID: IDPtr(1)}, true, nil},
		{"short name", CategoryInput{Name: "A", ColorCode: "#FF5733"}, false, []string{"name"}},
		{"blank name", CategoryInput{Name: "   ", ColorCode: "#FF5733"}, false, []string{"name"}},
		{"padded short name", CategoryInput{Name: " A ", ColorCode: "#FF5733"}, false, []string{"name"}},
		{"short hex", CategoryInput{Name: "Food", ColorCode: "#FFF"}, false, []string{"colorCode"}},
		{"no hash", CategoryInput{Name: "Food", ColorCode: "FF5733"}, false, []string{"colorCode"}},
		{"bad digit", CategoryInput{Name: "Food", ColorCode: "#GG5733"}, false, []string{"colorCode"}},
		{"both", CategoryInput{Name: "F", ColorCode: "red"}, false, []string{"name", "colorCode"}},
		{"long description", CategoryInput{Name: "Food", ColorCode: "#FF5733", Description: strings.Repeat("x", 501)}, false, []string{"description"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if tc.ok {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			got := verr.FieldMap()
			for _, f := range tc.fields {
				if _, ok := got[f]; !ok {
					t.Fatalf("expected field %q in %v", f, got)
				}
			}
			if len(got) != len(tc.fields) {
				t.Fatalf("expected %d fields, got %v", len(tc.fields), got)
			}
		})
	}
}

func TestShortNameMessage(t *testing.T) {
	err := CategoryInput{Name: "A", ColorCode: "#FF5733"}.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.FieldMap()["name"] != ErrNameTooShort.Error() {
		t.Fatalf("unexpected message %q", verr.FieldMap()["name"])
	}
}

func TestValidColor(t *testing.T) {
	for _, s := range []string{"#000000", "#FFFFFF", "#a1B2c3"} {
		if !ValidColor(s) {
			t.Fatalf("%q should be valid", s)
		}
	}
	for _, s := range []string{"", "#", "#12345", "#1234567", "123456", "#12345g", " #123456"} {
		if ValidColor(s) {
			t.Fatalf("%q should be invalid", s)
		}
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID(" 42 ")
	if err != nil || id != 42 {
		t.Fatalf("got %v, %v", id, err)
	}
	if _, err := ParseID("abc"); err == nil {
		t.Fatalf("expected error")
	}
	if ID(7).String() != "7" {
		t.Fatalf("unexpected string %q", ID(7).String())
	}
}

func TestCategoryHelpers(t *testing.T) {
	root := Category{ID: 1, Name: "Food"}
	child := Category{ID: 2, Name: "Groceries", ParentID: IDPtr(1)}
	if !root.IsRoot() || child.IsRoot() {
		t.Fatalf("root detection wrong")
	}
	if !child.HasParent(1) || child.HasParent(2) || root.HasParent(1) {
		t.Fatalf("HasParent wrong")
	}
	in := child.Input()
	if in.Name != "Groceries" || in.ParentID == nil || *in.ParentID != 1 {
		t.Fatalf("unexpected input %+v", in)
	}
}
