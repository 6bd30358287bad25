package core

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	MinNameLength        = 2
	MaxNameLength        = 100
	MaxDescriptionLength = 500
)

type (
	// ID is the identifier assigned by the category API. It is only compared.
	ID int64

	// Category is one node of the hierarchy as held by the category API.
	Category struct {
		ID          ID
		Name        string
		Description string
		ColorCode   string
		ParentID    *ID // nil for a root category
		ParentName  string
		IsActive    bool
		SortOrder   *int
	}

	// CategoryInput is the payload for create and update.
	CategoryInput struct {
		Name        string `validate:"required,catname"`
		Description string `validate:"max=500"`
		ColorCode   string `validate:"required,hexcolor6"`
		ParentID    *ID
		SortOrder   *int `validate:"omitempty,min=0"`
	}

	// FieldError describes one rejected input field.
	FieldError struct {
		Field   string
		Message string
	}

	// ValidationError groups every field problem found in one input.
	ValidationError struct {
		Fields []FieldError
	}
)

var (
	ErrNameTooShort    = errors.New("category name must be at least 2 characters long")
	ErrNameTooLong     = errors.New("category name must be less than 100 characters")
	ErrInvalidColor    = errors.New("color code must be a valid hex color (e.g., #FF5733)")
	ErrDescriptionLong = errors.New("description must be less than 500 characters")
	ErrSelfParent      = errors.New("category cannot be its own parent")
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
			return ValidColor(fl.Field().String())
		})
		_ = validate.RegisterValidation("catname", func(fl validator.FieldLevel) bool {
			n := len([]rune(strings.TrimSpace(fl.Field().String())))
			return n >= MinNameLength && n <= MaxNameLength
		})
	})
	return validate
}

// ValidColor reports whether s is a six digit #RRGGBB color.
func ValidColor(s string) bool {
	return colorPattern.MatchString(s)
}

// String renders the id the way the API does in paths.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses a path or flag value into an ID.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid category id %q", s)
	}
	return ID(n), nil
}

// IDPtr is a small helper for optional parent ids.
func IDPtr(id ID) *ID { return &id }

// IsRoot reports whether the category has no parent.
func (c Category) IsRoot() bool { return c.ParentID == nil }

// HasParent reports whether the category's parent is id.
func (c Category) HasParent(id ID) bool {
	return c.ParentID != nil && *c.ParentID == id
}

// Input returns the editable fields of c.
func (c Category) Input() CategoryInput {
	return CategoryInput{
		Name:        c.Name,
		Description: c.Description,
		ColorCode:   c.ColorCode,
		ParentID:    c.ParentID,
		SortOrder:   c.SortOrder,
	}
}

// Normalize trims user supplied text.
func (in CategoryInput) Normalize() CategoryInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ColorCode = strings.TrimSpace(in.ColorCode)
	return in
}

// Validate checks the input locally. It never touches the network.
func (in CategoryInput) Validate() error {
	err := validatorInstance().Struct(in.Normalize())
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fieldError(fe, in))
	}
	return out
}

func fieldError(fe validator.FieldError, in CategoryInput) FieldError {
	switch fe.Field() {
	case "Name":
		msg := ErrNameTooShort.Error()
		if fe.Tag() == "required" {
			msg = "category name is required"
		} else if len([]rune(strings.TrimSpace(in.Name))) > MaxNameLength {
			msg = ErrNameTooLong.Error()
		}
		return FieldError{Field: "name", Message: msg}
	case "ColorCode":
		msg := ErrInvalidColor.Error()
		if fe.Tag() == "required" {
			msg = "color code is required"
		}
		return FieldError{Field: "colorCode", Message: msg}
	case "Description":
		return FieldError{Field: "description", Message: ErrDescriptionLong.Error()}
	case "SortOrder":
		return FieldError{Field: "sortOrder", Message: "sort order must not be negative"}
	}
	return FieldError{Field: strings.ToLower(fe.Field()), Message: fe.Error()}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid category input"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

// FieldMap flattens the field errors, first message per field.
func (e *ValidationError) FieldMap() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := m[f.Field]; !ok {
			m[f.Field] = f.Message
		}
	}
	return m
}
