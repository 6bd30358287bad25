package apierr

import "strings"

const (
	MsgCategoryNotFound     = "Category not found. It may have been deleted."
	MsgCategoryCreateFailed = "Failed to create category. Please check your input."
	MsgCategoryDeleteFailed = "Failed to delete category. This category may have associated expenses."
	MsgCircularReference    = "A category cannot be its own parent or create a circular reference."
	MsgCategoryNameExists   = "A category with this name already exists."
	MsgActiveChildren       = "Cannot delete a category that has active subcategories."
)

// CategoryMessage picks the message shown to a user after a category
// operation failed.
func CategoryMessage(err error) string {
	e := As(err)
	if e == nil {
		return ""
	}
	lower := strings.ToLower(e.Message)
	switch e.Kind {
	case NotFound:
		return MsgCategoryNotFound
	case Validation:
		if strings.Contains(lower, "circular") || strings.Contains(lower, "parent") {
			return MsgCircularReference
		}
		if strings.Contains(lower, "exists") || strings.Contains(lower, "duplicate") {
			return MsgCategoryNameExists
		}
		if len(e.Fields) > 0 {
			_, msg, _ := e.FirstField()
			return msg
		}
		return MsgCategoryCreateFailed
	case Conflict:
		if strings.Contains(lower, "circular") {
			return MsgCircularReference
		}
		if strings.Contains(lower, "exists") || strings.Contains(lower, "duplicate") {
			return MsgCategoryNameExists
		}
		if strings.Contains(lower, "subcategor") {
			return e.Message
		}
		return MsgCategoryDeleteFailed
	}
	return e.UserMessage()
}
