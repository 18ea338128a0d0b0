package domain

import (
	"slices"
	"strings"
)

// Category represents a column classification tag used by this package.
// It buckets cards for statistics and never limits which cards a column holds.
type Category string

// CategoryNone and related constants define the closed category tag set.
// CategoryNone marks legacy columns that predate category tagging.
const (
	CategoryNone  Category = ""
	CategoryTodo  Category = "todo"
	CategoryDoing Category = "doing"
	CategoryDone  Category = "done"
	CategoryBugs  Category = "bugs"
)

var validCategories = []Category{CategoryNone, CategoryTodo, CategoryDoing, CategoryDone, CategoryBugs}

// doneTitleKeywords and progressTitleKeywords back the legacy-data fallback:
// columns without a category are classified by title keywords instead.
var (
	doneTitleKeywords     = []string{"done", "erledigt"}
	progressTitleKeywords = []string{"progress", "bearbeitung"}
)

// Valid reports whether the category is one of the closed tag set.
func (c Category) Valid() bool {
	return slices.Contains(validCategories, c)
}

// NormalizeCategory canonicalizes raw category input.
func NormalizeCategory(raw string) (Category, error) {
	c := Category(strings.TrimSpace(strings.ToLower(raw)))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// titleContainsAny reports whether the lowered title contains any keyword.
func titleContainsAny(title string, keywords []string) bool {
	title = strings.ToLower(title)
	for _, keyword := range keywords {
		if strings.Contains(title, keyword) {
			return true
		}
	}
	return false
}
