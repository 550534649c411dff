package entity

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MinCategoryLength is the shortest accepted category.
	MinCategoryLength = 2
	// MaxCategoryLength is the longest accepted category.
	MaxCategoryLength = 32
)

// CategoryPattern matches letters, digits, spaces and hyphens.
var CategoryPattern = regexp.MustCompile(`^[a-zA-Z0-9 \-]+$`)

// ValidateCategory checks the length and alphabet of a category.
func ValidateCategory(category string) error {
	n := len(category)
	if n < MinCategoryLength || n > MaxCategoryLength {
		return fmt.Errorf("%w: %w", ErrInvalidCategory, &ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("must be between %d and %d characters", MinCategoryLength, MaxCategoryLength),
		})
	}
	if !CategoryPattern.MatchString(category) {
		return fmt.Errorf("%w: %w", ErrInvalidCategory, &ValidationError{
			Field:   "category",
			Message: "may only contain letters, digits, spaces and hyphens",
		})
	}
	return nil
}

// CategoryKey folds a category for case-insensitive comparisons.
func CategoryKey(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
