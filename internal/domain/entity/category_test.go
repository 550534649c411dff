package entity

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCategory(t *testing.T) {
	tests := []struct {
		name     string
		category string
		wantErr  bool
	}{
		{name: "single word", category: "science", wantErr: false},
		{name: "with space", category: "world news", wantErr: false},
		{name: "with hyphen", category: "unknown-category", wantErr: false},
		{name: "digits", category: "f1", wantErr: false},
		{name: "minimum length", category: "ai", wantErr: false},
		{name: "maximum length", category: strings.Repeat("a", 32), wantErr: false},
		{name: "empty", category: "", wantErr: true},
		{name: "too short", category: "a", wantErr: true},
		{name: "too long", category: strings.Repeat("a", 33), wantErr: true},
		{name: "punctuation", category: "tech!", wantErr: true},
		{name: "sql injection", category: "a'; DROP TABLE x", wantErr: true},
		{name: "underscore", category: "tech_news", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCategory(tt.category)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCategory))
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var validationErr *ValidationError
			assert.True(t, errors.As(err, &validationErr))
			assert.Equal(t, "category", validationErr.Field)
		})
	}
}

func TestCategoryKey(t *testing.T) {
	assert.Equal(t, "science", CategoryKey("Science"))
	assert.Equal(t, "world news", CategoryKey("  World News "))
}
