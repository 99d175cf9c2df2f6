package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/vavebg/ops-console/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("priority_level", validatePriorityLevel); err != nil {
		panic(fmt.Sprintf("failed to register priority_level validator: %v", err))
	}
}

// validatePriorityLevel validates that an int is a valid priority level
func validatePriorityLevel(fl validator.FieldLevel) bool {
	value := fl.Field().Int()
	return value >= models.MinLevel && value <= models.MaxLevel
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidatePriorityLevel validates a priority level value
func ValidatePriorityLevel(value int) error {
	if value < models.MinLevel || value > models.MaxLevel {
		return fmt.Errorf("invalid priority: %d (must be between %d and %d)", value, models.MinLevel, models.MaxLevel)
	}
	return nil
}
