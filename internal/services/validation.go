package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"tenxcards-backend/internal/models"
)

// Lengths are counted in Unicode code points after trimming surrounding whitespace.

func validateInputText(text string) (string, *ValidationError) {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return "", &ValidationError{Fields: map[string]string{"input_text": "This field may not be blank."}}
	case utf8.RuneCountInString(trimmed) > models.MaxInputTextLength:
		return "", &ValidationError{Fields: map[string]string{
			"input_text": fmt.Sprintf("Ensure this field has no more than %d characters.", models.MaxInputTextLength),
		}}
	}
	return trimmed, nil
}

// validateCard trims and checks a front/back pair, collecting every offending field.
func validateCard(front, back string) (string, string, *ValidationError) {
	front = strings.TrimSpace(front)
	back = strings.TrimSpace(back)

	fields := map[string]string{}
	if msg := checkLength(front, models.MaxFrontLength); msg != "" {
		fields["front"] = msg
	}
	if msg := checkLength(back, models.MaxBackLength); msg != "" {
		fields["back"] = msg
	}
	if len(fields) > 0 {
		return "", "", &ValidationError{Fields: fields}
	}
	return front, back, nil
}

func checkLength(s string, max int) string {
	if s == "" {
		return "This field may not be blank."
	}
	if utf8.RuneCountInString(s) > max {
		return fmt.Sprintf("Ensure this field has no more than %d characters.", max)
	}
	return ""
}
