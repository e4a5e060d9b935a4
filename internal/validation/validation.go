// Package validation checks user supplied fields before they reach a service.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxTopicLength = 80
	MaxSpokenText  = 500
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateTopic checks a collection topic typed by the user
func ValidateTopic(topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ValidationError{Field: "topic", Message: "topic is required"}
	}
	if utf8.RuneCountInString(topic) > MaxTopicLength {
		return ValidationError{Field: "topic", Message: fmt.Sprintf("topic must be at most %d characters", MaxTopicLength)}
	}
	if strings.ContainsAny(topic, "\r\n") {
		return ValidationError{Field: "topic", Message: "topic must be a single line"}
	}
	return nil
}

// ValidateSpokenText checks text sent to speech synthesis
func ValidateSpokenText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ValidationError{Field: "text", Message: "text is required"}
	}
	if len(text) > MaxSpokenText {
		return ValidationError{Field: "text", Message: fmt.Sprintf("text must be at most %d bytes", MaxSpokenText)}
	}
	return nil
}
