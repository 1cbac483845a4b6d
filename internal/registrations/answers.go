package registrations

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/luhive/luhive-backend/internal/events"
	"github.com/luhive/luhive-backend/pkg/enums"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
)

var fieldValidator = validator.New()

func isE164(phone string) bool {
	return fieldValidator.Var(phone, "required,e164") == nil
}

func isEmail(email string) bool {
	return fieldValidator.Var(email, "required,email") == nil
}

// validateAnswers checks answers against the event question schema and
// returns the trimmed answers for known questions only.
func validateAnswers(questions []events.Question, answers map[string]string) (map[string]string, error) {
	clean := make(map[string]string, len(questions))
	details := map[string]string{}

	for _, q := range questions {
		value := strings.TrimSpace(answers[q.ID])
		if value == "" {
			if q.Required {
				details[q.ID] = fmt.Sprintf("%s is required", q.Label)
			}
			continue
		}
		if q.MaxLength != nil && utf8.RuneCountInString(value) > *q.MaxLength {
			details[q.ID] = fmt.Sprintf("%s must be at most %d characters", q.Label, *q.MaxLength)
			continue
		}
		switch q.Type {
		case enums.QuestionTypePhone:
			if !isE164(value) {
				details[q.ID] = fmt.Sprintf("%s must be a phone number in international format", q.Label)
				continue
			}
		case enums.QuestionTypeSelect:
			if !containsOption(q.Options, value) {
				details[q.ID] = fmt.Sprintf("%s must be one of the listed options", q.Label)
				continue
			}
		}
		clean[q.ID] = value
	}

	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "some answers are invalid").WithDetails(details)
	}
	return clean, nil
}

func containsOption(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
