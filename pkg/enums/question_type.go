package enums

import "fmt"

// QuestionType is the input kind of a custom registration question.
type QuestionType string

const (
	QuestionTypeText     QuestionType = "text"
	QuestionTypeTextarea QuestionType = "textarea"
	QuestionTypePhone    QuestionType = "phone"
	QuestionTypeSelect   QuestionType = "select"
)

var validQuestionTypes = []QuestionType{
	QuestionTypeText,
	QuestionTypeTextarea,
	QuestionTypePhone,
	QuestionTypeSelect,
}

// String implements fmt.Stringer.
func (v QuestionType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known QuestionType.
func (v QuestionType) IsValid() bool {
	for _, candidate := range validQuestionTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseQuestionType converts raw input into a QuestionType.
func ParseQuestionType(value string) (QuestionType, error) {
	for _, candidate := range validQuestionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid question type %q", value)
}
