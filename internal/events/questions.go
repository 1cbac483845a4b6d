package events

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/luhive/luhive-backend/pkg/enums"
)

// Question is one organizer-defined registration field.
type Question struct {
	ID        string             `json:"id"`
	Label     string             `json:"label"`
	Type      enums.QuestionType `json:"type"`
	Required  bool               `json:"required"`
	MaxLength *int               `json:"max_length,omitempty"`
	Options   []string           `json:"options,omitempty"`
}

// ParseQuestions decodes the stored question schema. Empty input yields no questions.
func ParseQuestions(raw datatypes.JSON) ([]Question, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var questions []Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("decode custom questions: %w", err)
	}
	return questions, nil
}

// ValidateQuestions checks that the schema is well formed.
func ValidateQuestions(questions []Question) error {
	seen := make(map[string]struct{}, len(questions))
	for i, q := range questions {
		id := strings.TrimSpace(q.ID)
		if id == "" {
			return fmt.Errorf("question %d: id is required", i+1)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("question %q: duplicate id", id)
		}
		seen[id] = struct{}{}
		if strings.TrimSpace(q.Label) == "" {
			return fmt.Errorf("question %q: label is required", id)
		}
		if !q.Type.IsValid() {
			return fmt.Errorf("question %q: unknown type %q", id, q.Type)
		}
		if q.MaxLength != nil && *q.MaxLength < 1 {
			return fmt.Errorf("question %q: max_length must be positive", id)
		}
		if q.Type == enums.QuestionTypeSelect && len(q.Options) == 0 {
			return fmt.Errorf("question %q: select questions need options", id)
		}
	}
	return nil
}

func encodeQuestions(questions []Question) (datatypes.JSON, error) {
	if len(questions) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
