package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AnswerKind discriminates the value held by an AnswerValue.
type AnswerKind uint8

const (
	AnswerKindNull AnswerKind = iota
	AnswerKindString
	AnswerKindNumber
	AnswerKindBool
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerKindString:
		return "string"
	case AnswerKindNumber:
		return "number"
	case AnswerKindBool:
		return "boolean"
	default:
		return "null"
	}
}

// AnswerValue is a string, number or boolean answer. The zero value is null.
type AnswerValue struct {
	kind AnswerKind
	str  string
	num  float64
	b    bool
}

func StringAnswer(s string) AnswerValue  { return AnswerValue{kind: AnswerKindString, str: s} }
func NumberAnswer(n float64) AnswerValue { return AnswerValue{kind: AnswerKindNumber, num: n} }
func BoolAnswer(b bool) AnswerValue      { return AnswerValue{kind: AnswerKindBool, b: b} }

// Kind returns the discriminant.
func (v AnswerValue) Kind() AnswerKind { return v.kind }

// IsNull reports whether no value was supplied.
func (v AnswerValue) IsNull() bool { return v.kind == AnswerKindNull }

// Bool returns the boolean value and whether the answer holds one.
func (v AnswerValue) Bool() (bool, bool) { return v.b, v.kind == AnswerKindBool }

// Number returns the numeric value and whether the answer holds one.
func (v AnswerValue) Number() (float64, bool) { return v.num, v.kind == AnswerKindNumber }

// Text returns the string value and whether the answer holds one.
func (v AnswerValue) Text() (string, bool) { return v.str, v.kind == AnswerKindString }

// String renders the value the way option comparison sees it.
func (v AnswerValue) String() string {
	switch v.kind {
	case AnswerKindString:
		return v.str
	case AnswerKindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case AnswerKindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case AnswerKindString:
		return json.Marshal(v.str)
	case AnswerKindNumber:
		return json.Marshal(v.num)
	case AnswerKindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Arrays and objects are rejected.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = AnswerValue{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringAnswer(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolAnswer(b)
	case '[', '{':
		return fmt.Errorf("answer must be a string, number or boolean")
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("answer must be a string, number or boolean: %w", err)
		}
		*v = NumberAnswer(n)
	}
	return nil
}

// Answer is one persisted answer. Question text and type are copied at write
// time so later questionnaire edits do not rewrite history.
type Answer struct {
	QuestionID string       `json:"question_id"`
	Question   string       `json:"question"`
	Answer     AnswerValue  `json:"answer"`
	AnswerType QuestionType `json:"answer_type"`
}

// AnswerInput is one submitted answer.
type AnswerInput struct {
	QuestionID string       `json:"question_id" validate:"required"`
	Answer     AnswerValue  `json:"answer"`
	AnswerType QuestionType `json:"answer_type,omitempty"`
}
