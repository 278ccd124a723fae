package model

import (
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// CallListStatus is the lifecycle state of a campaign.
type CallListStatus string

const (
	CallListActive    CallListStatus = "ACTIVE"
	CallListCompleted CallListStatus = "COMPLETED"
	CallListArchived  CallListStatus = "ARCHIVED"
)

// QuestionType is the declared answer type of a question.
type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionYesNo          QuestionType = "yes_no"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionNumber         QuestionType = "number"
	QuestionDate           QuestionType = "date"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionYesNo, QuestionMultipleChoice, QuestionNumber, QuestionDate:
		return true
	}
	return false
}

// Question is one entry of a campaign questionnaire. Options only apply to
// multiple_choice questions.
type Question struct {
	ID       string       `json:"id"`
	Question string       `json:"question"`
	Type     QuestionType `json:"type"`
	Required bool         `json:"required"`
	Options  []string     `json:"options,omitempty"`
	Order    int          `json:"order"`
}

// CallList is a campaign. Questions and messages are embedded; meta is the
// free-form bag for campaign specific data.
type CallList struct {
	ID          string                        `json:"id" gorm:"primaryKey;type:text"`
	WorkspaceID string                        `json:"workspace_id" gorm:"column:workspace_id;index;type:text;not null"`
	GroupID     *string                       `json:"group_id,omitempty" gorm:"column:group_id;index;type:text"`
	Name        string                        `json:"name" gorm:"type:text;not null"`
	Description string                        `json:"description,omitempty" gorm:"type:text"`
	Status      CallListStatus                `json:"status" gorm:"type:text;index;not null"`
	Messages    datatypes.JSONSlice[string]   `json:"messages" gorm:"type:jsonb"`
	Questions   datatypes.JSONSlice[Question] `json:"questions" gorm:"type:jsonb"`
	Meta        datatypes.JSONMap             `json:"meta,omitempty" gorm:"type:jsonb"`
	CreatedBy   string                        `json:"created_by,omitempty" gorm:"type:text"`
	CreatedAt   time.Time                     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time                     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the CallList model, respecting the Namer.
func (CallList) TableName(namer schema.Namer) string {
	return namer.TableName("call_lists")
}

// SortedQuestions returns the questionnaire ordered by Order; equal orders
// keep their declared position.
func (c CallList) SortedQuestions() []Question {
	out := make([]Question, len(c.Questions))
	copy(out, c.Questions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// QuestionByID looks up a question of this list.
func (c CallList) QuestionByID(id string) (Question, bool) {
	for _, q := range c.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
