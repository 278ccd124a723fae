package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// Student is the read-only contact record owned by the contact directory.
type Student struct {
	ID          string                      `json:"id" gorm:"primaryKey;type:text"`
	WorkspaceID string                      `json:"workspace_id" gorm:"column:workspace_id;type:text"`
	GroupID     string                      `json:"group_id,omitempty" gorm:"column:group_id;type:text"`
	BatchID     string                      `json:"batch_id,omitempty" gorm:"column:batch_id;type:text"`
	Name        string                      `json:"name" gorm:"type:text"`
	Email       string                      `json:"email,omitempty" gorm:"type:text"`
	Phones      datatypes.JSONSlice[string] `json:"phones,omitempty" gorm:"type:jsonb"`
}

// TableName specifies the table name for the Student model, respecting the Namer.
func (Student) TableName(namer schema.Namer) string {
	return namer.TableName("students")
}

// WorkspaceMember maps an identity user to its workspace-scoped member id.
type WorkspaceMember struct {
	ID          string `json:"id" gorm:"primaryKey;type:text"`
	WorkspaceID string `json:"workspace_id" gorm:"column:workspace_id;type:text"`
	UserID      string `json:"user_id" gorm:"column:user_id;type:text"`
	Role        string `json:"role" gorm:"type:text"`
}

// TableName specifies the table name for the WorkspaceMember model, respecting the Namer.
func (WorkspaceMember) TableName(namer schema.Namer) string {
	return namer.TableName("workspace_members")
}
