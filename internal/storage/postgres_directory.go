package storage

import (
	"context"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
)

// studentDirectory reads the contact directory's students table.
type studentDirectory struct {
	*PostgresRepo
}

func (r *studentDirectory) FindStudent(ctx context.Context, id string) (*model.Student, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}

	var s model.Student
	err = r.read(ctx, "find", "student", workspaceID, func() error {
		return r.db.WithContext(ctx).
			Where("id = ? AND workspace_id = ?", id, workspaceID).
			First(&s).Error
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentDirectory) FindStudents(ctx context.Context, ids []string) (map[string]model.Student, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Student, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []model.Student
	err = r.read(ctx, "find_many", "student", workspaceID, func() error {
		return r.db.WithContext(ctx).
			Where("workspace_id = ? AND id IN ?", workspaceID, ids).
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	for _, s := range rows {
		out[s.ID] = s
	}
	return out, nil
}

// memberDirectory reads workspace membership.
type memberDirectory struct {
	*PostgresRepo
}

// ResolveMember maps an identity user to its member row. It takes the
// workspace explicitly since it runs before the caller context exists.
func (r *memberDirectory) ResolveMember(ctx context.Context, workspaceID, userID string) (*model.WorkspaceMember, error) {
	var m model.WorkspaceMember
	err := r.read(ctx, "resolve", "workspace_member", workspaceID, func() error {
		return r.db.WithContext(ctx).
			Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
			First(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memberDirectory) FindMember(ctx context.Context, workspaceID, memberID string) (*model.WorkspaceMember, error) {
	var m model.WorkspaceMember
	err := r.read(ctx, "find", "workspace_member", workspaceID, func() error {
		return r.db.WithContext(ctx).
			Where("workspace_id = ? AND id = ?", workspaceID, memberID).
			First(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}
