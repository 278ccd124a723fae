package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/utils"
)

type followupRepo struct {
	*PostgresRepo
}

// Create inserts a follow-up.
func (r *followupRepo) Create(ctx context.Context, followup model.Followup) error {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}
	if followup.WorkspaceID != workspaceID {
		return fmt.Errorf("%w: followup workspace %s does not match workspace %s", apperrors.ErrBadRequest, followup.WorkspaceID, workspaceID)
	}

	return r.write(ctx, "create", "followup", workspaceID, func(tx *gorm.DB) error {
		return checkConstraintViolation(tx.Create(&followup).Error)
	})
}

// FindByID loads one follow-up of the acting workspace.
func (r *followupRepo) FindByID(ctx context.Context, id string) (*model.Followup, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}

	var f model.Followup
	err = r.read(ctx, "find", "followup", workspaceID, func() error {
		return r.db.WithContext(ctx).
			Where("id = ? AND workspace_id = ?", id, workspaceID).
			First(&f).Error
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdatePending locks the row and writes the editable fields while it is
// still PENDING.
func (r *followupRepo) UpdatePending(ctx context.Context, followup model.Followup) error {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}
	followup.UpdatedAt = utils.Now()

	return r.write(ctx, "update_pending", "followup", workspaceID, func(tx *gorm.DB) error {
		var existing model.Followup
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND workspace_id = ? AND status = ?", followup.ID, workspaceID, model.FollowupPending).
			First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("pending followup", followup.ID)
			}
			return checkConstraintViolation(err)
		}
		return checkConstraintViolation(tx.Model(&existing).Updates(map[string]interface{}{
			"due_at":       followup.DueAt,
			"notes":        followup.Notes,
			"assigned_to":  followup.AssignedTo,
			"status":       followup.Status,
			"completed_at": followup.CompletedAt,
			"updated_at":   followup.UpdatedAt,
		}).Error)
	})
}

// DeletePending removes a follow-up that is still PENDING.
func (r *followupRepo) DeletePending(ctx context.Context, id string) error {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}

	return r.write(ctx, "delete_pending", "followup", workspaceID, func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND workspace_id = ? AND status = ?", id, workspaceID, model.FollowupPending).
			Delete(&model.Followup{})
		if res.Error != nil {
			return checkConstraintViolation(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("pending followup", id)
		}
		return nil
	})
}

// List returns follow-ups ordered by due time.
func (r *followupRepo) List(ctx context.Context, filter model.FollowupFilter, now time.Time, page model.Page) ([]model.Followup, int64, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, 0, err
	}

	var (
		out   []model.Followup
		total int64
	)
	err = r.read(ctx, "list", "followup", workspaceID, func() error {
		q := r.db.WithContext(ctx).Model(&model.Followup{}).Where("workspace_id = ?", workspaceID)
		if filter.Overdue {
			q = q.Where("status = ? AND due_at < ?", model.FollowupPending, now)
		} else if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.AssignedTo != "" {
			q = q.Where("assigned_to = ?", filter.AssignedTo)
		}
		if filter.CallListID != "" {
			q = q.Where("call_list_id = ?", filter.CallListID)
		}
		if filter.StudentID != "" {
			q = q.Where("student_id = ?", filter.StudentID)
		}
		if filter.GroupID != "" {
			q = q.Where("group_id = ?", filter.GroupID)
		}
		if filter.DueFrom != nil {
			q = q.Where("due_at >= ?", *filter.DueFrom)
		}
		if filter.DueTo != nil {
			q = q.Where("due_at < ?", *filter.DueTo)
		}
		if err := q.Count(&total).Error; err != nil {
			return err
		}
		return q.Order("due_at ASC, created_at ASC").
			Offset(page.Offset()).Limit(page.Limit()).
			Find(&out).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

type pendingCounts struct {
	Upcoming int64
	Overdue  int64
}

// CountPending counts memberID's PENDING follow-ups split at now.
func (r *followupRepo) CountPending(ctx context.Context, memberID, callListID string, now time.Time) (int64, int64, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return 0, 0, err
	}

	var counts pendingCounts
	err = r.read(ctx, "count_pending", "followup", workspaceID, func() error {
		q := r.db.WithContext(ctx).Model(&model.Followup{}).
			Select("COUNT(*) FILTER (WHERE due_at >= ?) AS upcoming, COUNT(*) FILTER (WHERE due_at < ?) AS overdue", now, now).
			Where("workspace_id = ? AND assigned_to = ? AND status = ?", workspaceID, memberID, model.FollowupPending)
		if callListID != "" {
			q = q.Where("call_list_id = ?", callListID)
		}
		return q.Scan(&counts).Error
	})
	if err != nil {
		return 0, 0, err
	}
	return counts.Upcoming, counts.Overdue, nil
}
