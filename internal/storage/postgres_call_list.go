package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/utils"
)

type callListRepo struct {
	*PostgresRepo
}

// Create inserts a call list.
func (r *callListRepo) Create(ctx context.Context, list model.CallList) error {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}
	if list.WorkspaceID != workspaceID {
		return fmt.Errorf("%w: call list workspace %s does not match workspace %s", apperrors.ErrBadRequest, list.WorkspaceID, workspaceID)
	}

	return r.write(ctx, "create", "call_list", workspaceID, func(tx *gorm.DB) error {
		return checkConstraintViolation(tx.Create(&list).Error)
	})
}

// Update replaces the mutable columns of an existing call list.
func (r *callListRepo) Update(ctx context.Context, list model.CallList) error {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return err
	}
	list.UpdatedAt = utils.Now()

	return r.write(ctx, "update", "call_list", workspaceID, func(tx *gorm.DB) error {
		res := tx.Model(&model.CallList{}).
			Where("id = ? AND workspace_id = ?", list.ID, workspaceID).
			Updates(map[string]interface{}{
				"name":        list.Name,
				"description": list.Description,
				"status":      list.Status,
				"messages":    list.Messages,
				"questions":   list.Questions,
				"meta":        list.Meta,
				"updated_at":  list.UpdatedAt,
			})
		if res.Error != nil {
			return checkConstraintViolation(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("call list", list.ID)
		}
		return nil
	})
}

// FindByID loads one call list of the acting workspace.
func (r *callListRepo) FindByID(ctx context.Context, id string) (*model.CallList, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, err
	}

	var list model.CallList
	err = r.read(ctx, "find", "call_list", workspaceID, func() error {
		return r.db.WithContext(ctx).
			Where("id = ? AND workspace_id = ?", id, workspaceID).
			First(&list).Error
	})
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// List returns call lists ordered by newest first.
func (r *callListRepo) List(ctx context.Context, filter model.CallListFilter, page model.Page) ([]model.CallList, int64, error) {
	workspaceID, err := workspaceFrom(ctx)
	if err != nil {
		return nil, 0, err
	}

	var (
		lists []model.CallList
		total int64
	)
	err = r.read(ctx, "list", "call_list", workspaceID, func() error {
		q := r.db.WithContext(ctx).Model(&model.CallList{}).Where("workspace_id = ?", workspaceID)
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.GroupID != "" {
			q = q.Where("group_id = ?", filter.GroupID)
		}
		if filter.Search != "" {
			q = q.Where("name ILIKE ?", "%"+filter.Search+"%")
		}
		if err := q.Count(&total).Error; err != nil {
			return err
		}
		return q.Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
			Offset(page.Offset()).Limit(page.Limit()).
			Find(&lists).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return lists, total, nil
}
