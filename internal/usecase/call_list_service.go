package usecase

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/questionnaire"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
)

// CreateCallList creates an ACTIVE campaign after validating its questionnaire.
func (s *Service) CreateCallList(ctx context.Context, in model.CreateCallListInput) (*model.CallList, error) {
	caller, err := s.authorize(ctx, ResourceCallList, ActionCreate)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := questionnaire.ValidateQuestions(in.Questions); err != nil {
		return nil, err
	}

	now := s.now()
	list := model.CallList{
		ID:          newID(),
		WorkspaceID: caller.WorkspaceID,
		GroupID:     in.GroupID,
		Name:        in.Name,
		Description: in.Description,
		Status:      model.CallListActive,
		Messages:    datatypes.NewJSONSlice(nonNil(in.Messages)),
		Questions:   datatypes.NewJSONSlice(nonNil(in.Questions)),
		Meta:        datatypes.JSONMap(in.Meta),
		CreatedBy:   caller.MemberID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CallLists().Create(ctx, list); err != nil {
		logger.FromContext(ctx).Error("Failed to create call list", zap.String("name", in.Name), zap.Error(err))
		return nil, err
	}

	logger.FromContext(ctx).Info("Call list created",
		zap.String("call_list_id", list.ID),
		zap.Int("questions", len(list.Questions)),
	)
	return withSortedQuestions(&list), nil
}

// UpdateCallList applies a partial update. Replaced questionnaires are
// validated as a whole; existing call logs keep their answer snapshots.
func (s *Service) UpdateCallList(ctx context.Context, id string, in model.UpdateCallListInput) (*model.CallList, error) {
	if _, err := s.authorize(ctx, ResourceCallList, ActionUpdate); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	list, err := s.repo.CallLists().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "call list", id)
	}

	if in.Name != nil {
		list.Name = *in.Name
	}
	if in.Description != nil {
		list.Description = *in.Description
	}
	if in.Status != nil {
		list.Status = *in.Status
	}
	if in.Messages != nil {
		list.Messages = datatypes.NewJSONSlice(nonNil(*in.Messages))
	}
	if in.Questions != nil {
		if err := questionnaire.ValidateQuestions(*in.Questions); err != nil {
			return nil, err
		}
		list.Questions = datatypes.NewJSONSlice(nonNil(*in.Questions))
	}
	if in.Meta != nil {
		list.Meta = datatypes.JSONMap(in.Meta)
	}

	if err := s.repo.CallLists().Update(ctx, *list); err != nil {
		return nil, notFound(err, "call list", id)
	}
	list.UpdatedAt = s.now()
	return withSortedQuestions(list), nil
}

// ArchiveCallList retires a campaign. Call lists are never hard-deleted.
func (s *Service) ArchiveCallList(ctx context.Context, id string) (*model.CallList, error) {
	status := model.CallListArchived
	return s.UpdateCallList(ctx, id, model.UpdateCallListInput{Status: &status})
}

// GetCallList returns one campaign with its questions in display order.
func (s *Service) GetCallList(ctx context.Context, id string) (*model.CallList, error) {
	if _, err := s.authorize(ctx, ResourceCallList, ActionRead); err != nil {
		return nil, err
	}
	list, err := s.repo.CallLists().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "call list", id)
	}
	return withSortedQuestions(list), nil
}

// ListCallLists pages through the workspace's campaigns, newest first.
func (s *Service) ListCallLists(ctx context.Context, filter model.CallListFilter, page model.Page) (model.PageResult[model.CallList], error) {
	if _, err := s.authorize(ctx, ResourceCallList, ActionRead); err != nil {
		return model.PageResult[model.CallList]{}, err
	}
	if err := validateInput(filter); err != nil {
		return model.PageResult[model.CallList]{}, err
	}
	page = page.Normalize()
	lists, total, err := s.repo.CallLists().List(ctx, filter, page)
	if err != nil {
		return model.PageResult[model.CallList]{}, err
	}
	for i := range lists {
		lists[i].Questions = lists[i].SortedQuestions()
	}
	return model.NewPageResult(lists, total, page), nil
}

func withSortedQuestions(list *model.CallList) *model.CallList {
	list.Questions = list.SortedQuestions()
	return list
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
