package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/storage"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/tenant"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/validator"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/utils"
)

// EventPublisher hands a domain event to the async publisher. Implementations
// must not block the request on delivery.
type EventPublisher interface {
	Publish(ctx context.Context, event model.DomainEvent) error
}

// StatsCache caches the my calls statistics of one member.
type StatsCache interface {
	Get(ctx context.Context, workspaceID, memberID, callListID string) (*model.MyCallsStats, bool)
	Set(ctx context.Context, workspaceID, memberID, callListID string, stats model.MyCallsStats)
	Invalidate(ctx context.Context, workspaceID string, memberIDs ...string)
}

// Service implements every call campaign operation on top of a Repository.
// Each exported method authorizes the caller found in ctx first.
type Service struct {
	repo   storage.Repository
	authz  Authorizer
	events EventPublisher
	stats  StatsCache
	now    func() time.Time
}

// NewService creates a new service. Nil collaborators fall back to the role
// authorizer and no-op publisher and cache.
func NewService(repo storage.Repository, authz Authorizer, events EventPublisher, stats StatsCache) *Service {
	if authz == nil {
		authz = RoleAuthorizer{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	if stats == nil {
		stats = noopStatsCache{}
	}
	return &Service{
		repo:   repo,
		authz:  authz,
		events: events,
		stats:  stats,
		now:    utils.Now,
	}
}

// authorize resolves the acting caller and checks the capability.
func (s *Service) authorize(ctx context.Context, resource Resource, action Action) (tenant.Caller, error) {
	caller, err := tenant.CallerFromContext(ctx)
	if err != nil {
		return tenant.Caller{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	if !s.authz.HasPermission(caller, resource, action) {
		logger.FromContext(ctx).Warn("Permission denied",
			zap.String("resource", string(resource)),
			zap.String("action", string(action)),
			zap.String("role", caller.Role),
		)
		return tenant.Caller{}, apperrors.Forbidden("role %q may not %s %s", caller.Role, action, resource)
	}
	return caller, nil
}

// validateInput runs struct tag validation on a request payload.
func validateInput(in interface{}) error {
	return validator.Validate(in)
}

// checkMembers verifies that every non-empty id names a member of the
// workspace. Unknown ids are reported as NotFound.
func (s *Service) checkMembers(ctx context.Context, workspaceID string, memberIDs ...string) error {
	seen := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, err := s.repo.Members().FindMember(ctx, workspaceID, id); err != nil {
			return notFound(err, "workspace member", id)
		}
	}
	return nil
}

// notFound normalises a storage miss to the entity's NotFound error and
// passes every other error through.
func notFound(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NotFound(entity, id)
	}
	return err
}

// publish emits a domain event. Publication failures never reach the caller.
func (s *Service) publish(ctx context.Context, eventType model.EventType, caller tenant.Caller, data interface{}) {
	evt := model.DomainEvent{
		ID:          newID(),
		Type:        eventType,
		WorkspaceID: caller.WorkspaceID,
		ActorID:     caller.MemberID,
		OccurredAt:  s.now(),
		Data:        data,
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		logger.FromContext(ctx).Warn("Failed to publish domain event",
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
}

func newID() string { return uuid.NewString() }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, model.DomainEvent) error { return nil }

type noopStatsCache struct{}

func (noopStatsCache) Get(context.Context, string, string, string) (*model.MyCallsStats, bool) {
	return nil, false
}
func (noopStatsCache) Set(context.Context, string, string, string, model.MyCallsStats) {}
func (noopStatsCache) Invalidate(context.Context, string, ...string) {}
