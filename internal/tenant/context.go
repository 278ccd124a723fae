package tenant

import (
	"context"
	"errors"
)

type contextKey string

const (
	workspaceIDKey contextKey = "workspaceID"
	callerKey      contextKey = "caller"
	requestIDKey   contextKey = "requestID"
)

// Roles understood by the engine. Anything else is treated as a plain caller.
const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleCaller     = "caller"
	RoleSuperAdmin = "super_admin"
)

// ErrWorkspaceIDNotFound is returned when no workspace ID is found in context
var ErrWorkspaceIDNotFound = errors.New("workspace ID not found in context")

// ErrCallerNotFound is returned when no caller identity is found in context
var ErrCallerNotFound = errors.New("caller not found in context")

// ErrNoRequestIDInContext is returned when no request ID is found in context
var ErrNoRequestIDInContext = errors.New("no request ID found in context")

// Caller is the acting workspace member. UserID is the identity-service id,
// MemberID the workspace-scoped id stored in assignedTo columns.
type Caller struct {
	UserID      string
	MemberID    string
	WorkspaceID string
	Role        string
}

// IsAdmin reports whether the caller may act on items assigned to others.
func (c Caller) IsAdmin() bool {
	switch c.Role {
	case RoleOwner, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// WithWorkspaceID adds a workspace ID to the context
func WithWorkspaceID(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, workspaceIDKey, workspaceID)
}

// FromContext extracts the workspace ID from the context
func FromContext(ctx context.Context) (string, error) {
	workspaceID, ok := ctx.Value(workspaceIDKey).(string)
	if !ok || workspaceID == "" {
		return "", ErrWorkspaceIDNotFound
	}
	return workspaceID, nil
}

// WithCaller stores the acting caller and its workspace in the context.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	ctx = context.WithValue(ctx, callerKey, caller)
	return WithWorkspaceID(ctx, caller.WorkspaceID)
}

// CallerFromContext extracts the acting caller from the context
func CallerFromContext(ctx context.Context) (Caller, error) {
	caller, ok := ctx.Value(callerKey).(Caller)
	if !ok || caller.MemberID == "" || caller.WorkspaceID == "" {
		return Caller{}, ErrCallerNotFound
	}
	return caller, nil
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FromRequestIDContext extracts the request ID from the context
func FromRequestIDContext(ctx context.Context) (string, error) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		return "", ErrNoRequestIDInContext
	}
	return requestID, nil
}
