package shared

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Role is the workshop role an operator acts under
type Role string

const (
	RoleMechanic  Role = "mechanic"
	RoleFrontdesk Role = "frontdesk"
	RoleAdmin     Role = "admin"
)

// ParseRole parses a role name case-insensitively
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", NewFieldValidationError("role", "must be one of mechanic, frontdesk, admin")
	}
	return r, nil
}

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleMechanic, RoleFrontdesk, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Operator is the authenticated person issuing a command
type Operator struct {
	ID   uuid.UUID
	Name string
	Role Role
}

type operatorKey struct{}

// WithOperator stores the operator in ctx
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFromContext returns the operator stored in ctx
func OperatorFromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(Operator)
	return op, ok
}

// RequireRole returns the operator in ctx if it holds one of the roles.
// An empty roles list accepts any known role.
func RequireRole(ctx context.Context, roles ...Role) (Operator, error) {
	op, ok := OperatorFromContext(ctx)
	if !ok || op.ID == uuid.Nil || !op.Role.IsValid() {
		return Operator{}, ErrUnauthorized
	}
	if len(roles) > 0 && !slices.Contains(roles, op.Role) {
		return Operator{}, ErrForbidden.WithDetail("role", string(op.Role))
	}
	return op, nil
}
