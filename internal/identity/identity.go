// Package identity resolves the authenticated caller into an Actor: the role and
// submitter identity every submission operation is evaluated against.
package identity

import (
	"context"
	"strings"
	"time"

	id "rekam/pkg/domain"
)

// Role is the caller's authorization level.
type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleSuperuser Role = "superuser"
)

// ParseRole normalises a stored role. Anything unrecognised is treated as RoleUser.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleSuperuser:
		return RoleSuperuser
	default:
		return RoleUser
	}
}

// IsPrivileged reports whether the role may review submissions of any owner.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleSuperuser
}

func (r Role) String() string { return string(r) }

// Profile is the stored identity record for a user.
type Profile struct {
	UserID    id.UserID `json:"user_id"`
	Name      string    `json:"name"`
	NIK       string    `json:"nik"`
	Role      string    `json:"role"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor is the resolved caller of an operation.
type Actor struct {
	ID   id.UserID
	Role Role
	Name string
	NIK  string
}

// IsPrivileged reports whether the actor holds admin or superuser.
func (a Actor) IsPrivileged() bool { return a.Role.IsPrivileged() }

// ActorFromProfile projects a stored profile into an Actor.
func ActorFromProfile(p *Profile) Actor {
	return Actor{
		ID:   p.UserID,
		Role: ParseRole(p.Role),
		Name: strings.TrimSpace(p.Name),
		NIK:  strings.TrimSpace(p.NIK),
	}
}

type actorKey struct{}

// WithActor stores the resolved actor in ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
