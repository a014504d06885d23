// Package moderation authorizes privileged directives against the role
// hierarchy owner > admin > moderator > member.
package moderation

import (
	"context"
	"fmt"

	"github.com/weiawesome/huddle-sync/internal/domain"
)

// Decision is the gate's verdict.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// RoleResolver looks up a user's role tags.
type RoleResolver interface {
	ResolveRoles(ctx context.Context, userID string) ([]string, error)
}

// Verdict explains a decision.
type Verdict struct {
	Decision      Decision
	RequesterRole Role
	TargetRole    Role
	Reason        string
}

// Err returns nil for Allow and a wrapped ErrAuthorizationDenied otherwise.
func (v Verdict) Err() error {
	if v.Decision == Allow {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrAuthorizationDenied, v.Reason)
}

// Gate is a pure decision function over resolved roles. It never broadcasts.
type Gate struct {
	resolver RoleResolver
}

func NewGate(resolver RoleResolver) *Gate {
	return &Gate{resolver: resolver}
}

// Authorize resolves both users' roles and decides. Any lookup failure denies.
func (g *Gate) Authorize(ctx context.Context, requesterUserID, targetUserID string, action Action) Verdict {
	if requesterUserID == "" || targetUserID == "" {
		return Verdict{Decision: Deny, Reason: "missing user"}
	}

	reqTags, err := g.resolver.ResolveRoles(ctx, requesterUserID)
	if err != nil {
		return Verdict{Decision: Deny, Reason: "requester role lookup failed"}
	}
	targetTags, err := g.resolver.ResolveRoles(ctx, targetUserID)
	if err != nil {
		return Verdict{Decision: Deny, Reason: "target role lookup failed"}
	}

	requester, target := Highest(reqTags), Highest(targetTags)
	v := Verdict{RequesterRole: requester, TargetRole: target}
	v.Decision, v.Reason = Decide(action, requester, target, requesterUserID == targetUserID)
	return v
}

// Decide is the comparison table. Muting yourself is always allowed; acting
// on someone else needs at least moderator and a strictly higher rank.
func Decide(action Action, requester, target Role, self bool) (Decision, string) {
	if !Punitive(action) {
		return Deny, "unknown action"
	}
	if self {
		return Allow, "self"
	}
	if Rank(requester) < Rank(RoleModerator) {
		return Deny, "requester lacks moderation rights"
	}
	if Rank(requester) <= Rank(target) {
		return Deny, "target is not outranked"
	}
	return Allow, "outranks target"
}
