package moderation

import "strings"

type Role string
type Action string

const (
	RoleNone      Role = ""
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
	RoleOwner     Role = "owner"
)

const (
	ActionMute Action = "mute"
)

// Rank orders roles; higher wins. Unknown roles rank with RoleNone.
func Rank(role Role) int {
	switch role {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleModerator:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// Normalize maps a stored role tag to a Role, ignoring case and whitespace.
func Normalize(tag string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(tag))); r {
	case RoleMember, RoleModerator, RoleAdmin, RoleOwner:
		return r
	default:
		return RoleNone
	}
}

// Highest returns the highest-ranked role among tags.
func Highest(tags []string) Role {
	best := RoleNone
	for _, tag := range tags {
		if r := Normalize(tag); Rank(r) > Rank(best) {
			best = r
		}
	}
	return best
}

// Punitive reports whether action is taken against someone else's will.
func Punitive(action Action) bool {
	switch action {
	case ActionMute:
		return true
	default:
		return false
	}
}
