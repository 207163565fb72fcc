package domain

import (
	"strings"
	"time"
)

// Role is the authorization level of a forum user.
type Role string

const (
	// RoleUser is the default role for every account.
	RoleUser Role = "user"
	// RoleAdmin grants access to moderation and site management.
	RoleAdmin Role = "admin"
)

// ParseRole normalizes a role string. Anything that is not "admin" is a user.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// RoleRecord is the role lookup result for an email.
type RoleRecord struct {
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

// Membership is the paid tier of an account.
type Membership string

const (
	MembershipFree   Membership = "free"
	MembershipMember Membership = "member"
)

// Badge is shown next to a user's name. Members earn gold.
type Badge string

const (
	BadgeBronze Badge = "bronze"
	BadgeGold   Badge = "gold"
)

// FreePostLimit is the number of posts a free account may publish.
const FreePostLimit = 5

// User is a forum account as stored by the forum API.
type User struct {
	ID         string     `json:"_id,omitempty"`
	Email      string     `json:"email"`
	Name       string     `json:"username,omitempty"`
	Photo      string     `json:"photo,omitempty"`
	Role       Role       `json:"role"`
	Badge      Badge      `json:"badge,omitempty"`
	Membership Membership `json:"membership,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitzero"`
	LastLogIn  time.Time  `json:"last_log_in,omitzero"`
}

// IsMember reports whether the account has paid membership.
func (u *User) IsMember() bool {
	return strings.EqualFold(string(u.Membership), string(MembershipMember))
}

// NewUser builds the record registered with the forum API after sign-up.
func NewUser(email, name, photo string, now time.Time) *User {
	return &User{
		Email:      email,
		Name:       name,
		Photo:      photo,
		Role:       RoleUser,
		Badge:      BadgeBronze,
		Membership: MembershipFree,
		CreatedAt:  now,
		LastLogIn:  now,
	}
}
