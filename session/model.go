package session

import "strings"

// Role is the platform role of a [User].
type Role string

const (
	// RoleStudent is a learner account; only students carry a grade.
	RoleStudent Role = "STUDENT"
	// RoleTeacher is a teaching staff account.
	RoleTeacher Role = "TEACHER"
	// RoleAdmin is a platform administrator account.
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// ParseRole normalizes s (case-insensitive) into a [Role].
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// User is the client copy of the identity record created by the remote
// service. The client never creates one on its own; it only receives it from
// login, registration or /auth/me and merges partial updates into it.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
	Grade     *int   `json:"grade,omitempty"`
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Grade != nil {
		g := *u.Grade
		out.Grade = &g
	}
	return &out
}

// FullName joins first and last name.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserPatch carries the fields of a partial user update. Nil fields are left
// untouched.
type UserPatch struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *Role
	Grade     *int
}

// PatchFromUser builds a patch that overwrites every field present in u.
func PatchFromUser(u User) UserPatch {
	p := UserPatch{}
	if u.Email != "" {
		p.Email = &u.Email
	}
	if u.FirstName != "" {
		p.FirstName = &u.FirstName
	}
	if u.LastName != "" {
		p.LastName = &u.LastName
	}
	if u.Role != "" {
		role := u.Role
		p.Role = &role
	}
	if u.Grade != nil {
		g := *u.Grade
		p.Grade = &g
	}
	return p
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil && p.Role == nil && p.Grade == nil
}

func (p UserPatch) applyTo(u *User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Grade != nil {
		g := *p.Grade
		u.Grade = &g
	}
}

// State is the full session state observed by readers.
//
// IsAuthenticated is true if and only if both User and Token are set.
// IsLoading is transient and never persisted.
type State struct {
	User            *User
	Token           string
	IsAuthenticated bool
	IsLoading       bool
}

func (s State) clone() State {
	s.User = s.User.Clone()
	return s
}

// Snapshot is the durable subset of [State].
type Snapshot struct {
	User            *User  `json:"user"`
	Token           string `json:"token,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Snapshot returns the durable subset of s.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		User:            s.User.Clone(),
		Token:           s.Token,
		IsAuthenticated: s.IsAuthenticated,
	}
}

// normalize enforces the auth invariant: a snapshot holding exactly one of
// user and token is treated as empty. The second return value reports whether
// anything had to be discarded.
func (s Snapshot) normalize() (Snapshot, bool) {
	hasUser := s.User != nil
	hasToken := s.Token != ""
	switch {
	case hasUser && hasToken:
		return Snapshot{User: s.User, Token: s.Token, IsAuthenticated: true}, !s.IsAuthenticated
	case !hasUser && !hasToken:
		return Snapshot{}, s.IsAuthenticated
	default:
		return Snapshot{}, true
	}
}
