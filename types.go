package eduAuth

import (
	"github.com/MrEthical07/eduAuth/internal/flows"
	"github.com/MrEthical07/eduAuth/session"
	"github.com/MrEthical07/eduAuth/validation"
)

// Session types.
type (
	User       = session.User
	UserPatch  = session.UserPatch
	Role       = session.Role
	State      = session.State
	LoadReport = session.LoadReport
	Navigator  = session.Navigator
	Storage    = session.Storage
)

// Roles.
const (
	RoleStudent = session.RoleStudent
	RoleTeacher = session.RoleTeacher
	RoleAdmin   = session.RoleAdmin
)

// Form payloads and their validation result.
type (
	LoginInput    = validation.LoginInput
	RegisterInput = validation.RegisterInput
	FieldErrors   = validation.FieldErrors
)

// AuthResult is returned by a successful login or registration. The session
// has already been stored when it is returned.
type AuthResult = flows.AuthResult
