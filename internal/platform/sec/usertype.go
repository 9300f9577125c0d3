// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Types

// UserType is the role category stored on an identity.
type UserType int

const (
	// Learners using the client web app or the mobile device app
	UserTypeUser UserType = 1

	// Back-office operators
	UserTypeAdmin UserType = 2
)

// platformAccess maps each user type to the platforms it may log in on.
var platformAccess = map[UserType][]Platform{
	UserTypeUser:  {PlatformClient, PlatformDevice},
	UserTypeAdmin: {PlatformAdmin},
}

// Valid reports whether t is a known user type.
func (t UserType) Valid() bool {
	_, ok := platformAccess[t]
	return ok
}

// IsAdmin reports whether t is [UserTypeAdmin].
func (t UserType) IsAdmin() bool {
	return t == UserTypeAdmin
}

// AllowedOn reports whether identities of type t may authenticate on platform.
func (t UserType) AllowedOn(platform Platform) bool {
	for _, allowed := range platformAccess[t] {
		if allowed == platform {
			return true
		}
	}
	return false
}

// String returns a lowercase label used in logs and metrics.
func (t UserType) String() string {
	switch t {
	case UserTypeUser:
		return "user"
	case UserTypeAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// DefaultUserType returns the type assigned to self-registered identities on platform.
func DefaultUserType(platform Platform) UserType {
	if platform == PlatformAdmin {
		return UserTypeAdmin
	}
	return UserTypeUser
}
