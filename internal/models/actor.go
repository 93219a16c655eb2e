package models

// Actor is the identity a core operation acts on behalf of.
type Actor struct {
	UserID int64
	Role   UserRole
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsInstructor reports whether the actor holds the instructor role.
func (a Actor) IsInstructor() bool { return a.Role == RoleInstructor }

// IsStudent reports whether the actor holds the student role.
func (a Actor) IsStudent() bool { return a.Role == RoleStudent }

// ActorFromClaims converts validated token claims into an Actor.
func ActorFromClaims(claims *JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}
}
