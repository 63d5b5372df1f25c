package model

// Session is the caller identity for one request. It is created by the auth
// middleware from a verified token and cleared when the request ends.
type Session struct {
	UserID string
	Email  string
	Role   string
	Flags  AdminFlags
}

func NewSession(user *User) *Session {
	return &Session{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Flags:  user.AdminFlags,
	}
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// Can reports whether the session is an admin holding flag.
func (s *Session) Can(flag AdminFlags) bool {
	return s.IsAdmin() && s.Flags.Has(flag)
}
