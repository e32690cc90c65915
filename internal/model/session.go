package model

// Status is the lifecycle state of the session.
type Status int

const (
	// StatusUnknown holds until bootstrap has read the store.
	StatusUnknown Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// Session is a point-in-time copy of the session state. User is nil unless
// Status is StatusAuthenticated.
type Session struct {
	Status Status
	Token  string
	User   *User
}

func (s Session) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.Token != "" && s.User != nil
}

// Role is empty whenever the session is not authenticated.
func (s Session) Role() Role {
	if !s.IsAuthenticated() {
		return ""
	}
	return s.User.Tipo
}
