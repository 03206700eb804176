package models

// Session is the client-held authentication state: an opaque token issued at
// login and the profile cached from the last successful "who am I" call.
// The token is never decoded locally, the backend is the only judge of it.
type Session struct {
	Token   string   `json:"token,omitempty"`
	Profile *Profile `json:"profile,omitempty"`
}

// IsAuthenticated returns true if a token is present.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Token != ""
}
