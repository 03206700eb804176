package models

// Roles reported by the auth backend.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Profile is the user record returned by the auth backend's user-profile
// endpoint. It is informational only, authorization stays server-side.
type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// DisplayName returns "First Last", falling back to the email address.
func (p Profile) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	case p.LastName != "":
		return p.LastName
	default:
		return p.Email
	}
}
