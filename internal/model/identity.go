package model

// RoleAdmin marks an identity allowed to view the audit trail. The check
// is a UI convenience only: role claims are decoded client-side without
// verification, and the server enforces authorization on every request.
const RoleAdmin = "admin"

// Identity is the acting user derived from the bearer credential. The
// zero value means "no identity": every component must treat it as
// authorized for nothing.
type Identity struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles,omitempty"`
}

// IsZero reports whether no identity could be derived.
func (id Identity) IsZero() bool {
	return id.ID == ""
}

// HasRole reports whether the identity carries the named role claim.
func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Profile is the lightweight user snapshot persisted alongside the
// credential for the session's duration.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
