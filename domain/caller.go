package domain

// Caller is the authenticated actor of a request. It is derived from the
// session by the http layer and passed explicitly into every protected
// service method. Clients never supply it in a request body.
type Caller struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	ProfileID string `json:"profileId"`
}

// Valid reports whether the caller carries a complete identity.
func (c *Caller) Valid() bool {
	return c != nil && c.UserID != "" && c.ProfileID != ""
}
