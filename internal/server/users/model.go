package users

import "slices"

// UserRecord is the persisted unit of the user directory.
//
// The reset tokens are empty unless a password reset is pending.
type UserRecord struct {
	ID                       string   `json:"id"`
	Email                    string   `json:"email"`
	Password                 string   `json:"password"`
	AuthToken                string   `json:"authToken"`
	AuthJwtToken             string   `json:"authJwtToken"`
	ClientIPAddressWhiteList []string `json:"clientIpAddressWhiteList"`
	PasswordResetToken       string   `json:"passwordResetToken,omitempty"`
	PasswordResetJwtToken    string   `json:"passwordResetJwtToken,omitempty"`
}

// Clone returns a deep copy of r.
func (r UserRecord) Clone() UserRecord {
	c := r
	c.ClientIPAddressWhiteList = slices.Clone(r.ClientIPAddressWhiteList)
	if c.ClientIPAddressWhiteList == nil {
		c.ClientIPAddressWhiteList = []string{}
	}
	return c
}

// ResetPending reports whether a password reset flow is in progress.
func (r UserRecord) ResetPending() bool {
	return r.PasswordResetToken != "" || r.PasswordResetJwtToken != ""
}

// AllowsIP reports whether ip may use r's session. An empty white list allows
// any address.
func (r UserRecord) AllowsIP(ip string) bool {
	return len(r.ClientIPAddressWhiteList) == 0 || slices.Contains(r.ClientIPAddressWhiteList, ip)
}
