package models

import "strings"

// Session is the caller identity passed explicitly into every core call.
type Session struct {
	UserID string
	Email  string
	Token  string
}

// Is reports whether the session matches the given identity, preferring the
// user id and falling back to a case-insensitive email comparison.
func (s Session) Is(userID, email string) bool {
	if userID != "" && s.UserID != "" {
		return userID == s.UserID
	}
	return email != "" && strings.EqualFold(email, s.Email)
}
