// File: utils/constants.go
package utils

// SessionKey is the gin context key holding the caller's models.Session.
const SessionKey = "session"
