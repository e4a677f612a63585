package models

import "time"

// Session is the host-side envelope around one wizard instance.
type Session struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// IsExpired checks if session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch records activity and pushes the expiry out by ttl.
func (s *Session) Touch(ttl time.Duration) {
	s.LastActivity = time.Now()
	s.ExpiresAt = s.LastActivity.Add(ttl)
}
