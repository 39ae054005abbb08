package models

import "time"

// LateSubmissionPermission lets an instructor admit one user's submission for
// one form after its deadline, until AllowedUntil.
type LateSubmissionPermission struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FormID       uint      `gorm:"not null;uniqueIndex:idx_late_permissions_form_user" json:"form_id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_late_permissions_form_user" json:"user_id"`
	AllowedUntil time.Time `gorm:"not null" json:"allowed_until"`
	GrantedBy    uint      `gorm:"not null" json:"granted_by"`
	Reason       string    `gorm:"size:512" json:"reason"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Admits reports whether the permission covers a submission at the given
// instant.
func (p LateSubmissionPermission) Admits(now time.Time) bool {
	return p.Active && now.UTC().Before(p.AllowedUntil.UTC())
}
