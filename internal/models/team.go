package models

import "time"

// Team is a group of users evaluating each other within a project.
type Team struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null" json:"project_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Members   []User    `gorm:"many2many:team_members" json:"members,omitempty"`
}

// HasMember reports whether the given user is among the preloaded members.
func (t Team) HasMember(userID uint) bool {
	for _, member := range t.Members {
		if member.ID == userID {
			return true
		}
	}
	return false
}
