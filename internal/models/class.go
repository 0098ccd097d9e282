package models

import "time"

// Section is a named stream inside a class with an optional default room.
// New periods inherit the room when one is not supplied explicitly.
type Section struct {
	Name       string `json:"name"`
	RoomNumber string `json:"room_number,omitempty"`
}

// Class groups sections under a branch.
type Class struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	Name      string    `json:"name"`
	Sections  []Section `json:"sections"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClassFilter captures filtering options for listing classes.
type ClassFilter struct {
	BranchID string
	Search   string
	Page     int
	PageSize int
}

// SectionRoom returns the default room configured for the named section, or
// the empty string when the section is unknown.
func (c *Class) SectionRoom(section string) string {
	for _, s := range c.Sections {
		if s.Name == section {
			return s.RoomNumber
		}
	}
	return ""
}
