package models

import "time"

// Team is a fixed-size squad identified by its 4-digit entry code. The code
// is chosen up front and never changes once the row exists. A team row lives
// only while at least one member references it; the cleanup worker removes
// rows whose member count has dropped to zero.
type Team struct {
	Code      string    `gorm:"primaryKey;size:4" json:"code"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Members []Member `gorm:"foreignKey:TeamCode;references:Code" json:"members,omitempty"`
}
