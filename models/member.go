package models

import "time"

// MemberColor tags one of the three slots of a team.
type MemberColor string

const (
	ColorRed   MemberColor = "red"
	ColorGreen MemberColor = "green"
	ColorBlue  MemberColor = "blue"
)

// MemberJob is the role a member plays within their team.
type MemberJob string

const (
	JobAttacker  MemberJob = "attacker"
	JobDefender  MemberJob = "defender"
	JobSupporter MemberJob = "supporter"
)

// AllColors and AllJobs enumerate the valid slot values. Three of each, so a
// full team holds exactly three members.
var (
	AllColors = []MemberColor{ColorRed, ColorGreen, ColorBlue}
	AllJobs   = []MemberJob{JobAttacker, JobDefender, JobSupporter}
)

// Member is one occupied slot. The surrogate ID targets rows internally; the
// game account id is visible to admins and can be corrected by them, so it is
// never used as a key. The composite unique indexes on (team_code, color) and
// (team_code, job) are the final arbiter for concurrent joins racing for the
// same slot: the application-level pre-check only produces friendlier errors.
type Member struct {
	ID       uint        `gorm:"primarykey" json:"id"`
	TeamCode string      `gorm:"size:4;not null;uniqueIndex:idx_team_color;uniqueIndex:idx_team_job;index" json:"team_code"`
	Color    MemberColor `gorm:"size:8;not null;uniqueIndex:idx_team_color" json:"color"`
	Job      MemberJob   `gorm:"size:12;not null;uniqueIndex:idx_team_job" json:"job"`

	GameAccountID string `gorm:"size:13;not null;uniqueIndex" json:"game_account_id"`
	Nickname      string `gorm:"size:50;not null" json:"nickname"`
	ContactID     string `gorm:"size:15;not null" json:"contact_id"`

	// ExternalSubjectID binds the row to a verified identity. Nullable so
	// admin-added members can exist unbound; unique when present.
	ExternalSubjectID *string `gorm:"size:255;uniqueIndex" json:"external_subject_id,omitempty"`

	// MediaLocator points at the stored avatar, if any.
	MediaLocator *string `gorm:"size:255" json:"media_locator,omitempty"`

	IsPrivileged bool `gorm:"default:false" json:"is_privileged"`

	JoinedAt  time.Time `json:"joined_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Team Team `gorm:"foreignKey:TeamCode;references:Code" json:"-"`
}

// ValidColor reports whether s is one of the three slot colors.
func ValidColor(s string) bool {
	switch MemberColor(s) {
	case ColorRed, ColorGreen, ColorBlue:
		return true
	}
	return false
}

// ValidJob reports whether s is one of the three team jobs.
func ValidJob(s string) bool {
	switch MemberJob(s) {
	case JobAttacker, JobDefender, JobSupporter:
		return true
	}
	return false
}
