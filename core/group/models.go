package group

import "time"

// Mode controls whether activity participants are partitioned into groups.
type Mode int

const (
	// ModeNone disables groups for an activity.
	ModeNone Mode = 0
	// ModeSeparate restricts each participant to the groups they belong to.
	ModeSeparate Mode = 1
	// ModeVisible lets participants see all groups but work in their own.
	ModeVisible Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeSeparate:
		return "separate"
	case ModeVisible:
		return "visible"
	default:
		return "none"
	}
}

type Course struct {
	ID        int64     `json:"id"`
	ShortName string    `json:"short_name"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// CourseModule is an activity instance within a course (eg. one quiz).
type CourseModule struct {
	ID        int64  `json:"id"`
	CourseID  int64  `json:"course_id"`
	Name      string `json:"name"`
	GroupMode Mode   `json:"group_mode"`
}

type Group struct {
	ID        int64     `json:"id"`
	CourseID  int64     `json:"course_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewGroup contains information needed to create a Group.
type NewGroup struct {
	CourseID int64  `json:"course_id" validate:"required"`
	Name     string `json:"name" validate:"required"`
}
