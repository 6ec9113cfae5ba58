package enrollment

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Status is the enrollment_status of a student-class record.
type Status string

const (
	StatusActive         Status = "active"
	StatusWithdrawn      Status = "withdrawn"
	StatusDropped        Status = "dropped"
	StatusTransferredOut Status = "transferred_out"
	StatusCompleted      Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusWithdrawn, StatusDropped, StatusTransferredOut, StatusCompleted:
		return true
	}
	return false
}

// Lifecycle of an enrollment row. Rows are never deleted: a deactivated row stays queryable
// as history and may be reactivated when the student re-enrolls into the same class.
type Lifecycle string

const (
	LifecycleActive      Lifecycle = "active"
	LifecycleHistorical  Lifecycle = "historical"
	LifecycleReactivated Lifecycle = "reactivated"
)

type Enrollment struct {
	ID              int         `db:"id" json:"id"`
	StudentID       int         `db:"student_id" json:"student_id"`
	ClassID         int         `db:"class_id" json:"class_id"`
	EnrolledBy      null.Int    `db:"enrolled_by" json:"enrolled_by"`
	EnrolledAt      time.Time   `db:"enrolled_at" json:"enrolled_at"` // UTC
	IsActive        bool        `db:"is_active" json:"is_active"`
	Status          Status      `db:"enrollment_status" json:"enrollment_status"`
	StatusChangedAt null.Time   `db:"status_changed_at" json:"status_changed_at"`
	StatusChangedBy null.Int    `db:"status_changed_by" json:"status_changed_by"`
	StatusReason    null.String `db:"status_change_reason" json:"status_change_reason"`
	ReactivatedAt   null.Time   `db:"reactivated_at" json:"reactivated_at"`
}

func (e Enrollment) Lifecycle() Lifecycle {
	switch {
	case !e.IsActive:
		return LifecycleHistorical
	case e.ReactivatedAt.Valid:
		return LifecycleReactivated
	default:
		return LifecycleActive
	}
}

type QueryFilter struct {
	StudentID    int
	ClassID      int
	SchoolYearID int
	ActiveOnly   bool
}

// DeactivateRequest is the only way an active enrollment leaves the active state.
type DeactivateRequest struct {
	EnrollmentID int    `json:"enrollment_id" validate:"required,gt=0"`
	Status       Status `json:"status" validate:"required"`
	By           int    `json:"-"`
	Reason       string `json:"reason"`
}

type MoveFailure struct {
	StudentID int    `json:"student_id"`
	Reason    string `json:"reason"`
}

type MoveResult struct {
	Moved  []Enrollment  `json:"moved"`
	Failed []MoveFailure `json:"failed"`
}
