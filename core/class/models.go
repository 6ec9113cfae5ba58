package class

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
)

const (
	DefaultMaxCapacity = 50

	// thresholdPercent of max_capacity triggers an early capacity warning.
	thresholdPercent = 90
)

type Class struct {
	ID           int       `db:"id" json:"id"`
	GradeLevel   string    `db:"grade_level" json:"grade_level"`
	Section      string    `db:"section" json:"section"`
	TeacherID    null.Int  `db:"teacher_id" json:"teacher_id"`
	SchoolYearID int       `db:"school_year_id" json:"school_year_id"`
	MaxCapacity  int       `db:"max_capacity" json:"max_capacity"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"` // UTC
}

// Label is the display name of the class, e.g. "Grade 7 - Section A".
func (c Class) Label() string {
	return c.GradeLevel + " - " + c.Section
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	GradeLevel   string `json:"grade_level" validate:"required,notblank"`
	Section      string `json:"section" validate:"required,notblank"`
	TeacherID    *int   `json:"teacher_id" validate:"omitempty,gt=0"`
	SchoolYearID int    `json:"school_year_id" validate:"required,gt=0"`
	MaxCapacity  int    `json:"max_capacity" validate:"omitempty,gt=0"`
}

func (nc *NewClass) Validate() error {
	nc.GradeLevel = core.CleanString(nc.GradeLevel)
	nc.Section = core.CleanString(nc.Section)
	if nc.MaxCapacity == 0 {
		nc.MaxCapacity = DefaultMaxCapacity
	}
	return core.Validate.Struct(nc)
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	GradeLevel  string `json:"grade_level"`
	Section     string `json:"section"`
	MaxCapacity int    `json:"max_capacity" validate:"omitempty,gt=0"`
}

func (uc *UpdateClass) Validate(orig Class) error {
	if gl := core.CleanString(uc.GradeLevel); gl != "" {
		uc.GradeLevel = gl
	} else {
		uc.GradeLevel = orig.GradeLevel
	}
	if sec := core.CleanString(uc.Section); sec != "" {
		uc.Section = sec
	} else {
		uc.Section = orig.Section
	}
	if uc.MaxCapacity == 0 {
		uc.MaxCapacity = orig.MaxCapacity
	}
	return core.Validate.Struct(uc)
}

type QueryFilter struct {
	SchoolYearID int    `query:"school_year_id"`
	GradeLevel   string `query:"grade_level"`
	Section      string `query:"section"`
	ActiveOnly   bool   `query:"active_only"`
}

func (qf *QueryFilter) Clean() {
	qf.GradeLevel = core.CleanString(qf.GradeLevel)
	qf.Section = core.CleanString(qf.Section)
}

// Capacity is a point-in-time view of how full a class is, and would be after adding students.
type Capacity struct {
	ClassID         int    `json:"class_id"`
	Current         int    `json:"current"`
	Max             int    `json:"max"`
	Projected       int    `json:"projected"`
	AvailableSlots  int    `json:"available_slots"`
	AtThreshold     bool   `json:"at_threshold"`
	ExceedsCapacity bool   `json:"exceeds_capacity"`
	Message         string `json:"message"`
}

// NewCapacity computes the capacity view of cls holding current active enrollments once `additional` students join.
// AtThreshold and ExceedsCapacity are independent of each other.
func NewCapacity(cls Class, current, additional int) Capacity {
	capa := Capacity{
		ClassID:   cls.ID,
		Current:   current,
		Max:       cls.MaxCapacity,
		Projected: current + additional,
	}
	if capa.AvailableSlots = capa.Max - capa.Current; capa.AvailableSlots < 0 {
		capa.AvailableSlots = 0
	}
	capa.AtThreshold = capa.Current*100 >= capa.Max*thresholdPercent
	capa.ExceedsCapacity = capa.Projected > capa.Max

	switch {
	case capa.ExceedsCapacity:
		capa.Message = fmt.Sprintf("%s would exceed its capacity (%d/%d)", cls.Label(), capa.Projected, capa.Max)
	case capa.AtThreshold:
		capa.Message = fmt.Sprintf("%s is at %d%% of its capacity (%d/%d)", cls.Label(), thresholdPercent, capa.Current, capa.Max)
	default:
		capa.Message = fmt.Sprintf("%s has %d available slots", cls.Label(), capa.AvailableSlots)
	}
	return capa
}

// Warnings lists the advisory message the capacity view carries, if any.
func (c Capacity) Warnings() []string {
	if c.AtThreshold || c.ExceedsCapacity {
		return []string{c.Message}
	}
	return nil
}

// CapacityStatus classifies a head count against max_capacity.
type CapacityStatus string

const (
	CapacityNormal  CapacityStatus = "normal"
	CapacityWarning CapacityStatus = "warning" // >= 90%
	CapacityFull    CapacityStatus = "full"    // >= 100%
)

func StatusFor(count, max int) CapacityStatus {
	switch {
	case max <= 0 || count >= max:
		return CapacityFull
	case count*100 >= max*thresholdPercent:
		return CapacityWarning
	default:
		return CapacityNormal
	}
}
