package schoolyear

import (
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
)

const (
	minStartYear = 1900
	maxStartYear = 2100
)

var nameRegex = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

type SchoolYear struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate null.Time `db:"start_date" json:"start_date"`
	EndDate   null.Time `db:"end_date" json:"end_date"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	IsLocked  bool      `db:"is_locked" json:"is_locked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"` // UTC
}

// ValidName reports whether name has the `YYYY-YYYY` form with consecutive years, the first in [1900, 2100].
func ValidName(name string) bool {
	m := nameRegex.FindStringSubmatch(name)
	if m == nil {
		return false
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	return first >= minStartYear && first <= maxStartYear && second == first+1
}

// NewSchoolYear contains information needed to create a new SchoolYear.
type NewSchoolYear struct {
	Name      string     `json:"name" validate:"required,schoolyear"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

func (ny *NewSchoolYear) Validate() error {
	ny.Name = core.CleanString(ny.Name)
	if !ValidName(ny.Name) {
		return core.NewValidationError(ErrInvalidFormat, core.FieldError{Field: "name", Error: ErrInvalidFormat.Error()})
	}
	if ny.StartDate != nil && ny.EndDate != nil && !ny.EndDate.After(*ny.StartDate) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date must be after start date"})
	}
	return errors.WithStack(core.Validate.Struct(ny))
}

// LockResult reports the outcome of an idempotent lock or unlock.
type LockResult struct {
	Year            SchoolYear `json:"school_year"`
	AlreadyLocked   bool       `json:"already_locked"`   // set by Lock only
	AlreadyUnlocked bool       `json:"already_unlocked"` // set by Unlock only
}

// Unchanged reports whether the call was a no-op.
func (res LockResult) Unchanged() bool {
	return res.AlreadyLocked || res.AlreadyUnlocked
}
