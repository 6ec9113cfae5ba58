package student

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
)

var ErrNotFound = errors.New("student not found")

type Student struct {
	ID          int         `db:"id" json:"id"`
	LRN         string      `db:"lrn" json:"lrn"` // learner reference number
	FirstName   string      `db:"first_name" json:"first_name"`
	LastName    string      `db:"last_name" json:"last_name"`
	ParentPhone null.String `db:"parent_phone" json:"parent_phone"`
	ParentEmail null.String `db:"parent_email" json:"parent_email"`
	IsActive    bool        `db:"is_active" json:"is_active"`
}

// FullName is the "Last, First" name used in rosters and exports.
func (s Student) FullName() string {
	return FullName(s.FirstName, s.LastName)
}

func FullName(first, last string) string {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	switch {
	case last == "":
		return first
	case first == "":
		return last
	}
	return last + ", " + first
}

// Parent is the notification recipient for the student's guardian.
func (s Student) Parent() core.Recipient {
	return core.Recipient{
		Name:  "Parent of " + s.FirstName,
		Phone: s.ParentPhone.String,
		Email: s.ParentEmail.String,
	}
}

type Repository interface {
	CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
	GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (Student, error)
	QueryStudentsByID(ctx context.Context, ids []int, exec ...core.DBExecutor) ([]Student, error)
}
