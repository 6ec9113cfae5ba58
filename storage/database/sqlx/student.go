package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/student"
)

const studentColumns = "id, lrn, first_name, last_name, parent_phone, parent_email, is_active"

type studentRepository struct {
	repo
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{repo{exec: exec}}
}

func (r studentRepository) CreateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	q := `INSERT INTO students (lrn, first_name, last_name, parent_phone, parent_email, is_active)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := sqlx.GetContext(ctx, r.getExec(exec), &s.ID, q, s.LRN, s.FirstName, s.LastName, s.ParentPhone, s.ParentEmail, s.IsActive); err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (r studentRepository) GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (student.Student, error) {
	var s student.Student
	if err := sqlx.GetContext(ctx, r.getExec(exec), &s, "SELECT "+studentColumns+" FROM students WHERE id = $1", id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return s, nil
}

func (r studentRepository) QueryStudentsByID(ctx context.Context, ids []int, exec ...core.DBExecutor) ([]student.Student, error) {
	students := []student.Student{}
	if len(ids) == 0 {
		return students, nil
	}
	exe := r.getExec(exec)
	q, args, err := sqlx.In("SELECT "+studentColumns+" FROM students WHERE id IN (?) ORDER BY last_name, first_name, id", ids)
	if err != nil {
		return nil, errors.Wrap(err, "building students query")
	}
	if err = sqlx.SelectContext(ctx, exe, &students, exe.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}
