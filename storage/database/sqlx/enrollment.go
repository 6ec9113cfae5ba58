package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
)

const enrollmentColumns = `id, student_id, class_id, enrolled_by, enrolled_at, is_active, enrollment_status,
	status_changed_at, status_changed_by, status_change_reason, reactivated_at`

type enrollmentRepository struct {
	repo
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(exec core.DBExecutor) *enrollmentRepository {
	return &enrollmentRepository{repo{exec: exec}}
}

func (r enrollmentRepository) get(ctx context.Context, exe core.DBExecutor, q string, args ...interface{}) (enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	if err := sqlx.GetContext(ctx, exe, &e, q, args...); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "finding enrollment")
	}
	return e, nil
}

func (r enrollmentRepository) GetEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	return r.get(ctx, r.getExec(exec), "SELECT "+enrollmentColumns+" FROM student_class_enrollments WHERE id = $1", id)
}

func (r enrollmentRepository) FindEnrollment(ctx context.Context, studentID, classID int, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	q := "SELECT " + enrollmentColumns + " FROM student_class_enrollments WHERE student_id = $1 AND class_id = $2"
	return r.get(ctx, r.getExec(exec), q, studentID, classID)
}

func (r enrollmentRepository) HasActiveEnrollmentInYear(ctx context.Context, studentID, yearID int, exec ...core.DBExecutor) (bool, error) {
	q := `SELECT EXISTS (
		SELECT 1 FROM student_class_enrollments e
		JOIN classes c ON c.id = e.class_id
		WHERE e.student_id = $1 AND c.school_year_id = $2 AND e.is_active)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.getExec(exec), &exists, q, studentID, yearID); err != nil {
		return false, errors.Wrap(err, "checking school year enrollment")
	}
	return exists, nil
}

func (r enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	q := `INSERT INTO student_class_enrollments (student_id, class_id, enrolled_by, enrolled_at, is_active, enrollment_status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := sqlx.GetContext(ctx, r.getExec(exec), &e.ID, q, e.StudentID, e.ClassID, e.EnrolledBy, e.EnrolledAt.UTC(), e.IsActive, e.Status); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (r enrollmentRepository) ReactivateEnrollment(ctx context.Context, id, by int, at time.Time, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	q := `UPDATE student_class_enrollments
		SET is_active = TRUE, enrollment_status = 'active', enrolled_by = $2, enrolled_at = $3, reactivated_at = $3,
			status_changed_at = $3, status_changed_by = $2, status_change_reason = NULL
		WHERE id = $1
		RETURNING ` + enrollmentColumns
	return r.get(ctx, r.getExec(exec), q, id, null.NewInt(by, by > 0), at.UTC())
}

func (r enrollmentRepository) DeactivateEnrollment(ctx context.Context, id int, status enrollment.Status, by int, reason string, at time.Time, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	q := `UPDATE student_class_enrollments
		SET is_active = FALSE, enrollment_status = $2, status_changed_by = $3, status_change_reason = $4, status_changed_at = $5
		WHERE id = $1
		RETURNING ` + enrollmentColumns
	return r.get(ctx, r.getExec(exec), q, id, status, null.NewInt(by, by > 0), null.NewString(reason, reason != ""), at.UTC())
}

func (r enrollmentRepository) QueryEnrollments(ctx context.Context, filter enrollment.QueryFilter, exec ...core.DBExecutor) ([]enrollment.Enrollment, error) {
	var w whereBuilder
	if filter.StudentID > 0 {
		w.add("student_id = ?", filter.StudentID)
	}
	if filter.ClassID > 0 {
		w.add("class_id = ?", filter.ClassID)
	}
	if filter.SchoolYearID > 0 {
		w.add("class_id IN (SELECT id FROM classes WHERE school_year_id = ?)", filter.SchoolYearID)
	}
	if filter.ActiveOnly {
		w.add("is_active")
	}

	enrollments := []enrollment.Enrollment{}
	q := "SELECT " + enrollmentColumns + " FROM student_class_enrollments" + w.String() + " ORDER BY id"
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &enrollments, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	return enrollments, nil
}
