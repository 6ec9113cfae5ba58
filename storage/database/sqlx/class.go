package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
)

const classColumns = "id, grade_level, section, teacher_id, school_year_id, max_capacity, is_active, created_at"

var classOrderFields = map[string]bool{
	"id": true, "grade_level": true, "section": true, "school_year_id": true, "max_capacity": true, "created_at": true,
}

type classRepository struct {
	repo
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(exec core.DBExecutor) *classRepository {
	return &classRepository{repo{exec: exec}}
}

func (r classRepository) CreateClass(ctx context.Context, cls class.Class, exec ...core.DBExecutor) (class.Class, error) {
	q := `INSERT INTO classes (grade_level, section, teacher_id, school_year_id, max_capacity, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := sqlx.GetContext(ctx, r.getExec(exec), &cls.ID, q,
		cls.GradeLevel, cls.Section, cls.TeacherID, cls.SchoolYearID, cls.MaxCapacity, cls.IsActive, cls.CreatedAt.UTC())
	if err != nil {
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (r classRepository) GetClass(ctx context.Context, id int, exec ...core.DBExecutor) (class.Class, error) {
	var cls class.Class
	if err := sqlx.GetContext(ctx, r.getExec(exec), &cls, "SELECT "+classColumns+" FROM classes WHERE id = $1", id); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "finding class")
	}
	return cls, nil
}

func (r classRepository) QueryClasses(ctx context.Context, filter class.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]class.Class, error) {
	var w whereBuilder
	if filter.SchoolYearID > 0 {
		w.add("school_year_id = ?", filter.SchoolYearID)
	}
	if filter.GradeLevel != "" {
		w.add("grade_level = ?", filter.GradeLevel)
	}
	if filter.Section != "" {
		w.add("section = ?", filter.Section)
	}
	if filter.ActiveOnly {
		w.add("is_active")
	}

	q := "SELECT " + classColumns + " FROM classes" + w.String() + orderBy(ordering, classOrderFields, "grade_level, section")
	classes := []class.Class{}
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &classes, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classes, nil
}

func (r classRepository) ActiveClassExists(ctx context.Context, gradeLevel, section string, yearID, excludedID int, exec ...core.DBExecutor) (bool, error) {
	q := `SELECT EXISTS (
		SELECT 1 FROM classes
		WHERE grade_level = $1 AND section = $2 AND school_year_id = $3 AND is_active AND id <> $4)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.getExec(exec), &exists, q, gradeLevel, section, yearID, excludedID); err != nil {
		return false, errors.Wrap(err, "checking class uniqueness")
	}
	return exists, nil
}

func (r classRepository) UpdateClass(ctx context.Context, cls class.Class, exec ...core.DBExecutor) (class.Class, error) {
	q := `UPDATE classes SET grade_level = $2, section = $3, teacher_id = $4, max_capacity = $5, is_active = $6
		WHERE id = $1`
	res, err := r.getExec(exec).ExecContext(ctx, q, cls.ID, cls.GradeLevel, cls.Section, cls.TeacherID, cls.MaxCapacity, cls.IsActive)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	if err = expectAffected(res, class.ErrNotFound, "updating class"); err != nil {
		return class.Class{}, err
	}
	return cls, nil
}

func (r classRepository) CountActiveEnrollments(ctx context.Context, classID int, exec ...core.DBExecutor) (int, error) {
	var n int
	q := "SELECT COUNT(*) FROM student_class_enrollments WHERE class_id = $1 AND is_active"
	if err := sqlx.GetContext(ctx, r.getExec(exec), &n, q, classID); err != nil {
		return 0, errors.Wrap(err, "counting class enrollments")
	}
	return n, nil
}
